package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/testutil"
	"go.uber.org/zap"
)

func TestParseTags(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"tagify", `[{"value":"cnc"},{"value":"lathe"}]`, []string{"cnc", "lathe"}},
		{"json strings", `["press", "press", "hydraulic"]`, []string{"press", "hydraulic"}},
		{"comma list", "a, b ,a", []string{"a", "b"}},
		{"broken json", "[bad", []string{}},
		{"empty", "  ", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTags(tc.raw)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestParseFormDate(t *testing.T) {
	got, err := ParseFormDate("installation_date", "03/15/2024")
	if err != nil || got == nil || got.Format("2006-01-02") != "2024-03-15" {
		t.Fatalf("expected 2024-03-15, got %v (%v)", got, err)
	}
	if got, err := ParseFormDate("installation_date", "2024-03-15"); err != nil || got == nil {
		t.Fatalf("expected ISO fallback to parse, got %v", err)
	}
	if got, err := ParseFormDate("installation_date", ""); err != nil || got != nil {
		t.Fatalf("expected nil for empty input")
	}
	if _, err := ParseFormDate("installation_date", "15/03/2024"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBuildSchedule(t *testing.T) {
	s, err := BuildSchedule(&CreateMachineRequest{
		MaintenanceTrigger:  entity.TriggerTimeBased,
		TimeGap:             "2",
		TimeGapUnit:         "weeks",
		NextMaintenanceDate: "06/01/2024",
	})
	if err != nil {
		t.Fatalf("time based: %v", err)
	}
	if s.TimeGap == nil || *s.TimeGap != 2 || s.NextMaintenanceDate == nil {
		t.Fatalf("unexpected schedule %+v", s)
	}

	s, err = BuildSchedule(&CreateMachineRequest{
		MaintenanceTrigger: entity.TriggerUsageBased,
		UsageGap:           "500",
		MeterUnit:          "hours",
	})
	if err != nil {
		t.Fatalf("usage based: %v", err)
	}
	if s.CurrentMeterReading == nil || *s.CurrentMeterReading != 0 {
		t.Fatalf("expected meter reading to default to 0")
	}

	bad := []*CreateMachineRequest{
		{MaintenanceTrigger: entity.TriggerTimeBased, TimeGap: "abc", TimeGapUnit: "days"},
		{MaintenanceTrigger: entity.TriggerTimeBased, TimeGap: "3", TimeGapUnit: "years"},
		{MaintenanceTrigger: entity.TriggerUsageBased, UsageGap: "-1"},
		{MaintenanceTrigger: "calendar"},
	}
	for _, req := range bad {
		if _, err := BuildSchedule(req); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", req, err)
		}
	}
}

func TestUpcomingMaintenanceTimeBased(t *testing.T) {
	gap := 1
	next := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	got := UpcomingMaintenance(entity.MaintenanceSchedule{
		Trigger:             entity.TriggerTimeBased,
		TimeGap:             &gap,
		TimeGapUnit:         "months",
		NextMaintenanceDate: &next,
	}, 5)
	want := []string{"31 Jan, 2024", "28 Feb, 2024", "28 Mar, 2024", "28 Apr, 2024", "28 May, 2024"}
	assertStrings(t, want, got)

	days := 10
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got = UpcomingMaintenance(entity.MaintenanceSchedule{
		Trigger:             entity.TriggerTimeBased,
		TimeGap:             &days,
		TimeGapUnit:         "days",
		NextMaintenanceDate: &start,
	}, 5)
	assertStrings(t, []string{"01 Mar, 2024", "11 Mar, 2024", "21 Mar, 2024", "31 Mar, 2024", "10 Apr, 2024"}, got)
}

func TestUpcomingMaintenanceUsageBased(t *testing.T) {
	gap, reading := 500.0, 1200.0
	got := UpcomingMaintenance(entity.MaintenanceSchedule{
		Trigger:             entity.TriggerUsageBased,
		UsageGap:            &gap,
		MeterUnit:           "hours",
		CurrentMeterReading: &reading,
	}, 5)
	assertStrings(t, []string{"At 1500 hours", "At 2000 hours", "At 2500 hours", "At 3000 hours", "At 3500 hours"}, got)

	if got := UpcomingMaintenance(entity.MaintenanceSchedule{}, 5); len(got) != 0 {
		t.Fatalf("expected nothing without a schedule, got %v", got)
	}
}

func TestComputeMachineStats(t *testing.T) {
	stats := ComputeMachineStats([]entity.Machine{
		{CurrentStatus: entity.MachineStatusOperating, Criticality: entity.CriticalityHigh},
		{CurrentStatus: entity.MachineStatusIdle, Criticality: entity.CriticalityLow},
		{CurrentStatus: entity.MachineStatusUnderMaintenance, Criticality: entity.CriticalityHigh},
		{CurrentStatus: entity.MachineStatusOutOfService},
	})
	want := MachineStats{Total: 4, Operating: 1, Idle: 1, UnderMaintenance: 1, OutOfService: 1, HighCriticality: 2}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func assertStrings(t *testing.T, want, got []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMachineCreateDetailsAndStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	blobs := testutil.NewMemoryBlobs()
	files := NewFileService(repos, blobs, zap.NewNop())
	svc := NewMachineService(repos, files, zap.NewNop())
	ctx := context.Background()
	actor := Actor{UserID: "test-user", Username: "Tester"}

	manual := &Upload{Reader: bytes.NewBufferString("manual"), Filename: "manual.pdf", ContentType: "application/pdf", Size: 6}
	res, err := svc.Create(ctx, actor, &CreateMachineRequest{
		MachineName:         "Lathe 1",
		AssetID:             "AS-001",
		CurrentStatus:       entity.MachineStatusOperating,
		Criticality:         entity.CriticalityHigh,
		Tags:                `[{"value":"lathe"},{"value":"cnc"}]`,
		InstallationDate:    "01/10/2023",
		MaintenanceTrigger:  entity.TriggerTimeBased,
		TimeGap:             "7",
		TimeGapUnit:         "days",
		NextMaintenanceDate: "06/03/2024",
	}, []*Upload{manual})
	if err != nil {
		t.Fatalf("create machine: %v", err)
	}
	if len(res.Attachments) != 1 || len(res.FailedAttachments) != 0 {
		t.Fatalf("expected 1 stored attachment, got %+v", res)
	}

	details, err := svc.Details(ctx, res.Machine.ID)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if len(details.Files) != 1 || len(details.Machine.FileMetadataIDs) != 1 {
		t.Fatalf("expected attachment linked to machine, got %+v", details)
	}
	if len(details.UpcomingMaintenance) != 5 || details.UpcomingMaintenance[0] != "03 Jun, 2024" {
		t.Fatalf("unexpected maintenance plan %v", details.UpcomingMaintenance)
	}

	list, err := svc.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Stats.Operating != 1 || list.Stats.HighCriticality != 1 || len(list.Tags) != 2 {
		t.Fatalf("unexpected list payload %+v", list)
	}

	if err := svc.UpdateStatus(ctx, res.Machine.ID, "broken"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if err := svc.UpdateStatus(ctx, "machine-missing", entity.MachineStatusIdle); !errors.Is(err, ErrMachineNotFound) {
		t.Fatalf("expected ErrMachineNotFound, got %v", err)
	}
	if err := svc.UpdateStatus(ctx, res.Machine.ID, entity.MachineStatusUnderMaintenance); err != nil {
		t.Fatalf("update status: %v", err)
	}
}

func TestMachineCreateKeepsMachineWhenAttachmentFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	blobs := testutil.NewMemoryBlobs()
	blobs.FailPut = true
	svc := NewMachineService(repos, NewFileService(repos, blobs, zap.NewNop()), zap.NewNop())

	up := &Upload{Reader: bytes.NewBufferString("x"), Filename: "photo.jpg", ContentType: "image/jpeg", Size: 1}
	res, err := svc.Create(context.Background(), Actor{UserID: "test-user"}, &CreateMachineRequest{MachineName: "Press"}, []*Upload{up})
	if err != nil {
		t.Fatalf("create machine: %v", err)
	}
	if len(res.FailedAttachments) != 1 || res.FailedAttachments[0] != "photo.jpg" {
		t.Fatalf("expected failed attachment to be reported, got %+v", res.FailedAttachments)
	}
	if res.Machine.CurrentStatus != entity.MachineStatusIdle || res.Machine.Criticality != entity.CriticalityMedium {
		t.Fatalf("expected default status and criticality, got %s/%s", res.Machine.CurrentStatus, res.Machine.Criticality)
	}
}
