package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/testutil"
)

func intPtr(v int) *int { return &v }

func TestClampPosition(t *testing.T) {
	cases := []struct {
		name      string
		requested *int
		count     int64
		want      int
	}{
		{"append by default", nil, 5, 6},
		{"below range", intPtr(0), 5, 1},
		{"inside range", intPtr(3), 5, 3},
		{"past the end", intPtr(10), 5, 6},
		{"empty schedule", intPtr(4), 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := clampPosition(tc.requested, tc.count); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestCleanList(t *testing.T) {
	got := cleanList([]string{" a", "", "b", "a ", "c"})
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected list %v", got)
	}
}

func setupJobTest(t *testing.T) (*repository.Repositories, *JobService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return repos, NewJobService(repos)
}

func createJob(t *testing.T, svc *JobService, name, scheduleType string, position *int) *entity.Job {
	t.Helper()
	job, err := svc.Create(context.Background(), "test-user", &CreateJobRequest{
		JobName:          name,
		ScheduleType:     scheduleType,
		SchedulePosition: position,
	})
	if err != nil {
		t.Fatalf("create job %s: %v", name, err)
	}
	return job
}

func assertDense(t *testing.T, repos *repository.Repositories, scheduleType string, n int) {
	t.Helper()
	positions, err := repos.Job.Positions(context.Background(), scheduleType)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(positions) != n {
		t.Fatalf("expected %d jobs in %s, got %d", n, scheduleType, len(positions))
	}
	for i, p := range positions {
		if p != i+1 {
			t.Fatalf("expected dense positions, got %v", positions)
		}
	}
}

func TestJobInsertShiftsLaterPositions(t *testing.T) {
	repos, svc := setupJobTest(t)
	ctx := context.Background()

	first := createJob(t, svc, "first", entity.ScheduleGeneral, nil)
	second := createJob(t, svc, "second", entity.ScheduleGeneral, nil)
	third := createJob(t, svc, "third", entity.ScheduleGeneral, nil)
	other := createJob(t, svc, "other", entity.SchedulePriority, nil)

	inserted := createJob(t, svc, "inserted", entity.ScheduleGeneral, intPtr(2))
	if inserted.SchedulePosition != 2 {
		t.Fatalf("expected inserted job at 2, got %d", inserted.SchedulePosition)
	}

	want := map[string]int{first.ID: 1, second.ID: 3, third.ID: 4, other.ID: 1}
	for id, pos := range want {
		job, err := repos.Job.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("find job: %v", err)
		}
		if job.SchedulePosition != pos {
			t.Fatalf("job %s: expected position %d, got %d", job.JobName, pos, job.SchedulePosition)
		}
	}
	assertDense(t, repos, entity.ScheduleGeneral, 4)
	assertDense(t, repos, entity.SchedulePriority, 1)

	next, err := svc.NextPosition(ctx, entity.ScheduleGeneral)
	if err != nil {
		t.Fatalf("next position: %v", err)
	}
	if next != 5 {
		t.Fatalf("expected next position 5, got %d", next)
	}
}

func TestJobMoveWithinAndAcrossSchedules(t *testing.T) {
	repos, svc := setupJobTest(t)
	ctx := context.Background()

	a := createJob(t, svc, "a", entity.ScheduleGeneral, nil)
	createJob(t, svc, "b", entity.ScheduleGeneral, nil)
	createJob(t, svc, "c", entity.ScheduleGeneral, nil)
	createJob(t, svc, "p", entity.SchedulePriority, nil)

	moved, err := svc.Move(ctx, a.ID, &MoveJobRequest{Position: 3})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.SchedulePosition != 3 {
		t.Fatalf("expected position 3, got %d", moved.SchedulePosition)
	}
	assertDense(t, repos, entity.ScheduleGeneral, 3)

	moved, err = svc.Move(ctx, a.ID, &MoveJobRequest{ScheduleType: entity.SchedulePriority, Position: 1})
	if err != nil {
		t.Fatalf("move across: %v", err)
	}
	if moved.ScheduleType != entity.SchedulePriority || moved.SchedulePosition != 1 {
		t.Fatalf("unexpected placement %s/%d", moved.ScheduleType, moved.SchedulePosition)
	}
	assertDense(t, repos, entity.ScheduleGeneral, 2)
	assertDense(t, repos, entity.SchedulePriority, 2)
}

func TestJobUpdateStatus(t *testing.T) {
	_, svc := setupJobTest(t)
	ctx := context.Background()
	job := createJob(t, svc, "status", entity.ScheduleGeneral, nil)

	if _, err := svc.UpdateStatus(ctx, job.ID, "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "missing-job", entity.JobStatusInProgress); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, job.ID, entity.JobStatusCompleted)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != entity.JobStatusCompleted || updated.CompletionTime == nil {
		t.Fatalf("expected completed job with completion time, got %+v", updated)
	}
}

func TestSeedJobs(t *testing.T) {
	repos, _ := setupJobTest(t)
	ctx := context.Background()

	n, err := SeedJobs(ctx, repos, "seeder", 50, time.Now())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != 100 {
		t.Fatalf("expected 100 jobs, got %d", n)
	}
	assertDense(t, repos, entity.ScheduleGeneral, 50)
	assertDense(t, repos, entity.SchedulePriority, 50)

	// reseeding replaces rather than appends
	if _, err := SeedJobs(ctx, repos, "seeder", 50, time.Now()); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	assertDense(t, repos, entity.ScheduleGeneral, 50)
}

func TestJobEditFieldsLeavesStatusAndSchedule(t *testing.T) {
	name := " renamed "
	fields, err := jobEditFields(&UpdateJobRequest{JobName: &name, Tags: []string{"a", " a ", ""}})
	if err != nil {
		t.Fatalf("edit fields: %v", err)
	}
	for _, col := range []string{"status", "schedule_type", "schedule_position"} {
		if _, ok := fields[col]; ok {
			t.Fatalf("edit must not write %s", col)
		}
	}
	if fields["job_name"] != "renamed" || len(fields) != 2 {
		t.Fatalf("unexpected fields %v", fields)
	}

	blank := "  "
	if _, err := jobEditFields(&UpdateJobRequest{JobName: &blank}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestJobUpdateKeepsConcurrentStatusAndPosition(t *testing.T) {
	repos, svc := setupJobTest(t)
	ctx := context.Background()
	job := createJob(t, svc, "edited", entity.ScheduleGeneral, nil)

	// an operation shortage and an insert ahead of the job land before the edit is written
	if err := repos.Job.UpdateFields(ctx, job.ID, map[string]interface{}{"status": entity.JobStatusAtRisk}); err != nil {
		t.Fatalf("mark at risk: %v", err)
	}
	createJob(t, svc, "ahead", entity.ScheduleGeneral, intPtr(1))

	name := "edited twice"
	updated, err := svc.Update(ctx, job.ID, &UpdateJobRequest{JobName: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.JobName != name {
		t.Fatalf("expected name %q, got %q", name, updated.JobName)
	}
	if updated.Status != entity.JobStatusAtRisk {
		t.Fatalf("expected at_risk to survive the edit, got %s", updated.Status)
	}
	if updated.SchedulePosition != 2 {
		t.Fatalf("expected shifted position 2, got %d", updated.SchedulePosition)
	}
	assertDense(t, repos, entity.ScheduleGeneral, 2)

	if _, err := svc.Update(ctx, "missing-job", &UpdateJobRequest{JobName: &name}); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobGetCountsSuspendedOperations(t *testing.T) {
	repos, svc := setupJobTest(t)
	ctx := context.Background()
	job := createJob(t, svc, "with ops", entity.ScheduleGeneral, nil)

	for i, status := range []string{entity.OperationStatusSuspended, entity.OperationStatusPending, entity.OperationStatusSuspended} {
		op := &entity.Operation{
			ID:                fmt.Sprintf("op-susp-%d", i),
			JobID:             job.ID,
			OperationName:     "op",
			OperationPosition: i + 1,
			AssignedOperators: []string{},
			MaterialsRequired: []entity.MaterialRequirement{},
			Status:            status,
		}
		if err := repos.Operation.Create(ctx, op); err != nil {
			t.Fatalf("create operation: %v", err)
		}
	}

	got, err := svc.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SuspendedOperations != 2 {
		t.Fatalf("expected 2 suspended operations, got %d", got.SuspendedOperations)
	}
}

func TestSeedJobsSerializesWithCreate(t *testing.T) {
	repos, svc := setupJobTest(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := SeedJobs(ctx, repos, "seeder", 10, time.Now())
		errs <- err
	}()
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Create(ctx, "test-user", &CreateJobRequest{
				JobName:      fmt.Sprintf("racer %d", i),
				ScheduleType: entity.ScheduleGeneral,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent write: %v", err)
		}
	}

	positions, err := repos.Job.Positions(ctx, entity.ScheduleGeneral)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	assertDense(t, repos, entity.ScheduleGeneral, len(positions))
	assertDense(t, repos, entity.SchedulePriority, 10)
}
