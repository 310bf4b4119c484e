package validation

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

type jobInput struct {
	JobName      string `validate:"required"`
	ScheduleType string `validate:"required,schedule_type"`
	Status       string `validate:"omitempty,job_status"`
}

type machineInput struct {
	CurrentStatus string `validate:"required,machine_status"`
	Criticality   string `validate:"omitempty,criticality"`
}

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	if err := RegisterOn(v); err != nil {
		t.Fatalf("RegisterOn failed: %v", err)
	}
	return v
}

func TestCustomTags(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name    string
		input   interface{}
		wantErr bool
	}{
		{"general schedule", jobInput{JobName: "Shaft", ScheduleType: "general_schedule"}, false},
		{"priority schedule with status", jobInput{JobName: "Shaft", ScheduleType: "priority_schedule", Status: "at_risk"}, false},
		{"unknown schedule", jobInput{JobName: "Shaft", ScheduleType: "weekend"}, true},
		{"unknown job status", jobInput{JobName: "Shaft", ScheduleType: "general_schedule", Status: "paused"}, true},
		{"machine operating", machineInput{CurrentStatus: "operating"}, false},
		{"machine under maintenance high", machineInput{CurrentStatus: "under_maintenance", Criticality: "high"}, false},
		{"machine unknown status", machineInput{CurrentStatus: "broken"}, true},
		{"machine unknown criticality", machineInput{CurrentStatus: "idle", Criticality: "urgent"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	v := newValidator(t)

	err := v.Struct(jobInput{ScheduleType: "weekend"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := Message(err)
	if !strings.Contains(msg, "job_name is required") {
		t.Fatalf("expected required message, got %q", msg)
	}
	if !strings.Contains(msg, "schedule_type has invalid value weekend") {
		t.Fatalf("expected schedule_type message, got %q", msg)
	}
}
