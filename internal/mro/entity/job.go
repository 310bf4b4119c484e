package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Job 状态
const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusAtRisk     = "at_risk"
	JobStatusCompleted  = "completed"
)

// Schedule types
const (
	ScheduleGeneral  = "general_schedule"
	SchedulePriority = "priority_schedule"
)

// Operation statuses
const (
	OperationStatusPending   = "pending"
	OperationStatusSuspended = "suspended"
	OperationStatusCompleted = "completed"
)

// Job is a scheduled work order. Positions are dense per schedule type.
type Job struct {
	ID               string                      `json:"id" gorm:"primaryKey;size:36"`
	JobName          string                      `json:"job_name" gorm:"size:256;not null"`
	Color            string                      `json:"color" gorm:"size:16"`
	Description      string                      `json:"description" gorm:"type:text"`
	Divisions        datatypes.JSONSlice[string] `json:"divisions" gorm:"type:jsonb"`
	Coordinators     datatypes.JSONSlice[string] `json:"coordinators" gorm:"type:jsonb"`
	Tags             datatypes.JSONSlice[string] `json:"tags" gorm:"type:jsonb"`
	Status           string                      `json:"status" gorm:"size:16;not null;default:pending"`
	ScheduleType     string                      `json:"schedule_type" gorm:"size:32;not null;index:idx_jobs_schedule"`
	SchedulePosition int                         `json:"schedule_position" gorm:"not null;index:idx_jobs_schedule"`
	StartTime        *time.Time                  `json:"start_time"`
	CompletionTime   *time.Time                  `json:"completion_time"`
	CreatedBy        string                      `json:"created_by" gorm:"size:36"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`

	// 关联
	Operations []Operation `json:"operations,omitempty" gorm:"foreignKey:JobID"`

	SuspendedOperations int64 `json:"suspended_operations" gorm:"-"`
}

func (Job) TableName() string {
	return "jobs"
}

// MaterialRequirement is one (material, quantity) pair an operation consumes.
type MaterialRequirement struct {
	MaterialID string  `json:"material_id"`
	Quantity   float64 `json:"quantity"`
}

// Operation is a unit of work under a job.
type Operation struct {
	ID                string                                   `json:"id" gorm:"primaryKey;size:36"`
	JobID             string                                   `json:"job_id" gorm:"size:36;not null;index"`
	OperationName     string                                   `json:"operation_name" gorm:"size:256;not null"`
	OperationPosition int                                      `json:"operation_position" gorm:"not null;default:0"`
	AssignedMachine   *string                                  `json:"assigned_machine" gorm:"size:36;index"`
	AssignedOperators datatypes.JSONSlice[string]              `json:"assigned_operators" gorm:"type:jsonb"`
	MaterialsRequired datatypes.JSONSlice[MaterialRequirement] `json:"materials_required" gorm:"type:jsonb"`
	Status            string                                   `json:"status" gorm:"size:16;not null;default:pending"`
	Notes             string                                   `json:"notes" gorm:"type:text"`
	CompletedAt       *time.Time                               `json:"completed_at"`
	CreatedBy         string                                   `json:"created_by" gorm:"size:36"`
	CreatedAt         time.Time                                `json:"created_at"`
	UpdatedAt         time.Time                                `json:"updated_at"`
}

func (Operation) TableName() string {
	return "operations"
}
