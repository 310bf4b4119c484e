package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobService 工单与排程服务
type JobService struct {
	repos *repository.Repositories
}

func NewJobService(repos *repository.Repositories) *JobService {
	return &JobService{repos: repos}
}

// CreateJobRequest 创建工单请求
type CreateJobRequest struct {
	JobName          string     `json:"job_name" binding:"required,max=256"`
	Color            string     `json:"color" binding:"max=16"`
	Description      string     `json:"description"`
	Divisions        []string   `json:"divisions"`
	Coordinators     []string   `json:"coordinators"`
	Tags             []string   `json:"tags"`
	ScheduleType     string     `json:"schedule_type" binding:"required,schedule_type"`
	SchedulePosition *int       `json:"schedule_position"`
	StartTime        *time.Time `json:"start_time"`
	CompletionTime   *time.Time `json:"completion_time"`
}

// UpdateJobRequest 更新工单请求（排程位置通过 Move 修改）
type UpdateJobRequest struct {
	JobName        *string    `json:"job_name" binding:"omitempty,max=256"`
	Color          *string    `json:"color" binding:"omitempty,max=16"`
	Description    *string    `json:"description"`
	Divisions      []string   `json:"divisions"`
	Coordinators   []string   `json:"coordinators"`
	Tags           []string   `json:"tags"`
	StartTime      *time.Time `json:"start_time"`
	CompletionTime *time.Time `json:"completion_time"`
}

// MoveJobRequest 调整排程位置；schedule_type 为空表示不换排程
type MoveJobRequest struct {
	ScheduleType string `json:"schedule_type" binding:"omitempty,schedule_type"`
	Position     int    `json:"position" binding:"required,min=1"`
}

// FormOptions feeds the job and operation forms.
type FormOptions struct {
	Divisions []entity.Division `json:"divisions"`
	Users     []string          `json:"users"`
	Machines  []MachineOption   `json:"machines"`
	Materials []MaterialOption  `json:"materials"`
}

type MachineOption struct {
	ID            string `json:"id"`
	MachineName   string `json:"machine_name"`
	AssetID       string `json:"asset_id"`
	CurrentStatus string `json:"current_status"`
}

type MaterialOption struct {
	ID              string  `json:"id"`
	MaterialName    string  `json:"material_name"`
	SKU             string  `json:"sku"`
	UOM             string  `json:"uom"`
	CurrentQuantity float64 `json:"current_quantity"`
}

// clampPosition maps a requested position onto [1, count+1]; nil means append.
func clampPosition(requested *int, count int64) int {
	last := int(count) + 1
	if requested == nil || *requested > last {
		return last
	}
	if *requested < 1 {
		return 1
	}
	return *requested
}

// Create inserts a job at the requested position, shifting every job of the
// same schedule type at or after it down by one.
func (s *JobService) Create(ctx context.Context, userID string, req *CreateJobRequest) (*entity.Job, error) {
	name := strings.TrimSpace(req.JobName)
	if name == "" {
		return nil, fmt.Errorf("%w: job_name is required", ErrInvalidInput)
	}

	job := &entity.Job{
		ID:             uuid.New().String(),
		JobName:        name,
		Color:          req.Color,
		Description:    req.Description,
		Divisions:      cleanList(req.Divisions),
		Coordinators:   cleanList(req.Coordinators),
		Tags:           cleanList(req.Tags),
		Status:         entity.JobStatusPending,
		ScheduleType:   req.ScheduleType,
		StartTime:      req.StartTime,
		CompletionTime: req.CompletionTime,
		CreatedBy:      userID,
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Job.LockSchedule(ctx, job.ScheduleType); err != nil {
			return fmt.Errorf("lock schedule: %w", err)
		}
		count, err := tx.Job.CountBySchedule(ctx, job.ScheduleType)
		if err != nil {
			return fmt.Errorf("count jobs: %w", err)
		}
		job.SchedulePosition = clampPosition(req.SchedulePosition, count)
		if job.SchedulePosition <= int(count) {
			if err := tx.Job.ShiftFrom(ctx, job.ScheduleType, job.SchedulePosition, 1); err != nil {
				return fmt.Errorf("shift positions: %w", err)
			}
		}
		return tx.Job.Create(ctx, job)
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// NextPosition returns the position a new job would take when appended.
func (s *JobService) NextPosition(ctx context.Context, scheduleType string) (int, error) {
	count, err := s.repos.Job.CountBySchedule(ctx, scheduleType)
	if err != nil {
		return 0, err
	}
	return int(count) + 1, nil
}

// Get 工单详情（含工序）
func (s *JobService) Get(ctx context.Context, id string) (*entity.Job, error) {
	job, err := s.repos.Job.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrJobNotFound)
	}
	suspended, err := s.repos.Operation.CountByStatus(ctx, id, entity.OperationStatusSuspended)
	if err != nil {
		return nil, fmt.Errorf("count suspended operations: %w", err)
	}
	job.SuspendedOperations = suspended
	return job, nil
}

// List 工单列表，按排程类型和位置排序
func (s *JobService) List(ctx context.Context, filters map[string]string) ([]entity.Job, error) {
	return s.repos.Job.FindAll(ctx, filters)
}

// jobEditFields maps the set request fields onto columns. Status and schedule
// columns are never part of it; they change only through UpdateStatus and Move.
func jobEditFields(req *UpdateJobRequest) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if req.JobName != nil {
		name := strings.TrimSpace(*req.JobName)
		if name == "" {
			return nil, fmt.Errorf("%w: job_name cannot be empty", ErrInvalidInput)
		}
		fields["job_name"] = name
	}
	if req.Color != nil {
		fields["color"] = *req.Color
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Divisions != nil {
		fields["divisions"] = datatypes.JSONSlice[string](cleanList(req.Divisions))
	}
	if req.Coordinators != nil {
		fields["coordinators"] = datatypes.JSONSlice[string](cleanList(req.Coordinators))
	}
	if req.Tags != nil {
		fields["tags"] = datatypes.JSONSlice[string](cleanList(req.Tags))
	}
	if req.StartTime != nil {
		fields["start_time"] = *req.StartTime
	}
	if req.CompletionTime != nil {
		fields["completion_time"] = *req.CompletionTime
	}
	return fields, nil
}

// Update 更新工单描述信息，只写入请求中给出的字段
func (s *JobService) Update(ctx context.Context, id string, req *UpdateJobRequest) (*entity.Job, error) {
	fields, err := jobEditFields(req)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}
	fields["updated_at"] = time.Now()
	if err := s.repos.Job.UpdateFields(ctx, id, fields); err != nil {
		return nil, notFound(err, ErrJobNotFound)
	}
	return s.Get(ctx, id)
}

// UpdateStatus 更新工单状态；完成时记录完成时间
func (s *JobService) UpdateStatus(ctx context.Context, id, status string) (*entity.Job, error) {
	switch status {
	case entity.JobStatusPending, entity.JobStatusInProgress, entity.JobStatusAtRisk, entity.JobStatusCompleted:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	fields := map[string]interface{}{"status": status, "updated_at": time.Now()}
	if status == entity.JobStatusCompleted {
		fields["completion_time"] = time.Now()
	}
	if err := s.repos.Job.UpdateFields(ctx, id, fields); err != nil {
		return nil, notFound(err, ErrJobNotFound)
	}
	return s.Get(ctx, id)
}

// Move changes a job's position, optionally into another schedule type,
// keeping both schedules dense.
func (s *JobService) Move(ctx context.Context, id string, req *MoveJobRequest) (*entity.Job, error) {
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		job, err := tx.Job.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrJobNotFound)
		}
		target := req.ScheduleType
		if target == "" {
			target = job.ScheduleType
		}

		// Lock schedules in a fixed order.
		schedules := []string{job.ScheduleType}
		if target != job.ScheduleType {
			schedules = append(schedules, target)
			sort.Strings(schedules)
		}
		for _, st := range schedules {
			if err := tx.Job.LockSchedule(ctx, st); err != nil {
				return fmt.Errorf("lock schedule: %w", err)
			}
		}

		count, err := tx.Job.CountBySchedule(ctx, target)
		if err != nil {
			return fmt.Errorf("count jobs: %w", err)
		}

		old := job.SchedulePosition
		if target == job.ScheduleType {
			pos := req.Position
			if pos > int(count) {
				pos = int(count)
			}
			switch {
			case pos < old:
				err = tx.Job.ShiftRange(ctx, target, pos, old-1, 1)
			case pos > old:
				err = tx.Job.ShiftRange(ctx, target, old+1, pos, -1)
			}
			if err != nil {
				return fmt.Errorf("shift positions: %w", err)
			}
			job.SchedulePosition = pos
		} else {
			if err := tx.Job.ShiftFrom(ctx, job.ScheduleType, old+1, -1); err != nil {
				return fmt.Errorf("close gap: %w", err)
			}
			pos := req.Position
			if pos > int(count)+1 {
				pos = int(count) + 1
			}
			if err := tx.Job.ShiftFrom(ctx, target, pos, 1); err != nil {
				return fmt.Errorf("shift positions: %w", err)
			}
			job.ScheduleType = target
			job.SchedulePosition = pos
		}

		return tx.Job.UpdateFields(ctx, job.ID, map[string]interface{}{
			"schedule_type":     job.ScheduleType,
			"schedule_position": job.SchedulePosition,
			"updated_at":        time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// FormOptions 表单下拉选项
func (s *JobService) FormOptions(ctx context.Context) (*FormOptions, error) {
	divisions, err := s.repos.Division.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list divisions: %w", err)
	}
	users, err := s.repos.User.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	machines, err := s.repos.Machine.FindAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	materials, err := s.repos.Material.FindAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}

	opts := &FormOptions{
		Divisions: divisions,
		Users:     users,
		Machines:  make([]MachineOption, 0, len(machines)),
		Materials: make([]MaterialOption, 0, len(materials)),
	}
	for _, m := range machines {
		opts.Machines = append(opts.Machines, MachineOption{
			ID:            m.ID,
			MachineName:   m.MachineName,
			AssetID:       m.AssetID,
			CurrentStatus: m.CurrentStatus,
		})
	}
	for _, m := range materials {
		opts.Materials = append(opts.Materials, MaterialOption{
			ID:              m.ID,
			MaterialName:    m.MaterialName,
			SKU:             m.SKU,
			UOM:             m.UOM,
			CurrentQuantity: m.CurrentQuantity,
		})
	}
	return opts, nil
}

// Seed replaces every job with perSchedule test jobs per schedule type.
func (s *JobService) Seed(ctx context.Context, userID string, perSchedule int) (int, error) {
	return SeedJobs(ctx, s.repos, userID, perSchedule, time.Now())
}

// cleanList trims entries and drops blanks and duplicates, keeping order.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
