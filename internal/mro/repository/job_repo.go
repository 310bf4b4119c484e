package repository

import (
	"context"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"gorm.io/gorm"
)

// JobRepository 工单仓库
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// FindByID 查找工单（含工序）
func (r *JobRepository) FindByID(ctx context.Context, id string) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).
		Preload("Operations", func(db *gorm.DB) *gorm.DB {
			return db.Order("operation_position ASC, created_at ASC")
		}).
		Where("id = ?", id).
		First(&job).Error
	if err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

// FindByIDForUpdate locks the job row for the rest of the transaction.
func (r *JobRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

// FindAll 按排程类型列出工单
func (r *JobRepository) FindAll(ctx context.Context, filters map[string]string) ([]entity.Job, error) {
	var jobs []entity.Job
	query := r.db.WithContext(ctx).Model(&entity.Job{})

	if scheduleType := filters["schedule_type"]; scheduleType != "" {
		query = query.Where("schedule_type = ?", scheduleType)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("job_name ILIKE ?", "%"+search+"%")
	}

	err := query.Order("schedule_type ASC, schedule_position ASC").Find(&jobs).Error
	return jobs, err
}

// CountBySchedule 统计排程内工单数
func (r *JobRepository) CountBySchedule(ctx context.Context, scheduleType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Job{}).
		Where("schedule_type = ?", scheduleType).
		Count(&count).Error
	return count, err
}

// LockSchedule serializes position changes within one schedule type until the
// surrounding transaction ends.
func (r *JobRepository) LockSchedule(ctx context.Context, scheduleType string) error {
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "jobs:"+scheduleType).Error
}

// ShiftFrom moves every job at or after position by delta.
func (r *JobRepository) ShiftFrom(ctx context.Context, scheduleType string, position, delta int) error {
	return r.db.WithContext(ctx).Model(&entity.Job{}).
		Where("schedule_type = ? AND schedule_position >= ?", scheduleType, position).
		UpdateColumn("schedule_position", gorm.Expr("schedule_position + ?", delta)).Error
}

// ShiftRange moves jobs with from <= position <= to by delta.
func (r *JobRepository) ShiftRange(ctx context.Context, scheduleType string, from, to, delta int) error {
	return r.db.WithContext(ctx).Model(&entity.Job{}).
		Where("schedule_type = ? AND schedule_position BETWEEN ? AND ?", scheduleType, from, to).
		UpdateColumn("schedule_position", gorm.Expr("schedule_position + ?", delta)).Error
}

// Positions returns the ordered positions of a schedule type.
func (r *JobRepository) Positions(ctx context.Context, scheduleType string) ([]int, error) {
	var positions []int
	err := r.db.WithContext(ctx).Model(&entity.Job{}).
		Where("schedule_type = ?", scheduleType).
		Order("schedule_position ASC").
		Pluck("schedule_position", &positions).Error
	return positions, err
}

// Create 创建工单
func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// UpdateFields 更新指定字段
func (r *JobRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&entity.Job{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every job; used by the seed command.
func (r *JobRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&entity.Job{}).Error
}

// CreateBatch 批量创建
func (r *JobRepository) CreateBatch(ctx context.Context, jobs []entity.Job) error {
	return r.db.WithContext(ctx).CreateInBatches(jobs, 50).Error
}
