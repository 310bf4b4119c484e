package repository

import (
	"context"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"gorm.io/gorm"
)

// OperationRepository 工序仓库
type OperationRepository struct {
	db *gorm.DB
}

func NewOperationRepository(db *gorm.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

func (r *OperationRepository) FindByID(ctx context.Context, id string) (*entity.Operation, error) {
	var op entity.Operation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&op).Error; err != nil {
		return nil, translate(err)
	}
	return &op, nil
}

// FindByIDForUpdate locks the operation row for the rest of the transaction.
func (r *OperationRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Operation, error) {
	var op entity.Operation
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("id = ?", id).First(&op).Error; err != nil {
		return nil, translate(err)
	}
	return &op, nil
}

// ListByJob 工单下的工序
func (r *OperationRepository) ListByJob(ctx context.Context, jobID string) ([]entity.Operation, error) {
	var ops []entity.Operation
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("operation_position ASC, created_at ASC").
		Find(&ops).Error
	return ops, err
}

// ListByMachine 设备上分配的工序
func (r *OperationRepository) ListByMachine(ctx context.Context, machineID string) ([]entity.Operation, error) {
	var ops []entity.Operation
	err := r.db.WithContext(ctx).
		Where("assigned_machine = ?", machineID).
		Order("created_at DESC").
		Find(&ops).Error
	return ops, err
}

// MaxPosition returns the highest operation_position under a job, 0 when empty.
func (r *OperationRepository) MaxPosition(ctx context.Context, jobID string) (int, error) {
	var pos int
	err := r.db.WithContext(ctx).Model(&entity.Operation{}).
		Select("COALESCE(MAX(operation_position), 0)").
		Where("job_id = ?", jobID).
		Scan(&pos).Error
	return pos, err
}

// CountByStatus counts a job's operations in the given status.
func (r *OperationRepository) CountByStatus(ctx context.Context, jobID, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Operation{}).
		Where("job_id = ? AND status = ?", jobID, status).
		Count(&count).Error
	return count, err
}

// Count counts every operation.
func (r *OperationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Operation{}).Count(&count).Error
	return count, err
}

func (r *OperationRepository) Create(ctx context.Context, op *entity.Operation) error {
	return r.db.WithContext(ctx).Create(op).Error
}

func (r *OperationRepository) Update(ctx context.Context, op *entity.Operation) error {
	return r.db.WithContext(ctx).Save(op).Error
}

func (r *OperationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Operation{}).Error
}
