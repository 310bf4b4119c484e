package repository

import (
	"context"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"gorm.io/gorm"
)

// MachineRepository 设备仓库
type MachineRepository struct {
	db *gorm.DB
}

func NewMachineRepository(db *gorm.DB) *MachineRepository {
	return &MachineRepository{db: db}
}

// FindAll 设备列表
func (r *MachineRepository) FindAll(ctx context.Context, filters map[string]string) ([]entity.Machine, error) {
	var items []entity.Machine
	query := r.db.WithContext(ctx).Model(&entity.Machine{})

	if status := filters["status"]; status != "" {
		query = query.Where("current_status = ?", status)
	}
	if criticality := filters["criticality"]; criticality != "" {
		query = query.Where("criticality = ?", criticality)
	}
	if tag := filters["tag"]; tag != "" {
		query = query.Where("tags @> ?", jsonArray(tag))
	}
	if search := filters["search"]; search != "" {
		query = query.Where("machine_name ILIKE ? OR asset_id ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	err := query.Order("created_at DESC").Find(&items).Error
	return items, err
}

func (r *MachineRepository) FindByID(ctx context.Context, id string) (*entity.Machine, error) {
	var m entity.Machine
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// DistinctTags 所有设备标签
func (r *MachineRepository) DistinctTags(ctx context.Context) ([]string, error) {
	var tags []string
	err := r.db.WithContext(ctx).
		Raw("SELECT DISTINCT jsonb_array_elements_text(tags) AS tag FROM machines WHERE jsonb_typeof(tags) = 'array' ORDER BY tag").
		Scan(&tags).Error
	return tags, err
}

func (r *MachineRepository) Create(ctx context.Context, m *entity.Machine) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// UpdateStatus 更新设备状态
func (r *MachineRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result := r.db.WithContext(ctx).Model(&entity.Machine{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"current_status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustOperations changes number_of_operations by delta.
func (r *MachineRepository) AdjustOperations(ctx context.Context, id string, delta int) error {
	result := r.db.WithContext(ctx).Model(&entity.Machine{}).
		Where("id = ?", id).
		UpdateColumn("number_of_operations", gorm.Expr("number_of_operations + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendFile adds an attachment id to the machine's file list.
func (r *MachineRepository) AppendFile(ctx context.Context, id, fileID string) error {
	result := r.db.WithContext(ctx).Model(&entity.Machine{}).
		Where("id = ?", id).
		UpdateColumn("file_metadata_ids", gorm.Expr("COALESCE(NULLIF(file_metadata_ids, 'null'::jsonb), '[]'::jsonb) || ?::jsonb", jsonArray(fileID)))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
