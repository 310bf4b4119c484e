package repository

import (
	"context"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"gorm.io/gorm"
)

// ProcurementRepository 采购记录仓库
type ProcurementRepository struct {
	db *gorm.DB
}

func NewProcurementRepository(db *gorm.DB) *ProcurementRepository {
	return &ProcurementRepository{db: db}
}

// FindAll 查询采购记录列表
func (r *ProcurementRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProcurementRecord, int64, error) {
	var items []entity.ProcurementRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ProcurementRecord{})

	if supplier := filters["supplier"]; supplier != "" {
		query = query.Where("supplier = ?", supplier)
	}
	if materialID := filters["material_id"]; materialID != "" {
		query = query.Where("items @> ?", `[{"material_id":"`+materialID+`"}]`)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("bill_number ILIKE ? OR supplier ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("bill_date DESC NULLS LAST, created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

func (r *ProcurementRepository) FindByID(ctx context.Context, id string) (*entity.ProcurementRecord, error) {
	var rec entity.ProcurementRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// FindByIDForUpdate locks the record for the rest of the transaction.
func (r *ProcurementRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.ProcurementRecord, error) {
	var rec entity.ProcurementRecord
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (r *ProcurementRepository) Create(ctx context.Context, rec *entity.ProcurementRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *ProcurementRepository) Update(ctx context.Context, rec *entity.ProcurementRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *ProcurementRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.ProcurementRecord{}).Error
}
