package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaterialRepository 原材料仓库（含预留与分类/供应商计数）
type MaterialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// FindByID 查找原材料（含预留记录）
func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*entity.RawMaterial, error) {
	var m entity.RawMaterial
	err := r.db.WithContext(ctx).
		Preload("Reservations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// FindBySKU 按SKU查找
func (r *MaterialRepository) FindBySKU(ctx context.Context, sku string) (*entity.RawMaterial, error) {
	var m entity.RawMaterial
	if err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// LockByIDs loads and row-locks the given materials ordered by id so concurrent
// transactions acquire locks in the same order.
func (r *MaterialRepository) LockByIDs(ctx context.Context, ids []string) (map[string]*entity.RawMaterial, error) {
	result := make(map[string]*entity.RawMaterial, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var materials []entity.RawMaterial
	err := r.db.WithContext(ctx).
		Clauses(forUpdate()).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&materials).Error
	if err != nil {
		return nil, err
	}
	for i := range materials {
		result[materials[i].ID] = &materials[i]
	}
	return result, nil
}

// FindAll 原材料列表，按最近入库时间倒序
func (r *MaterialRepository) FindAll(ctx context.Context, filters map[string]string) ([]entity.RawMaterial, error) {
	var items []entity.RawMaterial
	query := r.db.WithContext(ctx).Model(&entity.RawMaterial{})

	if category := filters["category"]; category != "" {
		query = query.Where("categories @> ?", jsonArray(category))
	}
	if supplier := filters["supplier"]; supplier != "" {
		query = query.Where("suppliers @> ?", jsonArray(supplier))
	}
	if uom := filters["uom"]; uom != "" {
		query = query.Where("uom = ?", uom)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("material_name ILIKE ? OR sku ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	err := query.Order("last_stocked_on DESC NULLS LAST, created_at DESC").Find(&items).Error
	return items, err
}

// FindLowStock returns materials at or below their reorder level.
func (r *MaterialRepository) FindLowStock(ctx context.Context) ([]entity.RawMaterial, error) {
	var items []entity.RawMaterial
	err := r.db.WithContext(ctx).
		Where("current_quantity <= reorder_level").
		Order("current_quantity - reorder_level ASC").
		Find(&items).Error
	return items, err
}

// DistinctUOMs 已使用的计量单位
func (r *MaterialRepository) DistinctUOMs(ctx context.Context) ([]string, error) {
	var uoms []string
	err := r.db.WithContext(ctx).Model(&entity.RawMaterial{}).
		Distinct("uom").
		Order("uom ASC").
		Pluck("uom", &uoms).Error
	return uoms, err
}

func (r *MaterialRepository) Create(ctx context.Context, m *entity.RawMaterial) error {
	return r.db.WithContext(ctx).Omit("Reservations").Create(m).Error
}

func (r *MaterialRepository) Update(ctx context.Context, m *entity.RawMaterial) error {
	return r.db.WithContext(ctx).Omit("Reservations").Save(m).Error
}

// Adjust applies relative changes to the stock counters of one material.
// stocked also stamps last_stocked_on.
func (r *MaterialRepository) Adjust(ctx context.Context, id string, currentDelta, inUseDelta float64, stocked bool) error {
	fields := map[string]interface{}{
		"current_quantity": gorm.Expr("current_quantity + ?", currentDelta),
		"in_use_quantity":  gorm.Expr("in_use_quantity + ?", inUseDelta),
		"updated_at":       time.Now(),
	}
	if stocked {
		fields["last_stocked_on"] = time.Now()
	}
	result := r.db.WithContext(ctx).Model(&entity.RawMaterial{}).Where("id = ?", id).UpdateColumns(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// === 预留 ===

func (r *MaterialRepository) CreateReservation(ctx context.Context, res *entity.MaterialReservation) error {
	return r.db.WithContext(ctx).Create(res).Error
}

// ReservationsByOperation 工序持有的预留
func (r *MaterialRepository) ReservationsByOperation(ctx context.Context, operationID string) ([]entity.MaterialReservation, error) {
	var items []entity.MaterialReservation
	err := r.db.WithContext(ctx).
		Where("operation_id = ?", operationID).
		Order("material_id ASC").
		Find(&items).Error
	return items, err
}

func (r *MaterialRepository) DeleteReservationsByOperation(ctx context.Context, operationID string) error {
	return r.db.WithContext(ctx).Where("operation_id = ?", operationID).Delete(&entity.MaterialReservation{}).Error
}

// ReservedTotal sums the reservation rows of a material.
func (r *MaterialRepository) ReservedTotal(ctx context.Context, materialID string) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&entity.MaterialReservation{}).
		Select("COALESCE(SUM(required_quantity), 0)").
		Where("material_id = ?", materialID).
		Scan(&total).Error
	return total, err
}

// === 分类 / 供应商计数 ===

// IncrementCategory upserts the tally row for a category.
func (r *MaterialRepository) IncrementCategory(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("raw_material_categories.count + 1")}),
	}).Create(&entity.MaterialCategory{Name: name, Count: 1}).Error
}

// IncrementSupplier upserts the tally row for a supplier.
func (r *MaterialRepository) IncrementSupplier(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("raw_material_suppliers.count + 1")}),
	}).Create(&entity.MaterialSupplier{Name: name, Count: 1}).Error
}

func (r *MaterialRepository) ListCategories(ctx context.Context) ([]entity.MaterialCategory, error) {
	var items []entity.MaterialCategory
	err := r.db.WithContext(ctx).Order("count DESC, name ASC").Find(&items).Error
	return items, err
}

func (r *MaterialRepository) ListSuppliers(ctx context.Context) ([]entity.MaterialSupplier, error) {
	var items []entity.MaterialSupplier
	err := r.db.WithContext(ctx).Order("count DESC, name ASC").Find(&items).Error
	return items, err
}

func jsonArray(values ...string) string {
	b, _ := json.Marshal(values)
	return string(b)
}
