package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/metrics"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcurementService 采购记录服务：入库并与原材料数量对账
type ProcurementService struct {
	repos *repository.Repositories
	files *FileService
	log   *zap.Logger
}

func NewProcurementService(repos *repository.Repositories, files *FileService, log *zap.Logger) *ProcurementService {
	return &ProcurementService{repos: repos, files: files, log: log}
}

// ProcurementItemInput 采购行项
type ProcurementItemInput struct {
	MaterialID string          `json:"material_id" binding:"required"`
	Quantity   float64         `json:"quantity" binding:"required,gt=0"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// ProcurementRequest 创建/编辑采购记录请求
type ProcurementRequest struct {
	Supplier   string                 `json:"supplier" binding:"required,max=128"`
	BillNumber string                 `json:"bill_number" binding:"max=64"`
	BillDate   *time.Time             `json:"bill_date"`
	Items      []ProcurementItemInput `json:"items" binding:"required,min=1,dive"`
	Notes      string                 `json:"notes"`
}

// StockDelta is a net quantity change for one material.
type StockDelta struct {
	MaterialID string
	Delta      float64
}

// ReconcileDeltas computes the per-material change that takes stock from the
// old items to the new ones. Materials whose net change is zero are omitted.
func ReconcileDeltas(oldItems, newItems []entity.ProcurementItem) []StockDelta {
	net := make(map[string]float64)
	for _, it := range oldItems {
		net[it.MaterialID] -= it.Quantity
	}
	for _, it := range newItems {
		net[it.MaterialID] += it.Quantity
	}

	deltas := make([]StockDelta, 0, len(net))
	for id, d := range net {
		if d == 0 {
			continue
		}
		deltas = append(deltas, StockDelta{MaterialID: id, Delta: d})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].MaterialID < deltas[j].MaterialID })
	return deltas
}

// TotalAmount sums quantity x unit price over the items.
func TotalAmount(items []entity.ProcurementItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Quantity).Mul(it.UnitPrice))
	}
	return total.Round(2)
}

func toItems(inputs []ProcurementItemInput) ([]entity.ProcurementItem, error) {
	items := make([]entity.ProcurementItem, 0, len(inputs))
	for _, in := range inputs {
		id := strings.TrimSpace(in.MaterialID)
		if id == "" {
			return nil, fmt.Errorf("%w: material_id is required", ErrInvalidInput)
		}
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for material %s must be positive", ErrInvalidInput, id)
		}
		if in.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: unit_price for material %s cannot be negative", ErrInvalidInput, id)
		}
		items = append(items, entity.ProcurementItem{MaterialID: id, Quantity: in.Quantity, UnitPrice: in.UnitPrice})
	}
	return items, nil
}

// Create records a purchase and adds its quantities to stock.
func (s *ProcurementService) Create(ctx context.Context, userID string, req *ProcurementRequest) (*entity.ProcurementRecord, error) {
	items, err := toItems(req.Items)
	if err != nil {
		return nil, err
	}
	supplier := strings.TrimSpace(req.Supplier)
	if supplier == "" {
		return nil, fmt.Errorf("%w: supplier is required", ErrInvalidInput)
	}

	rec := &entity.ProcurementRecord{
		ID:          uuid.New().String(),
		Supplier:    supplier,
		BillNumber:  strings.TrimSpace(req.BillNumber),
		BillDate:    req.BillDate,
		Items:       items,
		TotalAmount: TotalAmount(items),
		Notes:       req.Notes,
		CreatedBy:   userID,
	}

	deltas := ReconcileDeltas(nil, items)
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := applyDeltas(ctx, tx, deltas); err != nil {
			return err
		}
		return tx.Procurement.Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordStockAdjustment("procure", len(deltas))
	return rec, nil
}

// Update replaces the record's items, applying only the net per-material
// difference between the old and new items.
func (s *ProcurementService) Update(ctx context.Context, id string, req *ProcurementRequest) (*entity.ProcurementRecord, error) {
	items, err := toItems(req.Items)
	if err != nil {
		return nil, err
	}
	supplier := strings.TrimSpace(req.Supplier)
	if supplier == "" {
		return nil, fmt.Errorf("%w: supplier is required", ErrInvalidInput)
	}

	var rec *entity.ProcurementRecord
	var applied int
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		rec, err = tx.Procurement.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrProcurementNotFound)
		}

		deltas := ReconcileDeltas(rec.Items, items)
		if err := applyDeltas(ctx, tx, deltas); err != nil {
			return err
		}
		applied = len(deltas)

		rec.Supplier = supplier
		rec.BillNumber = strings.TrimSpace(req.BillNumber)
		rec.BillDate = req.BillDate
		rec.Items = items
		rec.TotalAmount = TotalAmount(items)
		rec.Notes = req.Notes
		return tx.Procurement.Update(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordStockAdjustment("procure", applied)
	return rec, nil
}

// Delete reverses every item of the record and removes it.
func (s *ProcurementService) Delete(ctx context.Context, id string) error {
	var reversed int
	var billID *string
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		rec, err := tx.Procurement.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrProcurementNotFound)
		}
		deltas := ReconcileDeltas(rec.Items, nil)
		if err := applyDeltas(ctx, tx, deltas); err != nil {
			return err
		}
		reversed = len(deltas)
		billID = rec.BillFileID
		return tx.Procurement.Delete(ctx, rec.ID)
	})
	if err != nil {
		return err
	}
	metrics.RecordStockAdjustment("procure_reverse", reversed)

	if billID != nil {
		if meta, err := s.repos.File.FindByID(ctx, *billID); err == nil {
			if err := s.files.Delete(ctx, meta); err != nil {
				s.log.Warn("Failed to delete procurement bill", zap.String("file_id", *billID), zap.Error(err))
			}
		}
	}
	return nil
}

// AttachBill stores the bill document and links it to the record.
func (s *ProcurementService) AttachBill(ctx context.Context, id string, up *Upload, actor Actor) (*entity.ProcurementRecord, error) {
	rec, err := s.repos.Procurement.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProcurementNotFound)
	}
	previous := rec.BillFileID

	meta, err := s.files.Store(ctx, entity.ContextProcurementBill, rec.ID, up, actor, func(ctx context.Context, tx *repository.Repositories, meta *entity.FileMetadata) error {
		locked, err := tx.Procurement.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrProcurementNotFound)
		}
		locked.BillFileID = &meta.ID
		rec = locked
		return tx.Procurement.Update(ctx, locked)
	})
	if err != nil {
		return nil, err
	}
	rec.BillFileID = &meta.ID

	if previous != nil {
		if old, err := s.repos.File.FindByID(ctx, *previous); err == nil {
			if err := s.files.Delete(ctx, old); err != nil {
				s.log.Warn("Failed to delete replaced bill", zap.String("file_id", *previous), zap.Error(err))
			}
		}
	}
	return rec, nil
}

// Bill opens the bill document of a record.
func (s *ProcurementService) Bill(ctx context.Context, id string) (*entity.FileMetadata, io.ReadCloser, error) {
	rec, err := s.repos.Procurement.FindByID(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, ErrProcurementNotFound)
	}
	if rec.BillFileID == nil {
		return nil, nil, ErrFileNotFound
	}
	meta, obj, err := s.files.Open(ctx, entity.ContextProcurementBill, *rec.BillFileID)
	if err != nil {
		return nil, nil, err
	}
	return meta, obj.Body, nil
}

// List 采购记录列表
func (s *ProcurementService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProcurementRecord, int64, error) {
	return s.repos.Procurement.FindAll(ctx, page, pageSize, filters)
}

// Get 采购记录详情
func (s *ProcurementService) Get(ctx context.Context, id string) (*entity.ProcurementRecord, error) {
	rec, err := s.repos.Procurement.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProcurementNotFound)
	}
	return rec, nil
}

// applyDeltas locks the affected materials in id order and applies each net
// change. Positive changes stamp last_stocked_on.
func applyDeltas(ctx context.Context, tx *repository.Repositories, deltas []StockDelta) error {
	ids := make([]string, 0, len(deltas))
	for _, d := range deltas {
		ids = append(ids, d.MaterialID)
	}
	materials, err := tx.Material.LockByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("lock materials: %w", err)
	}
	for _, d := range deltas {
		if _, ok := materials[d.MaterialID]; !ok {
			return fmt.Errorf("%w: %s", ErrMaterialNotFound, d.MaterialID)
		}
		if err := tx.Material.Adjust(ctx, d.MaterialID, d.Delta, 0, d.Delta > 0); err != nil {
			return fmt.Errorf("adjust material %s: %w", d.MaterialID, err)
		}
	}
	return nil
}
