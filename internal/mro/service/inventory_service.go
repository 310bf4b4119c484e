package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/Rithish-Sripaul/mro-system/internal/shared/blobstore"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InventoryService 原材料库存服务
type InventoryService struct {
	repos *repository.Repositories
	files *FileService
	log   *zap.Logger
}

func NewInventoryService(repos *repository.Repositories, files *FileService, log *zap.Logger) *InventoryService {
	return &InventoryService{repos: repos, files: files, log: log}
}

// CreateMaterialRequest 创建原材料请求（multipart 表单）
type CreateMaterialRequest struct {
	MaterialName    string   `form:"material_name" json:"material_name"`
	SKU             string   `form:"sku" json:"sku"`
	Description     string   `form:"description" json:"description"`
	UOM             string   `form:"uom" json:"uom"`
	CurrentQuantity float64  `form:"current_quantity" json:"current_quantity" binding:"gte=0"`
	ReorderLevel    float64  `form:"reorder_level" json:"reorder_level" binding:"gte=0"`
	Categories      []string `form:"categories" json:"categories"`
	Suppliers       []string `form:"suppliers" json:"suppliers"`
}

// UpdateMaterialRequest 更新原材料描述信息；数量只能通过采购和工序变动
type UpdateMaterialRequest struct {
	MaterialName *string  `json:"material_name"`
	Description  *string  `json:"description"`
	UOM          *string  `json:"uom"`
	ReorderLevel *float64 `json:"reorder_level" binding:"omitempty,gte=0"`
	Categories   []string `json:"categories"`
	Suppliers    []string `json:"suppliers"`
}

// StockStats 库存统计
type StockStats struct {
	Total             int `json:"total"`
	InStock           int `json:"in_stock"`
	OutOfStock        int `json:"out_of_stock"`
	BelowReorderLevel int `json:"below_reorder_level"`
	AboveReorderLevel int `json:"above_reorder_level"`
}

// FilterOptions 列表筛选项
type FilterOptions struct {
	Categories []entity.MaterialCategory `json:"categories"`
	Suppliers  []entity.MaterialSupplier `json:"suppliers"`
	UOMs       []string                  `json:"uoms"`
}

// MaterialList is the inventory page payload.
type MaterialList struct {
	Items   []entity.RawMaterial `json:"items"`
	Stats   StockStats           `json:"stats"`
	Options *FilterOptions       `json:"options"`
}

// ComputeStockStats counts materials by stock level.
func ComputeStockStats(items []entity.RawMaterial) StockStats {
	stats := StockStats{Total: len(items)}
	for _, m := range items {
		if m.CurrentQuantity > 0 {
			stats.InStock++
		} else {
			stats.OutOfStock++
		}
		if m.CurrentQuantity <= m.ReorderLevel {
			stats.BelowReorderLevel++
		} else {
			stats.AboveReorderLevel++
		}
	}
	return stats
}

// Create registers a raw material. The optional image is stored first and
// removed again if the material cannot be saved.
func (s *InventoryService) Create(ctx context.Context, actor Actor, req *CreateMaterialRequest, image *Upload) (*entity.RawMaterial, error) {
	name := strings.TrimSpace(req.MaterialName)
	sku := strings.TrimSpace(req.SKU)
	uom := strings.TrimSpace(req.UOM)
	if name == "" || sku == "" || uom == "" {
		return nil, fmt.Errorf("%w: material_name, sku and uom are required", ErrInvalidInput)
	}
	if image != nil && !strings.HasPrefix(strings.ToLower(image.ContentType), "image/") {
		return nil, ErrInvalidImage
	}

	if _, err := s.repos.Material.FindBySKU(ctx, sku); err == nil {
		return nil, ErrDuplicateSKU
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check sku: %w", err)
	}

	now := time.Now()
	material := &entity.RawMaterial{
		ID:              uuid.New().String(),
		MaterialName:    name,
		SKU:             sku,
		Description:     req.Description,
		UOM:             uom,
		CurrentQuantity: req.CurrentQuantity,
		ReorderLevel:    req.ReorderLevel,
		Categories:      cleanList(req.Categories),
		Suppliers:       cleanList(req.Suppliers),
		LastStockedOn:   &now,
		CreatedBy:       actor.UserID,
	}

	var imageMeta *entity.FileMetadata
	if image != nil {
		meta, err := s.files.Store(ctx, entity.ContextMaterialImage, material.ID, image, actor, nil)
		if err != nil {
			return nil, fmt.Errorf("store image: %w", err)
		}
		imageMeta = meta
		material.ImageID = &meta.ID
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Material.Create(ctx, material); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateSKU
			}
			return fmt.Errorf("create material: %w", err)
		}
		return tallyNames(ctx, tx, material.Categories, material.Suppliers)
	})
	if err != nil {
		if imageMeta != nil {
			if derr := s.files.Delete(context.Background(), imageMeta); derr != nil {
				s.log.Warn("Failed to clean up material image", zap.String("file_id", imageMeta.ID), zap.Error(derr))
			}
		}
		return nil, err
	}
	return material, nil
}

// List returns filtered materials with stats over the whole inventory.
func (s *InventoryService) List(ctx context.Context, filters map[string]string) (*MaterialList, error) {
	all, err := s.repos.Material.FindAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	items := all
	if hasFilter(filters) {
		items, err = s.repos.Material.FindAll(ctx, filters)
		if err != nil {
			return nil, fmt.Errorf("list materials: %w", err)
		}
	}
	opts, err := s.Options(ctx)
	if err != nil {
		return nil, err
	}
	return &MaterialList{Items: items, Stats: ComputeStockStats(all), Options: opts}, nil
}

// Options 分类、供应商、单位筛选项
func (s *InventoryService) Options(ctx context.Context) (*FilterOptions, error) {
	categories, err := s.repos.Material.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	suppliers, err := s.repos.Material.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	uoms, err := s.repos.Material.DistinctUOMs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list uoms: %w", err)
	}
	return &FilterOptions{Categories: categories, Suppliers: suppliers, UOMs: uoms}, nil
}

// Get 原材料详情（含预留）
func (s *InventoryService) Get(ctx context.Context, id string) (*entity.RawMaterial, error) {
	m, err := s.repos.Material.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrMaterialNotFound)
	}
	return m, nil
}

// Update 更新原材料；新增的分类/供应商计入计数
func (s *InventoryService) Update(ctx context.Context, id string, req *UpdateMaterialRequest) (*entity.RawMaterial, error) {
	var material *entity.RawMaterial
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		locked, err := tx.Material.LockByIDs(ctx, []string{id})
		if err != nil {
			return fmt.Errorf("lock material: %w", err)
		}
		m, ok := locked[id]
		if !ok {
			return ErrMaterialNotFound
		}

		if req.MaterialName != nil {
			name := strings.TrimSpace(*req.MaterialName)
			if name == "" {
				return fmt.Errorf("%w: material_name cannot be empty", ErrInvalidInput)
			}
			m.MaterialName = name
		}
		if req.UOM != nil {
			uom := strings.TrimSpace(*req.UOM)
			if uom == "" {
				return fmt.Errorf("%w: uom cannot be empty", ErrInvalidInput)
			}
			m.UOM = uom
		}
		if req.Description != nil {
			m.Description = *req.Description
		}
		if req.ReorderLevel != nil {
			m.ReorderLevel = *req.ReorderLevel
		}

		var newCategories, newSuppliers []string
		if req.Categories != nil {
			cats := cleanList(req.Categories)
			newCategories = added(m.Categories, cats)
			m.Categories = cats
		}
		if req.Suppliers != nil {
			sups := cleanList(req.Suppliers)
			newSuppliers = added(m.Suppliers, sups)
			m.Suppliers = sups
		}

		if err := tx.Material.Update(ctx, m); err != nil {
			return fmt.Errorf("update material: %w", err)
		}
		material = m
		return tallyNames(ctx, tx, newCategories, newSuppliers)
	})
	if err != nil {
		return nil, err
	}
	return material, nil
}

// LowStock 低于再订货点的原材料
func (s *InventoryService) LowStock(ctx context.Context) ([]entity.RawMaterial, error) {
	return s.repos.Material.FindLowStock(ctx)
}

// Image opens the material's image.
func (s *InventoryService) Image(ctx context.Context, fileID string) (*entity.FileMetadata, *blobstore.Object, error) {
	return s.files.Open(ctx, entity.ContextMaterialImage, fileID)
}

var materialExportHeaders = []string{
	"SKU", "Material", "UoM", "Current Qty", "In Use", "Reorder Level",
	"Categories", "Suppliers", "Last Stocked", "Description",
}

// ExportXLSX 导出原材料为xlsx
func (s *InventoryService) ExportXLSX(ctx context.Context, filters map[string]string) (*excelize.File, string, error) {
	items, err := s.repos.Material.FindAll(ctx, filters)
	if err != nil {
		return nil, "", fmt.Errorf("list materials: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Raw Materials"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	lowStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "C00000"},
	})

	for i, h := range materialExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for rowIdx, m := range items {
		row := rowIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), m.SKU)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), m.MaterialName)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), m.UOM)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), m.CurrentQuantity)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), m.InUseQuantity)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), m.ReorderLevel)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), strings.Join(m.Categories, ", "))
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), strings.Join(m.Suppliers, ", "))
		if m.LastStockedOn != nil {
			f.SetCellValue(sheet, fmt.Sprintf("I%d", row), m.LastStockedOn.Format("2006-01-02"))
		}
		f.SetCellValue(sheet, fmt.Sprintf("J%d", row), m.Description)
		if m.CurrentQuantity <= m.ReorderLevel {
			f.SetCellStyle(sheet, fmt.Sprintf("D%d", row), fmt.Sprintf("D%d", row), lowStyle)
		}
	}

	colWidths := []float64{14, 28, 8, 12, 10, 14, 24, 24, 14, 40}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("raw_materials_%s.xlsx", time.Now().Format("20060102"))
	return f, filename, nil
}

func tallyNames(ctx context.Context, tx *repository.Repositories, categories, suppliers []string) error {
	for _, c := range categories {
		if err := tx.Material.IncrementCategory(ctx, c); err != nil {
			return fmt.Errorf("tally category %s: %w", c, err)
		}
	}
	for _, sup := range suppliers {
		if err := tx.Material.IncrementSupplier(ctx, sup); err != nil {
			return fmt.Errorf("tally supplier %s: %w", sup, err)
		}
	}
	return nil
}

// added returns the entries of next that are not in prev.
func added(prev, next []string) []string {
	seen := make(map[string]struct{}, len(prev))
	for _, p := range prev {
		seen[p] = struct{}{}
	}
	var out []string
	for _, n := range next {
		if _, ok := seen[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

func hasFilter(filters map[string]string) bool {
	for _, v := range filters {
		if v != "" {
			return true
		}
	}
	return false
}
