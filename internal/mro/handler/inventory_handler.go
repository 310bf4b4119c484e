package handler

import (
	"fmt"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/service"
	"github.com/gin-gonic/gin"
)

// InventoryHandler 原材料处理器
type InventoryHandler struct {
	svc *service.InventoryService
}

func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

func materialFilters(c *gin.Context) map[string]string {
	return map[string]string{
		"category": c.Query("category"),
		"supplier": c.Query("supplier"),
		"uom":      c.Query("uom"),
		"search":   c.Query("search"),
	}
}

// ListMaterials 原材料列表 + 统计
// GET /inventory/raw-materials?category=xxx&supplier=xxx&uom=xxx&search=xxx
func (h *InventoryHandler) ListMaterials(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), materialFilters(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, list)
}

// CreateMaterial 创建原材料（multipart，可带图片）
// POST /inventory/raw-materials
func (h *InventoryHandler) CreateMaterial(c *gin.Context) {
	var req service.CreateMaterialRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	var image *service.Upload
	if fh, err := c.FormFile("image"); err == nil && fh.Size > 0 {
		up, f, err := openUpload(fh)
		if err != nil {
			BadRequest(c, "Cannot read image: "+err.Error())
			return
		}
		defer f.Close()
		image = up
	}

	m, err := h.svc.Create(c.Request.Context(), GetActor(c), &req, image)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, m)
}

// Options 筛选项
// GET /inventory/raw-materials/options
func (h *InventoryHandler) Options(c *gin.Context) {
	opts, err := h.svc.Options(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, opts)
}

// LowStock 低库存
// GET /inventory/raw-materials/low-stock
func (h *InventoryHandler) LowStock(c *gin.Context) {
	items, err := h.svc.LowStock(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// Export 导出xlsx
// GET /inventory/raw-materials/export
func (h *InventoryHandler) Export(c *gin.Context) {
	f, filename, err := h.svc.ExportXLSX(c.Request.Context(), materialFilters(c))
	if err != nil {
		handleError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := f.Write(c.Writer); err != nil {
		c.Error(err)
	}
}

// GetMaterial 原材料详情
// GET /inventory/raw-materials/:id
func (h *InventoryHandler) GetMaterial(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	m, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, m)
}

// UpdateMaterial 更新原材料
// PUT /inventory/raw-materials/:id
func (h *InventoryHandler) UpdateMaterial(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	m, err := h.svc.Update(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, m)
}

// Image 原材料图片（公开，可缓存）
// GET /inventory/image/:id
func (h *InventoryHandler) Image(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	meta, obj, err := h.svc.Image(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	serveFile(c, obj.Body, obj.Size, meta.ContentType, meta.OriginalFilename, true)
}
