package handler

import (
	"github.com/Rithish-Sripaul/mro-system/internal/mro/service"
	"github.com/gin-gonic/gin"
)

// ProcurementHandler 采购记录处理器
type ProcurementHandler struct {
	svc *service.ProcurementService
}

func NewProcurementHandler(svc *service.ProcurementService) *ProcurementHandler {
	return &ProcurementHandler{svc: svc}
}

// ListProcurements 采购记录列表
// GET /inventory/procurements?supplier=xxx&material_id=xxx&search=xxx
func (h *ProcurementHandler) ListProcurements(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"supplier":    c.Query("supplier"),
		"material_id": c.Query("material_id"),
		"search":      c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		handleError(c, err)
		return
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages(total, pageSize),
		},
	})
}

// CreateProcurement 记录采购并入库
// POST /inventory/procurements
func (h *ProcurementHandler) CreateProcurement(c *gin.Context) {
	var req service.ProcurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	rec, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, rec)
}

// GetProcurement 采购记录详情
// GET /inventory/procurements/:id
func (h *ProcurementHandler) GetProcurement(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, rec)
}

// UpdateProcurement 编辑采购记录，按差额调整库存
// PUT /inventory/procurements/:id
func (h *ProcurementHandler) UpdateProcurement(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.ProcurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	rec, err := h.svc.Update(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, rec)
}

// DeleteProcurement 删除采购记录并冲回库存
// DELETE /inventory/procurements/:id
func (h *ProcurementHandler) DeleteProcurement(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// UploadBill 上传票据
// POST /inventory/procurements/:id/bill
func (h *ProcurementHandler) UploadBill(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("bill")
	if err != nil {
		BadRequest(c, "bill file is required")
		return
	}
	up, f, err := openUpload(fh)
	if err != nil {
		BadRequest(c, "Cannot read bill: "+err.Error())
		return
	}
	defer f.Close()

	rec, err := h.svc.AttachBill(c.Request.Context(), id, up, GetActor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, rec)
}

// DownloadBill 下载票据
// GET /inventory/procurements/:id/bill
func (h *ProcurementHandler) DownloadBill(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	meta, body, err := h.svc.Bill(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	serveFile(c, body, meta.Size, meta.ContentType, meta.OriginalFilename, false)
}
