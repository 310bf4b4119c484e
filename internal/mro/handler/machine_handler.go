package handler

import (
	"mime/multipart"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/service"
	"github.com/gin-gonic/gin"
)

// MachineHandler 设备处理器
type MachineHandler struct {
	svc *service.MachineService
}

func NewMachineHandler(svc *service.MachineService) *MachineHandler {
	return &MachineHandler{svc: svc}
}

type machineStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListMachines 设备列表 + 统计
// GET /machines?status=xxx&criticality=xxx&tag=xxx&search=xxx
func (h *MachineHandler) ListMachines(c *gin.Context) {
	filters := map[string]string{
		"status":      c.Query("status"),
		"criticality": c.Query("criticality"),
		"tag":         c.Query("tag"),
		"search":      c.Query("search"),
	}
	list, err := h.svc.List(c.Request.Context(), filters)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, list)
}

// CreateMachine 创建设备（multipart，附件字段 attachments）
// POST /machines
func (h *MachineHandler) CreateMachine(c *gin.Context) {
	var req service.CreateMachineRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	var headers []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		headers = form.File["attachments"]
	}

	uploads := make([]*service.Upload, 0, len(headers))
	for _, fh := range headers {
		if fh.Size == 0 {
			continue
		}
		up, f, err := openUpload(fh)
		if err != nil {
			BadRequest(c, "Cannot read attachment: "+err.Error())
			return
		}
		defer f.Close()
		uploads = append(uploads, up)
	}

	res, err := h.svc.Create(c.Request.Context(), GetActor(c), &req, uploads)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, res)
}

// GetMachine 设备详情
// GET /machines/:id
func (h *MachineHandler) GetMachine(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	details, err := h.svc.Details(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, details)
}

// UpdateStatus 更新设备状态
// PUT /machines/:id/status
func (h *MachineHandler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req machineStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"id": id, "current_status": req.Status})
}
