package handler

import (
	"github.com/Rithish-Sripaul/mro-system/internal/mro/service"
	"github.com/gin-gonic/gin"
)

// OperationHandler 工序处理器
type OperationHandler struct {
	svc *service.OperationService
}

func NewOperationHandler(svc *service.OperationService) *OperationHandler {
	return &OperationHandler{svc: svc}
}

// ListOperations 工序列表
// GET /jobs/:id/operations
func (h *OperationHandler) ListOperations(c *gin.Context) {
	jobID, ok := idParam(c, "id")
	if !ok {
		return
	}
	ops, err := h.svc.List(c.Request.Context(), jobID)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": ops})
}

// CreateOperation 创建工序并预留原材料
// POST /jobs/:id/operations
func (h *OperationHandler) CreateOperation(c *gin.Context) {
	jobID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.OperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.svc.Create(c.Request.Context(), jobID, GetUserID(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, res)
}

// GetOperation 工序详情
// GET /jobs/:id/operations/:opId
func (h *OperationHandler) GetOperation(c *gin.Context) {
	jobID, ok := idParam(c, "id")
	if !ok {
		return
	}
	opID, ok := idParam(c, "opId")
	if !ok {
		return
	}
	op, err := h.svc.Get(c.Request.Context(), jobID, opID)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, op)
}

// UpdateOperation 编辑工序，重新预留原材料
// PUT /jobs/:id/operations/:opId
func (h *OperationHandler) UpdateOperation(c *gin.Context) {
	jobID, ok := idParam(c, "id")
	if !ok {
		return
	}
	opID, ok := idParam(c, "opId")
	if !ok {
		return
	}
	var req service.OperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.svc.Update(c.Request.Context(), jobID, opID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, res)
}

// DeleteOperation 删除工序，归还原材料
// DELETE /jobs/:id/operations/:opId
func (h *OperationHandler) DeleteOperation(c *gin.Context) {
	jobID, ok := idParam(c, "id")
	if !ok {
		return
	}
	opID, ok := idParam(c, "opId")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), jobID, opID); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// CompleteOperation 完成工序，消耗预留
// POST /jobs/:id/operations/:opId/complete
func (h *OperationHandler) CompleteOperation(c *gin.Context) {
	jobID, ok := idParam(c, "id")
	if !ok {
		return
	}
	opID, ok := idParam(c, "opId")
	if !ok {
		return
	}
	op, err := h.svc.Complete(c.Request.Context(), jobID, opID)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, op)
}
