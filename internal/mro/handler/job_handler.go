package handler

import (
	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/service"
	"github.com/gin-gonic/gin"
)

// JobHandler 工单处理器
type JobHandler struct {
	svc *service.JobService
}

func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{svc: svc}
}

type seedRequest struct {
	PerSchedule int `json:"per_schedule" binding:"omitempty,min=1,max=500"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListJobs 工单列表
// GET /jobs?schedule_type=xxx&status=xxx&search=xxx
func (h *JobHandler) ListJobs(c *gin.Context) {
	filters := map[string]string{
		"schedule_type": c.Query("schedule_type"),
		"status":        c.Query("status"),
		"search":        c.Query("search"),
	}
	jobs, err := h.svc.List(c.Request.Context(), filters)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": jobs})
}

// CreateJob 创建工单
// POST /jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req service.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	job, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, job)
}

// NextPosition 下一个排程位置
// GET /jobs/next-position?schedule_type=xxx
func (h *JobHandler) NextPosition(c *gin.Context) {
	scheduleType := c.Query("schedule_type")
	if scheduleType != entity.ScheduleGeneral && scheduleType != entity.SchedulePriority {
		BadRequest(c, "schedule_type must be general_schedule or priority_schedule")
		return
	}
	pos, err := h.svc.NextPosition(c.Request.Context(), scheduleType)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"schedule_type": scheduleType, "position": pos})
}

// FormOptions 表单选项
// GET /jobs/form-options
func (h *JobHandler) FormOptions(c *gin.Context) {
	opts, err := h.svc.FormOptions(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, opts)
}

// GetJob 工单详情
// GET /jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	job, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, job)
}

// UpdateJob 更新工单
// PUT /jobs/:id
func (h *JobHandler) UpdateJob(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	job, err := h.svc.Update(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, job)
}

// UpdateStatus 更新工单状态
// PUT /jobs/:id/status
func (h *JobHandler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	job, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, job)
}

// MoveJob 调整排程位置
// PUT /jobs/:id/position
func (h *JobHandler) MoveJob(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.MoveJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	job, err := h.svc.Move(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, job)
}

// SeedJobs 重建测试工单（仅主账号）
// POST /jobs/seed
func (h *JobHandler) SeedJobs(c *gin.Context) {
	var req seedRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	if req.PerSchedule == 0 {
		req.PerSchedule = 50
	}

	inserted, err := h.svc.Seed(c.Request.Context(), GetUserID(c), req.PerSchedule)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, gin.H{"inserted": inserted})
}
