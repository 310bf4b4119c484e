package handler

import (
	"strconv"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/service"
	"github.com/gin-gonic/gin"
)

// CommentHandler 评论处理器，按上下文（job/machine）挂载
type CommentHandler struct {
	svc *service.CommentService
}

func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

// List returns the handler for GET /<context>s/:id/comments?page=N
func (h *CommentHandler) List(commentContext string) gin.HandlerFunc {
	return func(c *gin.Context) {
		docID, ok := idParam(c, "id")
		if !ok {
			return
		}
		page := 1
		if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
			page = p
		}

		res, err := h.svc.List(c.Request.Context(), commentContext, docID, page)
		if err != nil {
			handleError(c, err)
			return
		}
		Success(c, res)
	}
}

// Create returns the handler for POST /<context>s/:id/comments
func (h *CommentHandler) Create(commentContext string) gin.HandlerFunc {
	return func(c *gin.Context) {
		docID, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req service.CreateCommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		comment, err := h.svc.Create(c.Request.Context(), GetActor(c), commentContext, docID, &req)
		if err != nil {
			handleError(c, err)
			return
		}
		Created(c, comment)
	}
}
