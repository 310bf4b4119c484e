package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/Rithish-Sripaul/mro-system/internal/middleware"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/service"
	"github.com/Rithish-Sripaul/mro-system/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers MRO处理器集合
type Handlers struct {
	Auth        *AuthHandler
	Job         *JobHandler
	Operation   *OperationHandler
	Inventory   *InventoryHandler
	Procurement *ProcurementHandler
	Machine     *MachineHandler
	Comment     *CommentHandler
	File        *FileHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svcs *service.Services, auth AuthOptions) *Handlers {
	return &Handlers{
		Auth:        NewAuthHandler(svcs.Auth, auth),
		Job:         NewJobHandler(svcs.Job),
		Operation:   NewOperationHandler(svcs.Operation),
		Inventory:   NewInventoryHandler(svcs.Inventory),
		Procurement: NewProcurementHandler(svcs.Procurement),
		Machine:     NewMachineHandler(svcs.Machine),
		Comment:     NewCommentHandler(svcs.Comment),
		File:        NewFileHandler(svcs.File),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

func GetUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}

// GetActor 当前用户
func GetActor(c *gin.Context) service.Actor {
	return service.Actor{
		UserID:   c.GetString(middleware.ContextUserID),
		Username: c.GetString(middleware.ContextUserName),
	}
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}

// bindError 参数校验失败
func bindError(c *gin.Context, err error) {
	BadRequest(c, "Invalid request: "+validation.Message(err))
}

// idParam reads a uuid path parameter, answering 400 when it is malformed.
func idParam(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return "", false
	}
	return id, true
}

// handleError maps service errors onto the response envelope.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrOperationNotFound),
		errors.Is(err, service.ErrMaterialNotFound),
		errors.Is(err, service.ErrMachineNotFound),
		errors.Is(err, service.ErrProcurementNotFound),
		errors.Is(err, service.ErrParentNotFound),
		errors.Is(err, service.ErrFileNotFound),
		errors.Is(err, service.ErrUserNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidImage),
		errors.Is(err, service.ErrInsufficientStock):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrDuplicateSKU),
		errors.Is(err, service.ErrDuplicateUser),
		errors.Is(err, service.ErrOperationCompleted),
		errors.Is(err, service.ErrSeedHasOperations):
		Conflict(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		Error(c, 50300, err.Error())
	default:
		c.Error(err)
		InternalError(c, "Internal server error")
	}
}

// openUpload turns a multipart file header into a service upload. The caller closes the file.
func openUpload(fh *multipart.FileHeader) (*service.Upload, multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &service.Upload{
		Reader:      f,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}, f, nil
}

// serveFile streams a stored object to the client.
func serveFile(c *gin.Context, body io.ReadCloser, size int64, contentType, filename string, inline bool) {
	defer body.Close()
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	c.DataFromReader(http.StatusOK, size, contentType, body, map[string]string{
		"Content-Disposition": fmt.Sprintf("%s; filename=%q", disposition, filename),
	})
}
