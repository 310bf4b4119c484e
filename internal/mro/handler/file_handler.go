package handler

import (
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/service"
	"github.com/gin-gonic/gin"
)

// FileHandler 附件处理器，按上下文（job/machine）挂载
type FileHandler struct {
	svc *service.FileService
}

func NewFileHandler(svc *service.FileService) *FileHandler {
	return &FileHandler{svc: svc}
}

// formFiles collects the uploads sent as "files" or "file".
func formFiles(c *gin.Context, fields ...string) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	for _, field := range fields {
		if files := form.File[field]; len(files) > 0 {
			return files, nil
		}
	}
	return nil, nil
}

// Upload returns the handler for POST /<context>s/:id/files
func (h *FileHandler) Upload(fileContext string) gin.HandlerFunc {
	return func(c *gin.Context) {
		docID, ok := idParam(c, "id")
		if !ok {
			return
		}
		headers, err := formFiles(c, "files", "file")
		if err != nil {
			BadRequest(c, "Invalid multipart form: "+err.Error())
			return
		}
		if len(headers) == 0 {
			BadRequest(c, "No file uploaded")
			return
		}

		stored := make([]entity.FileMetadata, 0, len(headers))
		failed := make([]failedUpload, 0)
		var firstErr error
		for _, fh := range headers {
			meta, err := h.attach(c, fileContext, docID, fh)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				c.Error(err)
				failed = append(failed, failedUpload{Filename: fh.Filename, Error: uploadErrorMessage(err)})
				continue
			}
			stored = append(stored, *meta)
		}
		if len(stored) == 0 {
			handleError(c, firstErr)
			return
		}
		Created(c, gin.H{"items": stored, "failed": failed})
	}
}

// failedUpload names a file of a multi-file upload that was not stored.
type failedUpload struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

func (h *FileHandler) attach(c *gin.Context, fileContext, docID string, fh *multipart.FileHeader) (*entity.FileMetadata, error) {
	up, f, err := openUpload(fh)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s: %v", service.ErrInvalidInput, fh.Filename, err)
	}
	defer f.Close()
	return h.svc.Attach(c.Request.Context(), fileContext, docID, up, GetActor(c))
}

func uploadErrorMessage(err error) string {
	if errors.Is(err, service.ErrStorageUnavailable) {
		return service.ErrStorageUnavailable.Error()
	}
	return err.Error()
}

// List returns the handler for GET /<context>s/:id/files
func (h *FileHandler) List(fileContext string) gin.HandlerFunc {
	return func(c *gin.Context) {
		docID, ok := idParam(c, "id")
		if !ok {
			return
		}
		files, err := h.svc.List(c.Request.Context(), fileContext, docID)
		if err != nil {
			handleError(c, err)
			return
		}
		Success(c, gin.H{"items": files})
	}
}

// Download returns the handler for GET /<context>s/files/:fileId/download
func (h *FileHandler) Download(fileContext string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileID, ok := idParam(c, "fileId")
		if !ok {
			return
		}
		meta, obj, err := h.svc.Open(c.Request.Context(), fileContext, fileID)
		if err != nil {
			handleError(c, err)
			return
		}
		serveFile(c, obj.Body, obj.Size, meta.ContentType, meta.OriginalFilename, false)
	}
}
