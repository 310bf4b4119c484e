package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/Rithish-Sripaul/mro-system/internal/shared/blobstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Upload is an incoming file stream with its client supplied metadata.
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// FileService 附件服务：对象存储 + 元数据表
type FileService struct {
	repos *repository.Repositories
	blobs BlobStore
	log   *zap.Logger
}

func NewFileService(repos *repository.Repositories, blobs BlobStore, log *zap.Logger) *FileService {
	return &FileService{repos: repos, blobs: blobs, log: log}
}

// linkFunc runs in the metadata transaction, e.g. to reference the file from its owner.
type linkFunc func(ctx context.Context, tx *repository.Repositories, meta *entity.FileMetadata) error

// Store writes the blob and then its metadata row. If the metadata write
// fails the blob is removed so no orphan object remains.
func (s *FileService) Store(ctx context.Context, fileContext, documentID string, up *Upload, actor Actor, link linkFunc) (*entity.FileMetadata, error) {
	if s.blobs == nil {
		return nil, ErrStorageUnavailable
	}
	if up == nil || up.Reader == nil {
		return nil, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}

	id := uuid.New().String()
	filename := cleanFilename(up.Filename)
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	meta := &entity.FileMetadata{
		ID:               id,
		Context:          fileContext,
		ObjectKey:        fmt.Sprintf("%s/%s/%s", fileContext, id, filename),
		OriginalFilename: filename,
		ContentType:      contentType,
		Size:             up.Size,
		UploadTimestamp:  time.Now(),
		UploaderUserID:   actor.UserID,
		UploaderUsername: actor.Username,
	}
	if documentID != "" {
		meta.DocumentID = &documentID
	}

	if err := s.blobs.Put(ctx, meta.ObjectKey, up.Reader, up.Size, contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.File.Create(ctx, meta); err != nil {
			return fmt.Errorf("save file metadata: %w", err)
		}
		if link != nil {
			return link(ctx, tx, meta)
		}
		return nil
	})
	if err != nil {
		s.discardBlob(meta.ObjectKey)
		return nil, err
	}
	return meta, nil
}

// Attach stores a file against a job or machine.
func (s *FileService) Attach(ctx context.Context, fileContext, documentID string, up *Upload, actor Actor) (*entity.FileMetadata, error) {
	switch fileContext {
	case entity.ContextJob:
		if _, err := s.repos.Job.FindByID(ctx, documentID); err != nil {
			return nil, notFound(err, ErrJobNotFound)
		}
		return s.Store(ctx, fileContext, documentID, up, actor, nil)
	case entity.ContextMachine:
		return s.Store(ctx, fileContext, documentID, up, actor, func(ctx context.Context, tx *repository.Repositories, meta *entity.FileMetadata) error {
			return notFound(tx.Machine.AppendFile(ctx, documentID, meta.ID), ErrMachineNotFound)
		})
	default:
		return nil, fmt.Errorf("%w: unknown file context %q", ErrInvalidInput, fileContext)
	}
}

// List 文档附件（最新在前）
func (s *FileService) List(ctx context.Context, fileContext, documentID string) ([]entity.FileMetadata, error) {
	return s.repos.File.ListByDocument(ctx, fileContext, documentID)
}

// Open returns a file's metadata and an open reader. fileContext, when not
// empty, must match the stored context.
func (s *FileService) Open(ctx context.Context, fileContext, id string) (*entity.FileMetadata, *blobstore.Object, error) {
	if s.blobs == nil {
		return nil, nil, ErrStorageUnavailable
	}
	meta, err := s.repos.File.FindByID(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, ErrFileNotFound)
	}
	if fileContext != "" && meta.Context != fileContext {
		return nil, nil, ErrFileNotFound
	}
	obj, err := s.blobs.Get(ctx, meta.ObjectKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrObjectNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return meta, obj, nil
}

// Delete removes the metadata row and then the blob.
func (s *FileService) Delete(ctx context.Context, meta *entity.FileMetadata) error {
	if err := s.repos.File.Delete(ctx, meta.ID); err != nil {
		return fmt.Errorf("delete file metadata: %w", err)
	}
	s.discardBlob(meta.ObjectKey)
	return nil
}

func (s *FileService) discardBlob(key string) {
	if s.blobs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.blobs.Remove(ctx, key); err != nil {
		s.log.Warn("Failed to remove orphan blob", zap.String("key", key), zap.Error(err))
	}
}

func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return strings.ReplaceAll(name, " ", "_")
}
