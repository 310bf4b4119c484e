package service

import (
	"context"
	"errors"
	"io"

	"github.com/Rithish-Sripaul/mro-system/internal/config"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/Rithish-Sripaul/mro-system/internal/shared/blobstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 业务错误
var (
	ErrJobNotFound         = errors.New("job not found")
	ErrOperationNotFound   = errors.New("operation not found")
	ErrMaterialNotFound    = errors.New("raw material not found")
	ErrMachineNotFound     = errors.New("machine not found")
	ErrProcurementNotFound = errors.New("procurement record not found")
	ErrParentNotFound      = errors.New("parent comment not found")
	ErrFileNotFound        = errors.New("file not found")
	ErrUserNotFound        = errors.New("user not found")

	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidImage       = errors.New("file must be an image")
	ErrDuplicateSKU       = errors.New("sku already exists")
	ErrDuplicateUser      = errors.New("user name or email already registered")
	ErrInvalidCredentials = errors.New("invalid name or password")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrOperationCompleted = errors.New("operation already completed")
	ErrStorageUnavailable = errors.New("file storage unavailable")
)

// BlobStore is the object storage used for attachments, images and bills.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*blobstore.Object, error)
	Remove(ctx context.Context, key string) error
}

// Services 服务集合
type Services struct {
	Auth        *AuthService
	Job         *JobService
	Operation   *OperationService
	Inventory   *InventoryService
	Procurement *ProcurementService
	Machine     *MachineService
	Comment     *CommentService
	File        *FileService
}

// NewServices 创建服务集合. blobs may be nil when storage is not configured.
func NewServices(repos *repository.Repositories, rdb *redis.Client, blobs BlobStore, cfg *config.Config, log *zap.Logger) *Services {
	files := NewFileService(repos, blobs, log)
	return &Services{
		Auth:        NewAuthService(repos.User, NewRedisSessionStore(rdb), cfg.JWT, cfg.Auth),
		Job:         NewJobService(repos),
		Operation:   NewOperationService(repos, cfg.Inventory, log),
		Inventory:   NewInventoryService(repos, files, log),
		Procurement: NewProcurementService(repos, files, log),
		Machine:     NewMachineService(repos, files, log),
		Comment:     NewCommentService(repos, cfg.Comments.PageSize),
		File:        files,
	}
}

// Actor identifies the user performing a request.
type Actor struct {
	UserID   string
	Username string
}

func notFound(err, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}
