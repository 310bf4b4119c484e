package repository

import (
	"context"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"gorm.io/gorm"
)

// FileRepository 附件元数据仓库
type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, f *entity.FileMetadata) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *FileRepository) FindByID(ctx context.Context, id string) (*entity.FileMetadata, error) {
	var f entity.FileMetadata
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

// ListByDocument 文档附件，最新在前
func (r *FileRepository) ListByDocument(ctx context.Context, fileContext, documentID string) ([]entity.FileMetadata, error) {
	var items []entity.FileMetadata
	err := r.db.WithContext(ctx).
		Where("context = ? AND document_id = ?", fileContext, documentID).
		Order("upload_timestamp DESC").
		Find(&items).Error
	return items, err
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.FileMetadata{}).Error
}
