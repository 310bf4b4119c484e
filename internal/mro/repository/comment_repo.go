package repository

import (
	"context"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"gorm.io/gorm"
)

// CommentRepository 评论仓库
type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// ListByDocument loads every comment of a document in insertion order.
func (r *CommentRepository) ListByDocument(ctx context.Context, commentContext, documentID string) ([]entity.Comment, error) {
	var items []entity.Comment
	err := r.db.WithContext(ctx).
		Where("context = ? AND document_id = ?", commentContext, documentID).
		Order("timestamp ASC").
		Find(&items).Error
	return items, err
}

func (r *CommentRepository) FindByID(ctx context.Context, id string) (*entity.Comment, error) {
	var c entity.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *CommentRepository) Create(ctx context.Context, c *entity.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}
