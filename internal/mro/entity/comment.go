package entity

import "time"

// Comment / file contexts
const (
	ContextJob             = "job"
	ContextMachine         = "machine"
	ContextMaterialImage   = "material_image"
	ContextProcurementBill = "procurement_bill"
)

// Comment 评论，parent_id 为空时为顶层评论
type Comment struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	DocumentID string    `json:"document_id" gorm:"size:36;not null;index:idx_comments_doc"`
	Context    string    `json:"context" gorm:"size:32;not null;index:idx_comments_doc"`
	ParentID   *string   `json:"parent_id" gorm:"size:36"`
	Text       string    `json:"text" gorm:"type:text;not null"`
	UserID     string    `json:"user_id" gorm:"size:36"`
	Username   string    `json:"username" gorm:"size:128"`
	Timestamp  time.Time `json:"timestamp" gorm:"not null"`
}

func (Comment) TableName() string {
	return "comments"
}
