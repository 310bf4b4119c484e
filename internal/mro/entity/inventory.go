package entity

import (
	"time"

	"gorm.io/datatypes"
)

// RawMaterial 原材料
type RawMaterial struct {
	ID              string                      `json:"id" gorm:"primaryKey;size:36"`
	MaterialName    string                      `json:"material_name" gorm:"size:256;not null"`
	SKU             string                      `json:"sku" gorm:"size:64;not null;uniqueIndex"`
	Description     string                      `json:"description" gorm:"type:text"`
	UOM             string                      `json:"uom" gorm:"column:uom;size:32;not null"`
	CurrentQuantity float64                     `json:"current_quantity" gorm:"not null;default:0"`
	InUseQuantity   float64                     `json:"in_use_quantity" gorm:"not null;default:0"`
	ReorderLevel    float64                     `json:"reorder_level" gorm:"not null;default:0"`
	Categories      datatypes.JSONSlice[string] `json:"categories" gorm:"type:jsonb"`
	Suppliers       datatypes.JSONSlice[string] `json:"suppliers" gorm:"type:jsonb"`
	ImageID         *string                     `json:"image_id" gorm:"size:36"`
	LastStockedOn   *time.Time                  `json:"last_stocked_on" gorm:"index"`
	CreatedBy       string                      `json:"created_by" gorm:"size:36"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`

	// 关联
	Reservations []MaterialReservation `json:"reservations,omitempty" gorm:"foreignKey:MaterialID"`
}

func (RawMaterial) TableName() string {
	return "raw_materials"
}

// MaterialReservation records the quantity an operation holds on a material.
// The sum of a material's reservations equals its in_use_quantity.
type MaterialReservation struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36"`
	MaterialID       string    `json:"material_id" gorm:"size:36;not null;index"`
	JobID            string    `json:"job_id" gorm:"size:36;not null;index"`
	OperationID      string    `json:"operation_id" gorm:"size:36;not null;index"`
	RequiredQuantity float64   `json:"required_quantity" gorm:"not null"`
	CreatedAt        time.Time `json:"created_at"`
}

func (MaterialReservation) TableName() string {
	return "material_reservations"
}

// MaterialCategory 分类计数
type MaterialCategory struct {
	Name  string `json:"name" gorm:"primaryKey;size:128"`
	Count int    `json:"count" gorm:"not null;default:0"`
}

func (MaterialCategory) TableName() string {
	return "raw_material_categories"
}

// MaterialSupplier 供应商计数
type MaterialSupplier struct {
	Name  string `json:"name" gorm:"primaryKey;size:128"`
	Count int    `json:"count" gorm:"not null;default:0"`
}

func (MaterialSupplier) TableName() string {
	return "raw_material_suppliers"
}
