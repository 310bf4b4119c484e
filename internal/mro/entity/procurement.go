package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProcurementItem is one purchased line on a bill.
type ProcurementItem struct {
	MaterialID string          `json:"material_id"`
	Quantity   float64         `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// ProcurementRecord 采购记录
type ProcurementRecord struct {
	ID          string                               `json:"id" gorm:"primaryKey;size:36"`
	Supplier    string                               `json:"supplier" gorm:"size:128;not null"`
	BillNumber  string                               `json:"bill_number" gorm:"size:64;index"`
	BillDate    *time.Time                           `json:"bill_date" gorm:"type:date"`
	Items       datatypes.JSONSlice[ProcurementItem] `json:"items" gorm:"type:jsonb"`
	TotalAmount decimal.Decimal                      `json:"total_amount" gorm:"type:numeric(14,2);not null;default:0"`
	BillFileID  *string                              `json:"bill_file_id" gorm:"size:36"`
	Notes       string                               `json:"notes" gorm:"type:text"`
	CreatedBy   string                               `json:"created_by" gorm:"size:36"`
	CreatedAt   time.Time                            `json:"created_at"`
	UpdatedAt   time.Time                            `json:"updated_at"`
}

func (ProcurementRecord) TableName() string {
	return "procurement_records"
}
