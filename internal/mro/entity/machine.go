package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Machine statuses
const (
	MachineStatusOperating        = "operating"
	MachineStatusIdle             = "idle"
	MachineStatusUnderMaintenance = "under_maintenance"
	MachineStatusOutOfService     = "out_of_service"
)

// MachineStatuses lists every valid machine status.
var MachineStatuses = []string{
	MachineStatusOperating,
	MachineStatusIdle,
	MachineStatusUnderMaintenance,
	MachineStatusOutOfService,
}

// Criticality levels
const (
	CriticalityLow    = "low"
	CriticalityMedium = "medium"
	CriticalityHigh   = "high"
)

// Maintenance triggers
const (
	TriggerTimeBased  = "time_based"
	TriggerUsageBased = "usage_based"
)

// MaintenanceSchedule is either time based (gap + unit + next date) or usage based
// (gap + meter unit + current reading).
type MaintenanceSchedule struct {
	Trigger             string     `json:"trigger"`
	TimeGap             *int       `json:"time_gap,omitempty"`
	TimeGapUnit         string     `json:"time_gap_unit,omitempty"`
	NextMaintenanceDate *time.Time `json:"next_maintenance_date,omitempty"`
	UsageGap            *float64   `json:"usage_gap,omitempty"`
	MeterUnit           string     `json:"meter_unit,omitempty"`
	CurrentMeterReading *float64   `json:"current_meter_reading,omitempty"`
}

// Machine 设备
type Machine struct {
	ID                  string                                  `json:"id" gorm:"primaryKey;size:36"`
	MachineName         string                                  `json:"machine_name" gorm:"size:256;not null"`
	AssetID             string                                  `json:"asset_id" gorm:"size:64;index"`
	CurrentStatus       string                                  `json:"current_status" gorm:"size:32;not null;default:idle"`
	Criticality         string                                  `json:"criticality" gorm:"size:16;not null;default:medium"`
	Tags                datatypes.JSONSlice[string]             `json:"tags" gorm:"type:jsonb"`
	Manufacturer        string                                  `json:"manufacturer" gorm:"size:128"`
	ModelNumber         string                                  `json:"model_number" gorm:"size:128"`
	InstallationDate    *time.Time                              `json:"installation_date" gorm:"type:date"`
	WarrantyExpiryDate  *time.Time                              `json:"warranty_expiry_date" gorm:"type:date"`
	MaintenanceSchedule datatypes.JSONType[MaintenanceSchedule] `json:"maintenance_schedule" gorm:"type:jsonb"`
	NumberOfOperations  int                                     `json:"number_of_operations" gorm:"not null;default:0"`
	Notes               string                                  `json:"notes" gorm:"type:text"`
	FileMetadataIDs     datatypes.JSONSlice[string]             `json:"file_metadata_ids" gorm:"type:jsonb"`
	CreatedBy           string                                  `json:"created_by" gorm:"size:36"`
	CreatedAt           time.Time                               `json:"created_at"`
	UpdatedAt           time.Time                               `json:"updated_at"`
}

func (Machine) TableName() string {
	return "machines"
}

// ValidMachineStatus reports whether s is a known machine status.
func ValidMachineStatus(s string) bool {
	for _, st := range MachineStatuses {
		if st == s {
			return true
		}
	}
	return false
}
