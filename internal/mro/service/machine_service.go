package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// FormDateLayout is the date format used by the machine form pickers.
const FormDateLayout = "01/02/2006"

const upcomingMaintenanceCount = 5

// MachineService 设备服务
type MachineService struct {
	repos *repository.Repositories
	files *FileService
	log   *zap.Logger
}

func NewMachineService(repos *repository.Repositories, files *FileService, log *zap.Logger) *MachineService {
	return &MachineService{repos: repos, files: files, log: log}
}

// CreateMachineRequest 设备表单. Dates use MM/DD/YYYY; tags are a Tagify JSON
// array or a comma separated list.
type CreateMachineRequest struct {
	MachineName         string `form:"machine_name" binding:"required,max=256"`
	AssetID             string `form:"asset_id" binding:"max=64"`
	CurrentStatus       string `form:"current_status" binding:"omitempty,machine_status"`
	Criticality         string `form:"criticality" binding:"omitempty,criticality"`
	Tags                string `form:"tags"`
	Manufacturer        string `form:"manufacturer"`
	ModelNumber         string `form:"model_number"`
	InstallationDate    string `form:"installation_date"`
	WarrantyExpiryDate  string `form:"warranty_expiry_date"`
	Notes               string `form:"notes"`
	MaintenanceTrigger  string `form:"maintenance_trigger" binding:"omitempty,oneof=time_based usage_based"`
	TimeGap             string `form:"time_gap"`
	TimeGapUnit         string `form:"time_gap_unit"`
	NextMaintenanceDate string `form:"next_maintenance_date"`
	UsageGap            string `form:"usage_gap"`
	MeterUnit           string `form:"meter_unit"`
	CurrentMeterReading string `form:"current_meter_reading"`
}

// MachineStats 设备统计
type MachineStats struct {
	Total            int `json:"total"`
	Operating        int `json:"operating"`
	Idle             int `json:"idle"`
	UnderMaintenance int `json:"under_maintenance"`
	OutOfService     int `json:"out_of_service"`
	HighCriticality  int `json:"high_criticality"`
}

// MachineList is the machine page payload.
type MachineList struct {
	Items    []entity.Machine `json:"items"`
	Stats    MachineStats     `json:"stats"`
	Tags     []string         `json:"tags"`
	Statuses []string         `json:"statuses"`
}

// MachineDetails 设备详情
type MachineDetails struct {
	Machine             *entity.Machine       `json:"machine"`
	Files               []entity.FileMetadata `json:"files"`
	Operations          []entity.Operation    `json:"operations"`
	UpcomingMaintenance []string              `json:"upcoming_maintenance"`
}

// CreateMachineResult reports attachments that could not be stored.
type CreateMachineResult struct {
	Machine           *entity.Machine       `json:"machine"`
	Attachments       []entity.FileMetadata `json:"attachments"`
	FailedAttachments []string              `json:"failed_attachments,omitempty"`
}

// ParseTags accepts a Tagify JSON array ([{"value":"cnc"}]), a JSON string
// array or a comma separated list.
func ParseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if strings.HasPrefix(raw, "[") {
		var tagify []struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal([]byte(raw), &tagify); err == nil {
			values := make([]string, 0, len(tagify))
			for _, t := range tagify {
				values = append(values, t.Value)
			}
			return cleanList(values)
		}
		var plain []string
		if err := json.Unmarshal([]byte(raw), &plain); err == nil {
			return cleanList(plain)
		}
		return []string{}
	}
	return cleanList(strings.Split(raw, ","))
}

// ParseFormDate parses MM/DD/YYYY, falling back to YYYY-MM-DD. Empty input yields nil.
func ParseFormDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{FormDateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s must be MM/DD/YYYY", ErrInvalidInput, field)
}

// BuildSchedule validates the conditional maintenance fields.
func BuildSchedule(req *CreateMachineRequest) (entity.MaintenanceSchedule, error) {
	schedule := entity.MaintenanceSchedule{Trigger: req.MaintenanceTrigger}
	switch req.MaintenanceTrigger {
	case "":
		return schedule, nil
	case entity.TriggerTimeBased:
		gap, err := strconv.Atoi(strings.TrimSpace(req.TimeGap))
		if err != nil || gap <= 0 {
			return schedule, fmt.Errorf("%w: time_gap must be a positive integer", ErrInvalidInput)
		}
		switch req.TimeGapUnit {
		case "days", "weeks", "months":
		default:
			return schedule, fmt.Errorf("%w: time_gap_unit must be days, weeks or months", ErrInvalidInput)
		}
		next, err := ParseFormDate("next_maintenance_date", req.NextMaintenanceDate)
		if err != nil {
			return schedule, err
		}
		schedule.TimeGap = &gap
		schedule.TimeGapUnit = req.TimeGapUnit
		schedule.NextMaintenanceDate = next
	case entity.TriggerUsageBased:
		gap, err := strconv.ParseFloat(strings.TrimSpace(req.UsageGap), 64)
		if err != nil || gap <= 0 {
			return schedule, fmt.Errorf("%w: usage_gap must be positive", ErrInvalidInput)
		}
		reading := 0.0
		if v := strings.TrimSpace(req.CurrentMeterReading); v != "" {
			reading, err = strconv.ParseFloat(v, 64)
			if err != nil || reading < 0 {
				return schedule, fmt.Errorf("%w: current_meter_reading must be a non-negative number", ErrInvalidInput)
			}
		}
		schedule.UsageGap = &gap
		schedule.MeterUnit = strings.TrimSpace(req.MeterUnit)
		schedule.CurrentMeterReading = &reading
	default:
		return schedule, fmt.Errorf("%w: unknown maintenance trigger %q", ErrInvalidInput, req.MaintenanceTrigger)
	}
	return schedule, nil
}

// UpcomingMaintenance lists the next n maintenance points. Time based
// schedules step from next_maintenance_date; monthly steps keep the day of
// month but never past the 28th. Usage based schedules list meter thresholds.
func UpcomingMaintenance(schedule entity.MaintenanceSchedule, n int) []string {
	out := make([]string, 0, n)
	switch schedule.Trigger {
	case entity.TriggerTimeBased:
		if schedule.NextMaintenanceDate == nil || schedule.TimeGap == nil || *schedule.TimeGap <= 0 {
			return out
		}
		gap := *schedule.TimeGap
		first := *schedule.NextMaintenanceDate
		day := first.Day()
		if day > 28 {
			day = 28
		}
		current := first
		for i := 0; i < n; i++ {
			out = append(out, current.Format("02 Jan, 2006"))
			switch schedule.TimeGapUnit {
			case "days":
				current = current.AddDate(0, 0, gap)
			case "weeks":
				current = current.AddDate(0, 0, 7*gap)
			case "months":
				current = time.Date(current.Year(), current.Month()+time.Month(gap), day, 0, 0, 0, 0, current.Location())
			default:
				return out[:1]
			}
		}
	case entity.TriggerUsageBased:
		if schedule.UsageGap == nil || *schedule.UsageGap <= 0 || schedule.MeterUnit == "" {
			return out
		}
		gap := *schedule.UsageGap
		reading := 0.0
		if schedule.CurrentMeterReading != nil {
			reading = *schedule.CurrentMeterReading
		}
		nextDue := (math.Floor(reading/gap) + 1) * gap
		for i := 0; i < n; i++ {
			out = append(out, fmt.Sprintf("At %d %s", int64(nextDue+float64(i)*gap), schedule.MeterUnit))
		}
	}
	return out
}

// ComputeMachineStats counts machines per status and high criticality.
func ComputeMachineStats(items []entity.Machine) MachineStats {
	stats := MachineStats{Total: len(items)}
	for _, m := range items {
		switch m.CurrentStatus {
		case entity.MachineStatusOperating:
			stats.Operating++
		case entity.MachineStatusIdle:
			stats.Idle++
		case entity.MachineStatusUnderMaintenance:
			stats.UnderMaintenance++
		case entity.MachineStatusOutOfService:
			stats.OutOfService++
		}
		if m.Criticality == entity.CriticalityHigh {
			stats.HighCriticality++
		}
	}
	return stats
}

// Create registers a machine and stores its attachments.
func (s *MachineService) Create(ctx context.Context, actor Actor, req *CreateMachineRequest, attachments []*Upload) (*CreateMachineResult, error) {
	name := strings.TrimSpace(req.MachineName)
	if name == "" {
		return nil, fmt.Errorf("%w: machine_name is required", ErrInvalidInput)
	}
	installed, err := ParseFormDate("installation_date", req.InstallationDate)
	if err != nil {
		return nil, err
	}
	warranty, err := ParseFormDate("warranty_expiry_date", req.WarrantyExpiryDate)
	if err != nil {
		return nil, err
	}
	schedule, err := BuildSchedule(req)
	if err != nil {
		return nil, err
	}

	status := req.CurrentStatus
	if status == "" {
		status = entity.MachineStatusIdle
	}
	criticality := req.Criticality
	if criticality == "" {
		criticality = entity.CriticalityMedium
	}

	machine := &entity.Machine{
		ID:                  uuid.New().String(),
		MachineName:         name,
		AssetID:             strings.TrimSpace(req.AssetID),
		CurrentStatus:       status,
		Criticality:         criticality,
		Tags:                ParseTags(req.Tags),
		Manufacturer:        req.Manufacturer,
		ModelNumber:         req.ModelNumber,
		InstallationDate:    installed,
		WarrantyExpiryDate:  warranty,
		MaintenanceSchedule: datatypes.NewJSONType(schedule),
		Notes:               req.Notes,
		FileMetadataIDs:     []string{},
		CreatedBy:           actor.UserID,
	}
	if err := s.repos.Machine.Create(ctx, machine); err != nil {
		return nil, fmt.Errorf("create machine: %w", err)
	}

	result := &CreateMachineResult{Machine: machine, Attachments: []entity.FileMetadata{}}
	for _, up := range attachments {
		meta, err := s.files.Attach(ctx, entity.ContextMachine, machine.ID, up, actor)
		if err != nil {
			s.log.Warn("Failed to store machine attachment",
				zap.String("machine_id", machine.ID),
				zap.String("filename", up.Filename),
				zap.Error(err))
			result.FailedAttachments = append(result.FailedAttachments, up.Filename)
			continue
		}
		result.Attachments = append(result.Attachments, *meta)
		machine.FileMetadataIDs = append(machine.FileMetadataIDs, meta.ID)
	}
	return result, nil
}

// List 设备列表 + 统计 + 标签
func (s *MachineService) List(ctx context.Context, filters map[string]string) (*MachineList, error) {
	all, err := s.repos.Machine.FindAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	items := all
	if hasFilter(filters) {
		items, err = s.repos.Machine.FindAll(ctx, filters)
		if err != nil {
			return nil, fmt.Errorf("list machines: %w", err)
		}
	}
	tags, err := s.repos.Machine.DistinctTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return &MachineList{
		Items:    items,
		Stats:    ComputeMachineStats(all),
		Tags:     tags,
		Statuses: entity.MachineStatuses,
	}, nil
}

// Details 设备详情：附件、分配工序、后续保养计划
func (s *MachineService) Details(ctx context.Context, id string) (*MachineDetails, error) {
	machine, err := s.repos.Machine.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrMachineNotFound)
	}
	files, err := s.files.List(ctx, entity.ContextMachine, id)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	ops, err := s.repos.Operation.ListByMachine(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	return &MachineDetails{
		Machine:             machine,
		Files:               files,
		Operations:          ops,
		UpcomingMaintenance: UpcomingMaintenance(machine.MaintenanceSchedule.Data(), upcomingMaintenanceCount),
	}, nil
}

// UpdateStatus 更新设备状态
func (s *MachineService) UpdateStatus(ctx context.Context, id, status string) error {
	if !entity.ValidMachineStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.repos.Machine.UpdateStatus(ctx, id, status); err != nil {
		return notFound(err, ErrMachineNotFound)
	}
	return nil
}

