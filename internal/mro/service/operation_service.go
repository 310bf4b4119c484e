package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/config"
	"github.com/Rithish-Sripaul/mro-system/internal/metrics"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OperationService 工序服务：创建时预留原材料，删除/编辑时释放
type OperationService struct {
	repos *repository.Repositories
	cfg   config.InventoryConfig
	log   *zap.Logger
}

func NewOperationService(repos *repository.Repositories, cfg config.InventoryConfig, log *zap.Logger) *OperationService {
	return &OperationService{repos: repos, cfg: cfg, log: log}
}

// OperationRequest 创建/编辑工序请求
type OperationRequest struct {
	OperationName     string                       `json:"operation_name" binding:"required,max=256"`
	OperationPosition *int                         `json:"operation_position" binding:"omitempty,min=1"`
	AssignedMachine   *string                      `json:"assigned_machine"`
	AssignedOperators []string                     `json:"assigned_operators"`
	MaterialsRequired []entity.MaterialRequirement `json:"materials_required"`
	Notes             string                       `json:"notes"`
}

// OperationResult carries the saved operation and any stock shortages.
type OperationResult struct {
	Operation *entity.Operation `json:"operation"`
	Shortages []Shortage        `json:"shortages"`
	JobAtRisk bool              `json:"job_at_risk"`
}

// Create reserves stock for a new operation. An operation whose requirements
// exceed stock is suspended and its job marked at_risk; stock is still
// reserved unless negative stock is disabled.
func (s *OperationService) Create(ctx context.Context, jobID, userID string, req *OperationRequest) (*OperationResult, error) {
	reqs, err := aggregateRequirements(req.MaterialsRequired)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.OperationName)
	if name == "" {
		return nil, fmt.Errorf("%w: operation_name is required", ErrInvalidInput)
	}

	result := &OperationResult{}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		job, err := tx.Job.FindByIDForUpdate(ctx, jobID)
		if err != nil {
			return notFound(err, ErrJobNotFound)
		}

		materials, err := s.lockMaterials(ctx, tx, materialIDs(reqs))
		if err != nil {
			return err
		}

		shortages := evaluateSufficiency(reqs, materials)
		if len(shortages) > 0 && !s.cfg.AllowNegativeStock {
			return fmt.Errorf("%w: %s", ErrInsufficientStock, describeShortages(shortages))
		}

		op := &entity.Operation{
			ID:                uuid.New().String(),
			JobID:             job.ID,
			OperationName:     name,
			AssignedMachine:   normalizeID(req.AssignedMachine),
			AssignedOperators: cleanList(req.AssignedOperators),
			MaterialsRequired: reqs,
			Status:            entity.OperationStatusPending,
			Notes:             req.Notes,
			CreatedBy:         userID,
		}
		if len(shortages) > 0 {
			op.Status = entity.OperationStatusSuspended
		}

		if req.OperationPosition != nil {
			op.OperationPosition = *req.OperationPosition
		} else {
			last, err := tx.Operation.MaxPosition(ctx, job.ID)
			if err != nil {
				return fmt.Errorf("operation position: %w", err)
			}
			op.OperationPosition = last + 1
		}

		if op.AssignedMachine != nil {
			if err := tx.Machine.AdjustOperations(ctx, *op.AssignedMachine, 1); err != nil {
				return notFound(err, ErrMachineNotFound)
			}
		}

		if err := tx.Operation.Create(ctx, op); err != nil {
			return fmt.Errorf("create operation: %w", err)
		}
		if err := reserve(ctx, tx, job.ID, op.ID, reqs); err != nil {
			return err
		}
		if len(shortages) > 0 {
			if err := markAtRisk(ctx, tx, job); err != nil {
				return err
			}
		}

		result.Operation = op
		result.Shortages = shortages
		result.JobAtRisk = len(shortages) > 0
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordReservation(result.Operation.Status)
	metrics.RecordStockAdjustment("reserve", len(reqs))
	if result.JobAtRisk {
		s.log.Info("Operation suspended for insufficient stock",
			zap.String("job_id", jobID),
			zap.String("operation_id", result.Operation.ID),
			zap.String("shortages", describeShortages(result.Shortages)))
	}
	return result, nil
}

// Update releases the operation's reservations and reserves the new
// requirements, re-evaluating its status in the same transaction.
func (s *OperationService) Update(ctx context.Context, jobID, operationID string, req *OperationRequest) (*OperationResult, error) {
	reqs, err := aggregateRequirements(req.MaterialsRequired)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.OperationName)
	if name == "" {
		return nil, fmt.Errorf("%w: operation_name is required", ErrInvalidInput)
	}

	var released int
	result := &OperationResult{}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		job, err := tx.Job.FindByIDForUpdate(ctx, jobID)
		if err != nil {
			return notFound(err, ErrJobNotFound)
		}
		op, err := lockOperation(ctx, tx, job.ID, operationID)
		if err != nil {
			return err
		}
		if op.Status == entity.OperationStatusCompleted {
			return ErrOperationCompleted
		}

		held, err := tx.Material.ReservationsByOperation(ctx, op.ID)
		if err != nil {
			return fmt.Errorf("load reservations: %w", err)
		}
		heldIDs := make([]string, 0, len(held))
		for _, r := range held {
			heldIDs = append(heldIDs, r.MaterialID)
		}

		// Lock old and new materials together in id order.
		materials, err := tx.Material.LockByIDs(ctx, unionIDs(heldIDs, materialIDs(reqs)))
		if err != nil {
			return fmt.Errorf("lock materials: %w", err)
		}
		if id := missingMaterial(materialIDs(reqs), materials); id != "" {
			return fmt.Errorf("%w: %s", ErrMaterialNotFound, id)
		}

		if err := release(ctx, tx, op.ID, held); err != nil {
			return err
		}
		released = len(held)
		for _, r := range held {
			if m, ok := materials[r.MaterialID]; ok {
				m.CurrentQuantity += r.RequiredQuantity
			}
		}

		shortages := evaluateSufficiency(reqs, materials)
		if len(shortages) > 0 && !s.cfg.AllowNegativeStock {
			return fmt.Errorf("%w: %s", ErrInsufficientStock, describeShortages(shortages))
		}

		newMachine := normalizeID(req.AssignedMachine)
		if !sameID(op.AssignedMachine, newMachine) {
			if op.AssignedMachine != nil {
				if err := tx.Machine.AdjustOperations(ctx, *op.AssignedMachine, -1); err != nil && !errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("release machine: %w", err)
				}
			}
			if newMachine != nil {
				if err := tx.Machine.AdjustOperations(ctx, *newMachine, 1); err != nil {
					return notFound(err, ErrMachineNotFound)
				}
			}
		}

		op.OperationName = name
		op.AssignedMachine = newMachine
		op.AssignedOperators = cleanList(req.AssignedOperators)
		op.MaterialsRequired = reqs
		op.Notes = req.Notes
		if req.OperationPosition != nil {
			op.OperationPosition = *req.OperationPosition
		}
		op.Status = entity.OperationStatusPending
		if len(shortages) > 0 {
			op.Status = entity.OperationStatusSuspended
		}

		if err := tx.Operation.Update(ctx, op); err != nil {
			return fmt.Errorf("update operation: %w", err)
		}
		if err := reserve(ctx, tx, job.ID, op.ID, reqs); err != nil {
			return err
		}
		if len(shortages) > 0 {
			if err := markAtRisk(ctx, tx, job); err != nil {
				return err
			}
		}

		result.Operation = op
		result.Shortages = shortages
		result.JobAtRisk = len(shortages) > 0
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordReservation(result.Operation.Status)
	metrics.RecordStockAdjustment("release", released)
	metrics.RecordStockAdjustment("reserve", len(reqs))
	return result, nil
}

// Delete returns every reserved quantity to stock and removes the operation.
func (s *OperationService) Delete(ctx context.Context, jobID, operationID string) error {
	var released int
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		op, err := lockOperation(ctx, tx, jobID, operationID)
		if err != nil {
			return err
		}
		held, err := tx.Material.ReservationsByOperation(ctx, op.ID)
		if err != nil {
			return fmt.Errorf("load reservations: %w", err)
		}
		ids := make([]string, 0, len(held))
		for _, r := range held {
			ids = append(ids, r.MaterialID)
		}
		if _, err := tx.Material.LockByIDs(ctx, ids); err != nil {
			return fmt.Errorf("lock materials: %w", err)
		}
		if err := release(ctx, tx, op.ID, held); err != nil {
			return err
		}
		released = len(held)

		if op.AssignedMachine != nil {
			if err := tx.Machine.AdjustOperations(ctx, *op.AssignedMachine, -1); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("release machine: %w", err)
			}
		}
		return tx.Operation.Delete(ctx, op.ID)
	})
	if err != nil {
		return err
	}
	metrics.RecordStockAdjustment("release", released)
	return nil
}

// Complete marks the operation completed. Its reserved quantities are
// consumed: the reservations are dropped without restoring stock.
func (s *OperationService) Complete(ctx context.Context, jobID, operationID string) (*entity.Operation, error) {
	var op *entity.Operation
	var consumed int
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		op, err = lockOperation(ctx, tx, jobID, operationID)
		if err != nil {
			return err
		}
		if op.Status == entity.OperationStatusCompleted {
			return ErrOperationCompleted
		}
		held, err := tx.Material.ReservationsByOperation(ctx, op.ID)
		if err != nil {
			return fmt.Errorf("load reservations: %w", err)
		}
		ids := make([]string, 0, len(held))
		for _, r := range held {
			ids = append(ids, r.MaterialID)
		}
		if _, err := tx.Material.LockByIDs(ctx, ids); err != nil {
			return fmt.Errorf("lock materials: %w", err)
		}
		for _, r := range held {
			if err := tx.Material.Adjust(ctx, r.MaterialID, 0, -r.RequiredQuantity, false); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("consume material %s: %w", r.MaterialID, err)
			}
		}
		if err := tx.Material.DeleteReservationsByOperation(ctx, op.ID); err != nil {
			return fmt.Errorf("delete reservations: %w", err)
		}
		consumed = len(held)

		now := time.Now()
		op.Status = entity.OperationStatusCompleted
		op.CompletedAt = &now
		return tx.Operation.Update(ctx, op)
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordStockAdjustment("consume", consumed)
	return op, nil
}

// List 工单下的工序
func (s *OperationService) List(ctx context.Context, jobID string) ([]entity.Operation, error) {
	if _, err := s.repos.Job.FindByID(ctx, jobID); err != nil {
		return nil, notFound(err, ErrJobNotFound)
	}
	return s.repos.Operation.ListByJob(ctx, jobID)
}

// Get 工序详情
func (s *OperationService) Get(ctx context.Context, jobID, operationID string) (*entity.Operation, error) {
	op, err := s.repos.Operation.FindByID(ctx, operationID)
	if err != nil {
		return nil, notFound(err, ErrOperationNotFound)
	}
	if op.JobID != jobID {
		return nil, ErrOperationNotFound
	}
	return op, nil
}

func (s *OperationService) lockMaterials(ctx context.Context, tx *repository.Repositories, ids []string) (map[string]*entity.RawMaterial, error) {
	materials, err := tx.Material.LockByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock materials: %w", err)
	}
	if id := missingMaterial(ids, materials); id != "" {
		return nil, fmt.Errorf("%w: %s", ErrMaterialNotFound, id)
	}
	return materials, nil
}

func lockOperation(ctx context.Context, tx *repository.Repositories, jobID, operationID string) (*entity.Operation, error) {
	op, err := tx.Operation.FindByIDForUpdate(ctx, operationID)
	if err != nil {
		return nil, notFound(err, ErrOperationNotFound)
	}
	if op.JobID != jobID {
		return nil, ErrOperationNotFound
	}
	return op, nil
}

// reserve decrements stock and records one reservation per requirement.
func reserve(ctx context.Context, tx *repository.Repositories, jobID, operationID string, reqs []entity.MaterialRequirement) error {
	for _, r := range reqs {
		if err := tx.Material.Adjust(ctx, r.MaterialID, -r.Quantity, r.Quantity, false); err != nil {
			return fmt.Errorf("reserve material %s: %w", r.MaterialID, notFound(err, ErrMaterialNotFound))
		}
		if err := tx.Material.CreateReservation(ctx, &entity.MaterialReservation{
			ID:               uuid.New().String(),
			MaterialID:       r.MaterialID,
			JobID:            jobID,
			OperationID:      operationID,
			RequiredQuantity: r.Quantity,
		}); err != nil {
			return fmt.Errorf("record reservation: %w", err)
		}
	}
	return nil
}

// release returns held quantities to stock and deletes the reservation rows.
func release(ctx context.Context, tx *repository.Repositories, operationID string, held []entity.MaterialReservation) error {
	for _, r := range held {
		err := tx.Material.Adjust(ctx, r.MaterialID, r.RequiredQuantity, -r.RequiredQuantity, false)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("release material %s: %w", r.MaterialID, err)
		}
	}
	if err := tx.Material.DeleteReservationsByOperation(ctx, operationID); err != nil {
		return fmt.Errorf("delete reservations: %w", err)
	}
	return nil
}

func markAtRisk(ctx context.Context, tx *repository.Repositories, job *entity.Job) error {
	if job.Status == entity.JobStatusAtRisk {
		return nil
	}
	if err := tx.Job.UpdateFields(ctx, job.ID, map[string]interface{}{
		"status":     entity.JobStatusAtRisk,
		"updated_at": time.Now(),
	}); err != nil {
		return fmt.Errorf("mark job at risk: %w", err)
	}
	job.Status = entity.JobStatusAtRisk
	return nil
}

func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
