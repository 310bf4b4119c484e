package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/google/uuid"
)

// ErrSeedHasOperations blocks seeding while operations still hold reservations.
var ErrSeedHasOperations = errors.New("jobs have operations; remove them before seeding")

// SeedJobs replaces every job with perSchedule general and perSchedule
// priority test jobs at dense positions 1..perSchedule.
func SeedJobs(ctx context.Context, repos *repository.Repositories, userID string, perSchedule int, now time.Time) (int, error) {
	if perSchedule <= 0 {
		return 0, fmt.Errorf("%w: per-schedule count must be positive", ErrInvalidInput)
	}

	var inserted int
	err := repos.Transaction(ctx, func(tx *repository.Repositories) error {
		// same order as Move
		for _, st := range []string{entity.ScheduleGeneral, entity.SchedulePriority} {
			if err := tx.Job.LockSchedule(ctx, st); err != nil {
				return fmt.Errorf("lock schedule: %w", err)
			}
		}

		ops, err := tx.Operation.Count(ctx)
		if err != nil {
			return fmt.Errorf("count operations: %w", err)
		}
		if ops > 0 {
			return ErrSeedHasOperations
		}

		divisions, err := tx.Division.List(ctx)
		if err != nil {
			return fmt.Errorf("list divisions: %w", err)
		}
		users, err := tx.User.ListNames(ctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		divisionNames := make([]string, 0, 2)
		for i := 0; i < len(divisions) && i < 2; i++ {
			divisionNames = append(divisionNames, divisions[i].Name)
		}
		if len(users) > 2 {
			users = users[:2]
		}

		if err := tx.Job.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear jobs: %w", err)
		}

		jobs := make([]entity.Job, 0, 2*perSchedule)
		for i := 1; i <= perSchedule; i++ {
			jobs = append(jobs, seedJob(
				fmt.Sprintf("General Maintenance Task #%d", i),
				fmt.Sprintf("This is a test description for general job number %d.", i),
				[]string{"testing", "general-schedule", fmt.Sprintf("task-%d", i)},
				entity.ScheduleGeneral, i, now, now.AddDate(0, 0, i),
				divisionNames, users, userID,
			))
		}
		for i := 1; i <= perSchedule; i++ {
			jobs = append(jobs, seedJob(
				fmt.Sprintf("Priority Alert Response #%d", i),
				fmt.Sprintf("This is a test description for priority job number %d.", i),
				[]string{"testing", "priority-schedule", fmt.Sprintf("alert-%d", i)},
				entity.SchedulePriority, i, now, now.Add(time.Duration(2*i)*time.Hour),
				divisionNames, users, userID,
			))
		}
		if err := tx.Job.CreateBatch(ctx, jobs); err != nil {
			return fmt.Errorf("insert jobs: %w", err)
		}
		inserted = len(jobs)
		return nil
	})
	return inserted, err
}

func seedJob(name, description string, tags []string, scheduleType string, position int, start, done time.Time, divisions, coordinators []string, userID string) entity.Job {
	startTime, completion := start, done
	return entity.Job{
		ID:               uuid.New().String(),
		JobName:          name,
		Description:      description,
		Divisions:        append([]string{}, divisions...),
		Coordinators:     append([]string{}, coordinators...),
		Tags:             tags,
		Status:           entity.JobStatusPending,
		ScheduleType:     scheduleType,
		SchedulePosition: position,
		StartTime:        &startTime,
		CompletionTime:   &completion,
		CreatedBy:        userID,
	}
}
