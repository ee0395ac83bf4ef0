// Package recurrence links jobs into parent/child chains and records the
// audit log of recurrence-affecting edits. Duplication is the only in-band
// chain builder; no scheduler generates future occurrences.
package recurrence

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/servicehub/servicehub/internal/lifecycle"
	"github.com/servicehub/servicehub/internal/models"
	"github.com/servicehub/servicehub/pkg/repository"
)

type Manager struct {
	jobs    repository.JobRepo
	log     repository.RecurrenceLogRepo
	machine *lifecycle.Machine
	logger  *slog.Logger
}

func New(jr repository.JobRepo, lr repository.RecurrenceLogRepo, m *lifecycle.Machine, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return &Manager{jobs: jr, log: lr, machine: m, logger: logger}
}

// Duplicate creates a new job copying the source's requester, worker,
// service, zone, date, description, payment and repetition settings. The new
// job's parent_job_id references the source, and its status follows the
// create rule (assigned when the copied worker reference is present).
// Overrides, when non-nil, replace the copied values before creation.
func (mg *Manager) Duplicate(ctx context.Context, sourceID int64, overrides *models.JobChanges, actor lifecycle.Actor) (int64, error) {
	src, err := mg.jobs.GetJob(ctx, sourceID)
	if err != nil {
		return 0, fmt.Errorf("load source job: %w", err)
	}
	if src == nil || !src.IsActive {
		return 0, fmt.Errorf("%w: job %d", models.ErrNotFound, sourceID)
	}

	parentID := src.ID
	dup := &models.Job{
		RequesterID:       src.RequesterID,
		WorkerID:          src.WorkerID,
		ServiceNeededID:   src.ServiceNeededID,
		Zone:              src.Zone,
		DateNeeded:        src.DateNeeded,
		Description:       src.Description,
		PaymentAmount:     src.PaymentAmount,
		Repeated:          src.Repeated,
		RecurrencePattern: src.RecurrencePattern,
		ParentJobID:       &parentID,
	}
	if overrides != nil {
		applyOverrides(dup, overrides)
	}

	id, err := mg.machine.Create(ctx, dup, actor)
	if err != nil {
		return 0, err
	}

	mg.logger.Info("job duplicated",
		slog.Int64("source_job_id", sourceID),
		slog.Int64("new_job_id", id),
		slog.Int64("actor", actor.UserID),
	)

	return id, nil
}

// Propagate applies an admin edit of a recurring job's shared fields to its
// direct children. Only open (not completed/cancelled), active children are
// touched; chains are one level deep, so grandchildren are never visited.
// One change-log row is written atomically with the batch update; if no
// child was eligible nothing is written at all. Children keep their own
// date_needed: occurrences are not regenerated.
func (mg *Manager) Propagate(ctx context.Context, parentID int64, ch *models.JobChanges, actor lifecycle.Actor) (int64, error) {
	parent, err := mg.jobs.GetJob(ctx, parentID)
	if err != nil {
		return 0, fmt.Errorf("load parent job: %w", err)
	}
	if parent == nil || !parent.IsActive {
		return 0, fmt.Errorf("%w: job %d", models.ErrNotFound, parentID)
	}
	if !parent.Repeated {
		return 0, fmt.Errorf("%w: job %d is not recurring", models.ErrValidation, parentID)
	}

	shared := sharedChanges(ch)
	if shared == nil {
		return 0, nil
	}
	if shared.RecurrencePattern != nil && !models.ValidRecurrencePattern(*shared.RecurrencePattern) {
		return 0, fmt.Errorf("%w: invalid recurrence pattern %q", models.ErrValidation, *shared.RecurrencePattern)
	}
	if shared.Zone != nil && *shared.Zone != "" && !models.ValidZone(*shared.Zone) {
		return 0, fmt.Errorf("%w: unknown zone %q", models.ErrValidation, *shared.Zone)
	}

	affected, err := mg.jobs.PropagateToChildren(ctx, parentID, shared, actor.UserID)
	if err != nil {
		return 0, fmt.Errorf("propagate to children: %w", err)
	}

	mg.logger.Info("recurrence edit propagated",
		slog.Int64("parent_job_id", parentID),
		slog.Int64("affected_jobs", affected),
		slog.Int64("actor", actor.UserID),
	)

	return affected, nil
}

// Changes returns the append-only audit log for a job, newest first.
func (mg *Manager) Changes(ctx context.Context, jobID int64) ([]models.RecurrenceChange, error) {
	job, err := mg.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: job %d", models.ErrNotFound, jobID)
	}

	return mg.log.ListRecurrenceChanges(ctx, jobID)
}

// sharedChanges keeps the fields a recurrence chain shares across its
// occurrences. Dates and party references stay per-occurrence.
func sharedChanges(ch *models.JobChanges) *models.JobChanges {
	if ch == nil {
		return nil
	}

	shared := &models.JobChanges{
		Zone:              ch.Zone,
		Description:       ch.Description,
		PaymentAmount:     ch.PaymentAmount,
		RecurrencePattern: ch.RecurrencePattern,
	}
	if shared.Zone == nil && shared.Description == nil && shared.PaymentAmount == nil && shared.RecurrencePattern == nil {
		return nil
	}

	return shared
}

func applyOverrides(j *models.Job, ch *models.JobChanges) {
	if ch.RequesterID != nil {
		j.RequesterID = *ch.RequesterID
	}
	if ch.ServiceNeededID != nil {
		j.ServiceNeededID = *ch.ServiceNeededID
	}
	if ch.Zone != nil {
		j.Zone = *ch.Zone
	}
	if ch.DateNeeded != nil {
		j.DateNeeded = *ch.DateNeeded
	}
	if ch.Description != nil {
		j.Description = *ch.Description
	}
	if ch.PaymentAmount != nil {
		j.PaymentAmount = *ch.PaymentAmount
	}
	if ch.Notes != nil {
		j.Notes = *ch.Notes
	}
	if ch.Repeated != nil {
		j.Repeated = *ch.Repeated
	}
	if ch.RecurrencePattern != nil {
		j.RecurrencePattern = *ch.RecurrencePattern
	}
}
