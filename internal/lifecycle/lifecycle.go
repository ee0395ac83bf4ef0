// Package lifecycle owns the job state machine. Status moves only through
// the named transitions below; it is never recomputed as a side effect of a
// field save, and a closed job rejects every edit before any field is
// touched.
//
//	pending -> assigned -> completed
//	pending -> cancelled
//	assigned -> cancelled
//	assigned -> pending (explicit unassign)
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/servicehub/servicehub/internal/models"
	"github.com/servicehub/servicehub/pkg/repository"
)

// Actor identifies the verified user performing a transition. The request
// layer authenticates; the machine only records and logs.
type Actor struct {
	UserID  int64
	Role    string
	IsAdmin bool
}

type Machine struct {
	jobs       repository.JobRepo
	workers    repository.WorkerRepo
	requesters repository.RequesterRepo
	services   repository.ServiceTypeRepo
	logger     *slog.Logger
}

func New(jr repository.JobRepo, wr repository.WorkerRepo, rr repository.RequesterRepo, sr repository.ServiceTypeRepo, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return &Machine{jobs: jr, workers: wr, requesters: rr, services: sr, logger: logger}
}

// Create validates and persists a new job. Status is pending, or assigned
// with assigned_at stamped when a worker is supplied at creation.
func (m *Machine) Create(ctx context.Context, j *models.Job, actor Actor) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("%w: job is nil", models.ErrValidation)
	}
	if j.DateNeeded <= 0 {
		return 0, fmt.Errorf("%w: date_needed is required", models.ErrValidation)
	}
	if j.Zone != "" && !models.ValidZone(j.Zone) {
		return 0, fmt.Errorf("%w: unknown zone %q", models.ErrValidation, j.Zone)
	}
	if err := validateRecurrence(j.Repeated, j.RecurrencePattern); err != nil {
		return 0, err
	}
	if !j.Repeated {
		j.RecurrencePattern = ""
	}

	req, err := m.requesters.GetRequester(ctx, j.RequesterID)
	if err != nil {
		return 0, fmt.Errorf("load requester: %w", err)
	}
	if req == nil || !req.IsActive {
		return 0, fmt.Errorf("%w: requester %d", models.ErrNotFound, j.RequesterID)
	}
	if req.Status != models.StatusApproved {
		return 0, fmt.Errorf("%w: requester %d is not approved", models.ErrValidation, j.RequesterID)
	}

	svc, err := m.services.GetServiceType(ctx, j.ServiceNeededID)
	if err != nil {
		return 0, fmt.Errorf("load service type: %w", err)
	}
	if svc == nil {
		return 0, fmt.Errorf("%w: service type %d", models.ErrNotFound, j.ServiceNeededID)
	}

	if j.ParentJobID != nil {
		parent, err := m.jobs.GetJob(ctx, *j.ParentJobID)
		if err != nil {
			return 0, fmt.Errorf("load parent job: %w", err)
		}
		if parent == nil || !parent.IsActive {
			return 0, fmt.Errorf("%w: parent job %d", models.ErrNotFound, *j.ParentJobID)
		}
	}

	if j.WorkerID != nil {
		w, err := m.workers.GetWorker(ctx, *j.WorkerID)
		if err != nil {
			return 0, fmt.Errorf("load worker: %w", err)
		}
		if w == nil || !w.IsActive {
			return 0, fmt.Errorf("%w: worker %d", models.ErrNotFound, *j.WorkerID)
		}

		j.Status = models.StatusAssigned
		at := nowMillis()
		j.AssignedAt = &at
	} else {
		j.Status = models.StatusPending
		j.AssignedAt = nil
	}

	id, err := m.jobs.CreateJob(ctx, j)
	if err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}

	m.logger.Info("job created",
		slog.Int64("job_id", id),
		slog.String("status", j.Status),
		slog.Int64("actor", actor.UserID),
	)

	return id, nil
}

// Update edits an open job. Closed jobs are rejected wholesale; worker
// assignment cannot be changed here (use Assign/Unassign).
func (m *Machine) Update(ctx context.Context, id int64, ch *models.JobChanges, actor Actor) (*models.Job, error) {
	if ch == nil {
		return nil, fmt.Errorf("%w: no changes", models.ErrValidation)
	}

	job, err := m.openJob(ctx, id)
	if err != nil {
		return nil, err
	}

	// Validate the merged recurrence rule before touching anything.
	repeated := job.Repeated
	if ch.Repeated != nil {
		repeated = *ch.Repeated
	}
	pattern := job.RecurrencePattern
	if ch.RecurrencePattern != nil {
		pattern = *ch.RecurrencePattern
	}
	if err := validateRecurrence(repeated, pattern); err != nil {
		return nil, err
	}
	if !repeated {
		empty := ""
		ch.RecurrencePattern = &empty
	}

	if ch.Zone != nil && *ch.Zone != "" && !models.ValidZone(*ch.Zone) {
		return nil, fmt.Errorf("%w: unknown zone %q", models.ErrValidation, *ch.Zone)
	}
	if ch.DateNeeded != nil && *ch.DateNeeded <= 0 {
		return nil, fmt.Errorf("%w: invalid date_needed", models.ErrValidation)
	}
	if ch.RequesterID != nil {
		req, err := m.requesters.GetRequester(ctx, *ch.RequesterID)
		if err != nil {
			return nil, fmt.Errorf("load requester: %w", err)
		}
		if req == nil || !req.IsActive {
			return nil, fmt.Errorf("%w: requester %d", models.ErrNotFound, *ch.RequesterID)
		}
	}
	if ch.ServiceNeededID != nil {
		svc, err := m.services.GetServiceType(ctx, *ch.ServiceNeededID)
		if err != nil {
			return nil, fmt.Errorf("load service type: %w", err)
		}
		if svc == nil {
			return nil, fmt.Errorf("%w: service type %d", models.ErrNotFound, *ch.ServiceNeededID)
		}
	}

	if err := m.jobs.UpdateJobFields(ctx, id, ch); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	m.logger.Info("job updated", slog.Int64("job_id", id), slog.Int64("actor", actor.UserID))

	return m.jobs.GetJob(ctx, id)
}

// Assign moves a pending job to assigned and stamps assigned_at.
func (m *Machine) Assign(ctx context.Context, id, workerID int64, actor Actor) error {
	job, err := m.openJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != models.StatusPending {
		return fmt.Errorf("%w: job %d is %s, only a pending job can be assigned", models.ErrValidation, id, job.Status)
	}

	w, err := m.workers.GetWorker(ctx, workerID)
	if err != nil {
		return fmt.Errorf("load worker: %w", err)
	}
	if w == nil || !w.IsActive {
		return fmt.Errorf("%w: worker %d", models.ErrNotFound, workerID)
	}

	if err := m.jobs.AssignJob(ctx, id, workerID, nowMillis()); err != nil {
		return fmt.Errorf("assign job: %w", err)
	}

	m.logger.Info("job assigned",
		slog.Int64("job_id", id),
		slog.Int64("worker_id", workerID),
		slog.Int64("actor", actor.UserID),
	)

	return nil
}

// Unassign moves an assigned job back to pending, clearing the worker
// reference and assigned_at.
func (m *Machine) Unassign(ctx context.Context, id int64, actor Actor) error {
	job, err := m.openJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != models.StatusAssigned {
		return fmt.Errorf("%w: job %d is %s, only an assigned job can be unassigned", models.ErrValidation, id, job.Status)
	}

	if err := m.jobs.UnassignJob(ctx, id); err != nil {
		return fmt.Errorf("unassign job: %w", err)
	}

	m.logger.Info("job unassigned", slog.Int64("job_id", id), slog.Int64("actor", actor.UserID))

	return nil
}

// Complete closes an assigned job, stamping completed_at and recording the
// rating and review supplied by the closing party.
func (m *Machine) Complete(ctx context.Context, id int64, rating *int64, review string, actor Actor) error {
	job, err := m.openJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != models.StatusAssigned {
		return fmt.Errorf("%w: job %d is %s, only an assigned job can be completed", models.ErrValidation, id, job.Status)
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return fmt.Errorf("%w: rating must be between 1 and 5", models.ErrValidation)
	}

	if err := m.jobs.CompleteJob(ctx, id, rating, review, nowMillis()); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}

	m.logger.Info("job completed", slog.Int64("job_id", id), slog.Int64("actor", actor.UserID))

	return nil
}

// Cancel closes an open job without completion.
func (m *Machine) Cancel(ctx context.Context, id int64, actor Actor) error {
	if _, err := m.openJob(ctx, id); err != nil {
		return err
	}

	if err := m.jobs.CancelJob(ctx, id); err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}

	m.logger.Info("job cancelled", slog.Int64("job_id", id), slog.Int64("actor", actor.UserID))

	return nil
}

// SoftDelete flips is_active. Historical references from the job remain.
func (m *Machine) SoftDelete(ctx context.Context, id int64, actor Actor) error {
	job, err := m.jobs.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("%w: job %d", models.ErrNotFound, id)
	}

	if err := m.jobs.DeactivateJob(ctx, id); err != nil {
		return fmt.Errorf("deactivate job: %w", err)
	}

	m.logger.Info("job deactivated", slog.Int64("job_id", id), slog.Int64("actor", actor.UserID))

	return nil
}

// openJob loads an active job and rejects closed ones before any edit.
func (m *Machine) openJob(ctx context.Context, id int64) (*models.Job, error) {
	job, err := m.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil || !job.IsActive {
		return nil, fmt.Errorf("%w: job %d", models.ErrNotFound, id)
	}
	if job.Closed() {
		return nil, fmt.Errorf("%w: job %d is %s", models.ErrJobClosed, id, job.Status)
	}

	return job, nil
}

func validateRecurrence(repeated bool, pattern string) error {
	if repeated && !models.ValidRecurrencePattern(pattern) {
		return fmt.Errorf("%w: a repeated job needs a recurrence pattern (daily, weekly or monthly)", models.ErrValidation)
	}
	return nil
}

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}
