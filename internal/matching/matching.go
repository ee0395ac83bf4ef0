// Package matching computes the set of eligible, available workers for a
// requested service, zone and time window. Results feed the admin's
// assignment choice; they are labeled for display, not ranked.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/servicehub/servicehub/internal/models"
	"github.com/servicehub/servicehub/pkg/repository"
)

// Window is the conflict-avoidance buffer around the requested time. A
// worker with a pending or assigned job inside date_needed ± Window is
// excluded from the results.
const Window = time.Hour

// Request describes one matching query. Zone is optional; when set the
// filter is exact string equality. DateNeeded is required: without it the
// availability exclusion would be meaningless.
type Request struct {
	ServiceID  int64
	Zone       string
	DateNeeded int64 // unix milliseconds
}

// Candidate is one eligible worker with its display labels.
type Candidate struct {
	Worker      models.Worker `json:"worker"`
	Role        string        `json:"role"`
	RatingLabel string        `json:"rating_label"`
}

const (
	RolePrimary   = "primary"
	RoleSecondary = "secondary"

	// NoRatingLabel marks workers with no completed rated job; they are
	// never shown as a numeric zero.
	NoRatingLabel = "no rating"
)

type Engine struct {
	workers  repository.WorkerRepo
	jobs     repository.JobRepo
	services repository.ServiceTypeRepo
	logger   *slog.Logger
}

func New(wr repository.WorkerRepo, jr repository.JobRepo, sr repository.ServiceTypeRepo, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return &Engine{workers: wr, jobs: jr, services: sr, logger: logger}
}

// Match returns the eligible workers in query order. The availability check
// and any later assignment are separate operations; two concurrent
// assignments can both pass the check for the same worker and window.
func (e *Engine) Match(ctx context.Context, req Request) ([]Candidate, error) {
	if req.ServiceID <= 0 {
		return nil, fmt.Errorf("%w: service id is required", models.ErrValidation)
	}
	if req.DateNeeded <= 0 {
		return nil, fmt.Errorf("%w: date_needed is required", models.ErrValidation)
	}
	if req.Zone != "" && !models.ValidZone(req.Zone) {
		return nil, fmt.Errorf("%w: unknown zone %q", models.ErrValidation, req.Zone)
	}

	svc, err := e.services.GetServiceType(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("load service type: %w", err)
	}
	if svc == nil {
		return nil, fmt.Errorf("%w: service type %d", models.ErrNotFound, req.ServiceID)
	}

	workers, err := e.workers.ListWorkers(ctx, repository.WorkerFilter{
		ServiceID:  req.ServiceID,
		Zone:       req.Zone,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list candidate workers: %w", err)
	}

	from := req.DateNeeded - Window.Milliseconds()
	to := req.DateNeeded + Window.Milliseconds()
	ids, err := e.jobs.BusyWorkerIDs(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list busy workers: %w", err)
	}
	busy := map[int64]bool{}
	for _, id := range ids {
		busy[id] = true
	}

	out := make([]Candidate, 0, len(workers))
	for _, w := range workers {
		if busy[w.ID] {
			continue
		}

		out = append(out, Candidate{
			Worker:      w,
			Role:        roleFor(&w, req.ServiceID),
			RatingLabel: RatingLabel(&w),
		})
	}

	e.logger.Info("matched workers",
		slog.Int64("service_id", req.ServiceID),
		slog.String("zone", req.Zone),
		slog.Int("candidates", len(out)),
	)

	return out, nil
}

func roleFor(w *models.Worker, serviceID int64) string {
	if w.JobPrimaryID == serviceID {
		return RolePrimary
	}
	return RoleSecondary
}

// RatingLabel renders the formatted average-rating string shown beside a
// candidate, e.g. "4.5★".
func RatingLabel(w *models.Worker) string {
	if w.RatingCount == 0 {
		return NoRatingLabel
	}
	return fmt.Sprintf("%.1f★", w.AvgRating)
}
