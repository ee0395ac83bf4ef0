package repository

import (
	"context"

	"github.com/servicehub/servicehub/internal/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Get* methods return (nil, nil) when no row matches; callers decide whether
// that is a not-found error.

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
}

type ServiceTypeRepo interface {
	CreateServiceType(ctx context.Context, s *models.ServiceType) (int64, error)
	GetServiceType(ctx context.Context, id int64) (*models.ServiceType, error)
	ListServiceTypes(ctx context.Context) ([]models.ServiceType, error)
	UpdateServiceType(ctx context.Context, s *models.ServiceType) error
	DeleteServiceType(ctx context.Context, id int64) error
}

// WorkerFilter narrows worker listings. Zero values mean "no constraint".
type WorkerFilter struct {
	Status     string
	Zone       string
	ServiceID  int64 // matches primary or secondary skill
	ActiveOnly bool
}

type WorkerRepo interface {
	CreateWorker(ctx context.Context, w *models.Worker) (int64, error)
	GetWorker(ctx context.Context, id int64) (*models.Worker, error)
	GetWorkerByUser(ctx context.Context, userID int64) (*models.Worker, error)
	ListWorkers(ctx context.Context, f WorkerFilter) ([]models.Worker, error)
	UpdateWorker(ctx context.Context, w *models.Worker) error
	DeactivateWorker(ctx context.Context, id int64) error
	// ApproveWorkers bulk-approves the active workers among ids and returns
	// how many rows changed. Inactive ids are ignored.
	ApproveWorkers(ctx context.Context, ids []int64) (int64, error)
}

// RequesterFilter narrows requester listings.
type RequesterFilter struct {
	Status     string
	ActiveOnly bool
}

type RequesterRepo interface {
	CreateRequester(ctx context.Context, r *models.Requester) (int64, error)
	GetRequester(ctx context.Context, id int64) (*models.Requester, error)
	GetRequesterByUser(ctx context.Context, userID int64) (*models.Requester, error)
	ListRequesters(ctx context.Context, f RequesterFilter) ([]models.Requester, error)
	UpdateRequester(ctx context.Context, r *models.Requester) error
	SetRegularServices(ctx context.Context, requesterID int64, serviceIDs []int64) error
	DeactivateRequester(ctx context.Context, id int64) error
	ApproveRequesters(ctx context.Context, ids []int64) (int64, error)
}

// JobFilter narrows job listings. DateFrom/DateTo bound date_needed in unix
// milliseconds; Repeated is a tri-state.
type JobFilter struct {
	Status      string
	RequesterID int64
	WorkerID    int64
	ServiceID   int64
	Zone        string
	DateFrom    int64
	DateTo      int64
	Repeated    *bool
	ActiveOnly  bool
}

type JobRepo interface {
	CreateJob(ctx context.Context, j *models.Job) (int64, error)
	GetJob(ctx context.Context, id int64) (*models.Job, error)
	ListJobs(ctx context.Context, f JobFilter) ([]models.Job, error)
	ListChildren(ctx context.Context, parentID int64) ([]models.Job, error)
	UpdateJobFields(ctx context.Context, id int64, ch *models.JobChanges) error
	AssignJob(ctx context.Context, id, workerID, assignedAt int64) error
	UnassignJob(ctx context.Context, id int64) error
	// CompleteJob closes the job and refreshes the worker rating aggregate
	// in one transaction.
	CompleteJob(ctx context.Context, id int64, rating *int64, review string, completedAt int64) error
	CancelJob(ctx context.Context, id int64) error
	DeactivateJob(ctx context.Context, id int64) error
	SetServicesUsed(ctx context.Context, jobID int64, serviceIDs []int64) error
	// BusyWorkerIDs returns the workers holding a pending or assigned job
	// whose date_needed falls within [from, to].
	BusyWorkerIDs(ctx context.Context, from, to int64) ([]int64, error)
	// PropagateToChildren applies the change set to every open, active
	// direct child of parentID and records one recurrence change log row in
	// the same transaction. Returns the number of children updated; when no
	// child is eligible nothing is written, including the log row.
	PropagateToChildren(ctx context.Context, parentID int64, ch *models.JobChanges, changedBy int64) (int64, error)
}

type RecurrenceLogRepo interface {
	ListRecurrenceChanges(ctx context.Context, jobID int64) ([]models.RecurrenceChange, error)
}

type StatsRepo interface {
	DashboardCounts(ctx context.Context) (*models.DashboardCounts, error)
}
