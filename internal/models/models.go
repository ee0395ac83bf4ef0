package models

import "fmt"

// Status values shared by directory records and jobs.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusAssigned  = "assigned"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// User roles.
const (
	RoleAdmin     = "admin"
	RoleWorker    = "worker"
	RoleRequester = "requester"
)

// Recurrence patterns allowed on repeated jobs.
const (
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// ValidRecurrencePattern reports whether p is an accepted recurrence pattern.
func ValidRecurrencePattern(p string) bool {
	switch p {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Zones lists the neighborhood keys used for coarse geographic matching.
// Matching is plain string equality on these keys, no distance metric.
var Zones = []string{
	"akebe", "lalala", "owendo", "glass", "nzeng_ayong",
	"alibandeng", "charbonnages", "bel_air", "mtb", "pk5",
}

// ValidZone reports whether z is a known zone key.
func ValidZone(z string) bool {
	for _, known := range Zones {
		if z == known {
			return true
		}
	}
	return false
}

type User struct {
	ID           int64  `json:"id" db:"id"`
	Role         string `json:"role" db:"role"`
	Username     string `json:"username" db:"username"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	IsAdmin      bool   `json:"is_admin" db:"is_admin"`
	Created      int64  `json:"created" db:"created"`
}

type ServiceType struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Worker struct {
	ID              int64   `json:"id" db:"id"`
	UserID          int64   `json:"user_id,omitempty" db:"user_id"`
	FirstName       string  `json:"first_name" db:"first_name"`
	LastName        string  `json:"last_name" db:"last_name"`
	Email           string  `json:"email,omitempty" db:"email"`
	CountryCode     string  `json:"country_code,omitempty" db:"country_code"`
	PhoneNumber     string  `json:"phone_number,omitempty" db:"phone_number"`
	Zone            string  `json:"zone" db:"zone"`
	City            string  `json:"city" db:"city"`
	JobPrimaryID    int64   `json:"job_primary_id" db:"job_primary_id"`
	JobSecondaryID  *int64  `json:"job_secondary_id,omitempty" db:"job_secondary_id"`
	ExperienceYears int     `json:"experience_years,omitempty" db:"experience_years"`
	SalaryPerJob    int64   `json:"salary_per_job,omitempty" db:"salary_per_job"`
	Bio             string  `json:"bio,omitempty" db:"bio"`
	Source          string  `json:"source,omitempty" db:"source"`
	ProfilePicture  string  `json:"profile_picture,omitempty" db:"profile_picture"`
	IDDocument      string  `json:"id_document,omitempty" db:"id_document"`
	Notes           string  `json:"notes,omitempty" db:"notes"`
	Status          string  `json:"status" db:"status"`
	IsActive        bool    `json:"is_active" db:"is_active"`
	AvgRating       float64 `json:"avg_rating" db:"avg_rating"`
	RatingCount     int64   `json:"rating_count" db:"rating_count"`
	Created         int64   `json:"created" db:"created"`
}

// FullName returns the display name used in admin listings.
func (w *Worker) FullName() string {
	return fmt.Sprintf("%s %s", w.FirstName, w.LastName)
}

type Requester struct {
	ID              int64   `json:"id" db:"id"`
	UserID          int64   `json:"user_id,omitempty" db:"user_id"`
	FirstName       string  `json:"first_name" db:"first_name"`
	LastName        string  `json:"last_name" db:"last_name"`
	Email           string  `json:"email" db:"email"`
	CountryCode     string  `json:"country_code,omitempty" db:"country_code"`
	PhoneNumber     string  `json:"phone_number,omitempty" db:"phone_number"`
	Source          string  `json:"source,omitempty" db:"source"`
	Notes           string  `json:"notes,omitempty" db:"notes"`
	Status          string  `json:"status" db:"status"`
	IsActive        bool    `json:"is_active" db:"is_active"`
	RegularServices []int64 `json:"regular_services,omitempty" db:"-"`
	Created         int64   `json:"created" db:"created"`
}

func (r *Requester) FullName() string {
	return fmt.Sprintf("%s %s", r.FirstName, r.LastName)
}

type Job struct {
	ID                int64   `json:"id" db:"id"`
	RequesterID       int64   `json:"requester_id" db:"requester_id"`
	WorkerID          *int64  `json:"worker_id,omitempty" db:"worker_id"`
	ServiceNeededID   int64   `json:"service_needed_id" db:"service_needed_id"`
	ServicesUsed      []int64 `json:"services_used,omitempty" db:"-"`
	Zone              string  `json:"zone,omitempty" db:"zone"`
	DateNeeded        int64   `json:"date_needed" db:"date_needed"`
	Description       string  `json:"description,omitempty" db:"description"`
	PaymentAmount     int64   `json:"payment_amount,omitempty" db:"payment_amount"`
	Status            string  `json:"status" db:"status"`
	AssignedAt        *int64  `json:"assigned_at,omitempty" db:"assigned_at"`
	CompletedAt       *int64  `json:"completed_at,omitempty" db:"completed_at"`
	Rating            *int64  `json:"rating,omitempty" db:"rating"`
	Review            string  `json:"review,omitempty" db:"review"`
	Notes             string  `json:"notes,omitempty" db:"notes"`
	Repeated          bool    `json:"repeated" db:"repeated"`
	RecurrencePattern string  `json:"recurrence_pattern,omitempty" db:"recurrence_pattern"`
	ParentJobID       *int64  `json:"parent_job_id,omitempty" db:"parent_job_id"`
	IsActive          bool    `json:"is_active" db:"is_active"`
	Created           int64   `json:"created" db:"created"`
}

// Closed reports whether the job reached a terminal state. Closed jobs
// reject every further edit.
func (j *Job) Closed() bool {
	return j.Status == StatusCompleted || j.Status == StatusCancelled
}

// JobChanges carries the optional field edits applied to an open job. A nil
// pointer means "leave the field alone". Worker assignment is deliberately
// absent: it moves only through the named lifecycle transitions.
type JobChanges struct {
	RequesterID       *int64  `json:"requester_id,omitempty"`
	ServiceNeededID   *int64  `json:"service_needed_id,omitempty"`
	Zone              *string `json:"zone,omitempty"`
	DateNeeded        *int64  `json:"-"`
	Description       *string `json:"description,omitempty"`
	PaymentAmount     *int64  `json:"payment_amount,omitempty"`
	Notes             *string `json:"notes,omitempty"`
	Repeated          *bool   `json:"repeated,omitempty"`
	RecurrencePattern *string `json:"recurrence_pattern,omitempty"`
}

// FieldNames returns the names of the fields carried by the change set, in
// a fixed order. The recurrence change log stores this list.
func (c *JobChanges) FieldNames() []string {
	var out []string
	if c.RequesterID != nil {
		out = append(out, "requester_id")
	}
	if c.ServiceNeededID != nil {
		out = append(out, "service_needed_id")
	}
	if c.Zone != nil {
		out = append(out, "zone")
	}
	if c.DateNeeded != nil {
		out = append(out, "date_needed")
	}
	if c.Description != nil {
		out = append(out, "description")
	}
	if c.PaymentAmount != nil {
		out = append(out, "payment_amount")
	}
	if c.Notes != nil {
		out = append(out, "notes")
	}
	if c.Repeated != nil {
		out = append(out, "repeated")
	}
	if c.RecurrencePattern != nil {
		out = append(out, "recurrence_pattern")
	}
	return out
}

// RecurrenceChange is one append-only audit row recorded when an edit to a
// recurring job is propagated to its children.
type RecurrenceChange struct {
	ID            int64    `json:"id" db:"id"`
	JobID         int64    `json:"job_id" db:"job_id"`
	ChangedBy     int64    `json:"changed_by" db:"changed_by"`
	FieldsChanged []string `json:"fields_changed" db:"-"`
	AffectedJobs  int64    `json:"affected_jobs" db:"affected_jobs"`
	Created       int64    `json:"created" db:"created"`
}

// DashboardCounts backs the admin dashboard.
type DashboardCounts struct {
	Workers           int64 `json:"workers"`
	PendingWorkers    int64 `json:"pending_workers"`
	Requesters        int64 `json:"requesters"`
	PendingRequesters int64 `json:"pending_requesters"`
	Jobs              int64 `json:"jobs"`
	PendingJobs       int64 `json:"pending_jobs"`
	AssignedJobs      int64 `json:"assigned_jobs"`
}
