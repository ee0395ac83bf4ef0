package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qri-io/jsonschema"

	"github.com/servicehub/servicehub/internal/lifecycle"
	"github.com/servicehub/servicehub/internal/matching"
	"github.com/servicehub/servicehub/internal/models"
	"github.com/servicehub/servicehub/internal/recurrence"
	"github.com/servicehub/servicehub/pkg/repository"
)

type JobsHandler struct {
	jobs       repository.JobRepo
	requesters repository.RequesterRepo
	workers    repository.WorkerRepo
	machine    *lifecycle.Machine
	engine     *matching.Engine
	recur      *recurrence.Manager
	schema     *jsonschema.Schema
}

func NewJobsHandler(jr repository.JobRepo, rr repository.RequesterRepo, wr repository.WorkerRepo, m *lifecycle.Machine, e *matching.Engine, rec *recurrence.Manager, schema *jsonschema.Schema) *JobsHandler {
	return &JobsHandler{jobs: jr, requesters: rr, workers: wr, machine: m, engine: e, recur: rec, schema: schema}
}

type jobCreateRequest struct {
	RequesterID       int64   `json:"requester_id"`
	WorkerID          *int64  `json:"worker_id"`
	ServiceNeededID   int64   `json:"service_needed_id"`
	Zone              string  `json:"zone"`
	DateNeeded        string  `json:"date_needed"`
	Description       string  `json:"description"`
	PaymentAmount     int64   `json:"payment_amount"`
	Notes             string  `json:"notes"`
	Repeated          bool    `json:"repeated"`
	RecurrencePattern string  `json:"recurrence_pattern"`
	ParentJobID       *int64  `json:"parent_job_id"`
	ServicesUsed      []int64 `json:"services_used"`
}

type jobUpdateRequest struct {
	RequesterID       *int64  `json:"requester_id"`
	ServiceNeededID   *int64  `json:"service_needed_id"`
	Zone              *string `json:"zone"`
	DateNeeded        *string `json:"date_needed"`
	Description       *string `json:"description"`
	PaymentAmount     *int64  `json:"payment_amount"`
	Notes             *string `json:"notes"`
	Repeated          *bool   `json:"repeated"`
	RecurrencePattern *string `json:"recurrence_pattern"`
	ApplyToChildren   bool    `json:"apply_to_children"`
}

// validateAndRead checks the raw payload against the embedded job schema
// before decoding, so malformed input fails with field detail and nothing
// is written.
func (h *JobsHandler) validateAndRead(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}

	keyErrs, err := h.schema.ValidateBytes(r.Context(), body)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	if len(keyErrs) > 0 {
		msgs := make([]string, 0, len(keyErrs))
		for _, ke := range keyErrs {
			msgs = append(msgs, ke.Error())
		}
		writeJSON(w, map[string]any{"errors": msgs}, http.StatusBadRequest)
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}

	return true
}

// List returns jobs filtered the way the admin job board filters them.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	f := repository.JobFilter{ActiveOnly: true}

	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		switch status {
		case models.StatusPending, models.StatusAssigned, models.StatusCompleted, models.StatusCancelled:
			f.Status = status
		default:
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
	}
	for name, dst := range map[string]*int64{
		"requester_id":    &f.RequesterID,
		"worker_id":       &f.WorkerID,
		"service_type_id": &f.ServiceID,
	} {
		if id, ok, err := queryID(r, name); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		} else if ok {
			*dst = id
		}
	}
	f.Zone = q.Get("zone")
	if day := q.Get("date"); day != "" {
		t, err := time.ParseInLocation("2006-01-02", day, time.UTC)
		if err != nil {
			http.Error(w, "invalid date format, use YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		f.DateFrom = t.UnixMilli()
		f.DateTo = t.Add(24*time.Hour - time.Millisecond).UnixMilli()
	}
	switch q.Get("repeated") {
	case "":
	case "1":
		v := true
		f.Repeated = &v
	case "0":
		v := false
		f.Repeated = &v
	default:
		http.Error(w, "invalid repeated filter", http.StatusBadRequest)
		return
	}

	jobs, err := h.jobs.ListJobs(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}

	writeJSON(w, jobs, http.StatusOK)
}

func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req jobCreateRequest
	if !h.validateAndRead(w, r, &req) {
		return
	}

	job, ok := h.jobFromCreate(w, &req)
	if !ok {
		return
	}

	id, err := h.machine.Create(r.Context(), job, actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]int64{"id": id}, http.StatusCreated)
}

func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if job == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	writeJSON(w, job, http.StatusOK)
}

// Update edits an open job. With apply_to_children the shared fields are
// propagated to the job's direct children and one audit row is recorded.
func (h *JobsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req jobUpdateRequest
	if !h.validateAndRead(w, r, &req) {
		return
	}

	ch := &models.JobChanges{
		RequesterID:       req.RequesterID,
		ServiceNeededID:   req.ServiceNeededID,
		Zone:              req.Zone,
		Description:       req.Description,
		PaymentAmount:     req.PaymentAmount,
		Notes:             req.Notes,
		Repeated:          req.Repeated,
		RecurrencePattern: req.RecurrencePattern,
	}
	if req.DateNeeded != nil {
		millis, err := parseDate(*req.DateNeeded)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ch.DateNeeded = &millis
	}

	actor := actorFrom(r)
	job, err := h.machine.Update(r.Context(), id, ch, actor)
	if err != nil {
		writeError(w, err)
		return
	}

	var affected int64
	if req.ApplyToChildren && job.Repeated {
		affected, err = h.recur.Propagate(r.Context(), id, ch, actor)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, map[string]any{"job": job, "children_updated": affected}, http.StatusOK)
}

func (h *JobsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.machine.SoftDelete(r.Context(), id, actorFrom(r)); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Duplicate copies a job as a new instance whose parent_job_id references
// the source. The optional body overrides copied fields, typically the date
// of the next occurrence.
func (h *JobsHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var overrides *models.JobChanges
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		keyErrs, err := h.schema.ValidateBytes(r.Context(), body)
		if err != nil || len(keyErrs) > 0 {
			http.Error(w, "invalid overrides payload", http.StatusBadRequest)
			return
		}

		var req jobUpdateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		overrides = &models.JobChanges{
			RequesterID:       req.RequesterID,
			ServiceNeededID:   req.ServiceNeededID,
			Zone:              req.Zone,
			Description:       req.Description,
			PaymentAmount:     req.PaymentAmount,
			Notes:             req.Notes,
			Repeated:          req.Repeated,
			RecurrencePattern: req.RecurrencePattern,
		}
		if req.DateNeeded != nil {
			millis, err := parseDate(*req.DateNeeded)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			overrides.DateNeeded = &millis
		}
	}

	newID, err := h.recur.Duplicate(r.Context(), id, overrides, actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]int64{"id": newID}, http.StatusCreated)
}

// Match returns the eligible workers for a service/zone/time query.
func (h *JobsHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req matching.Request

	if id, ok, err := queryID(r, "service_id"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	} else if ok {
		req.ServiceID = id
	}
	req.Zone = r.URL.Query().Get("zone")
	if raw := r.URL.Query().Get("date_needed"); raw != "" {
		millis, err := parseDate(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.DateNeeded = millis
	}

	candidates, err := h.engine.Match(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, candidates, http.StatusOK)
}

type assignRequest struct {
	WorkerID int64 `json:"worker_id"`
}

func (h *JobsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WorkerID <= 0 {
		http.Error(w, "worker_id is required", http.StatusBadRequest)
		return
	}

	if err := h.machine.Assign(r.Context(), id, req.WorkerID, actorFrom(r)); err != nil {
		writeError(w, err)
		return
	}

	h.respondJob(w, r, id)
}

func (h *JobsHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.machine.Unassign(r.Context(), id, actorFrom(r)); err != nil {
		writeError(w, err)
		return
	}

	h.respondJob(w, r, id)
}

type completeRequest struct {
	Rating *int64 `json:"rating"`
	Review string `json:"review"`
}

func (h *JobsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.machine.Complete(r.Context(), id, req.Rating, req.Review, actorFrom(r)); err != nil {
		writeError(w, err)
		return
	}

	h.respondJob(w, r, id)
}

func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.machine.Cancel(r.Context(), id, actorFrom(r)); err != nil {
		writeError(w, err)
		return
	}

	h.respondJob(w, r, id)
}

// RecurrenceChanges lists the append-only audit log for a recurring job.
func (h *JobsHandler) RecurrenceChanges(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	changes, err := h.recur.Changes(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if changes == nil {
		changes = []models.RecurrenceChange{}
	}

	writeJSON(w, changes, http.StatusOK)
}

// CreateOwn lets an authenticated requester file a job request for their
// own profile. The job always starts pending; worker selection is the
// admin's call.
func (h *JobsHandler) CreateOwn(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.ownRequester(w, r)
	if !ok {
		return
	}

	var req jobCreateRequest
	if !h.validateAndRead(w, r, &req) {
		return
	}
	req.RequesterID = requester.ID
	req.WorkerID = nil
	req.ParentJobID = nil

	job, ok := h.jobFromCreate(w, &req)
	if !ok {
		return
	}

	id, err := h.machine.Create(r.Context(), job, actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]int64{"id": id}, http.StatusCreated)
}

// ListOwn lists the authenticated requester's active jobs.
func (h *JobsHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.ownRequester(w, r)
	if !ok {
		return
	}

	jobs, err := h.jobs.ListJobs(r.Context(), repository.JobFilter{RequesterID: requester.ID, ActiveOnly: true})
	if err != nil {
		writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}

	writeJSON(w, jobs, http.StatusOK)
}

// CompleteOwn lets the owning requester close an assigned job with a
// rating and review.
func (h *JobsHandler) CompleteOwn(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.ownRequester(w, r)
	if !ok {
		return
	}

	id, okID := pathID(r, "id")
	if !okID {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if job == nil || !job.IsActive {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if job.RequesterID != requester.ID {
		writeError(w, fmt.Errorf("%w: job %d belongs to another requester", models.ErrNotAllowed, id))
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.machine.Complete(r.Context(), id, req.Rating, req.Review, actorFrom(r)); err != nil {
		writeError(w, err)
		return
	}

	h.respondJob(w, r, id)
}

// ListAssigned lists the active jobs assigned to the authenticated worker.
func (h *JobsHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(CtxUserID).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	worker, err := h.workers.GetWorkerByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if worker == nil || !worker.IsActive {
		http.Error(w, "worker profile not found", http.StatusNotFound)
		return
	}

	jobs, err := h.jobs.ListJobs(r.Context(), repository.JobFilter{WorkerID: worker.ID, ActiveOnly: true})
	if err != nil {
		writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}

	writeJSON(w, jobs, http.StatusOK)
}

func (h *JobsHandler) ownRequester(w http.ResponseWriter, r *http.Request) (*models.Requester, bool) {
	userID, ok := r.Context().Value(CtxUserID).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	requester, err := h.requesters.GetRequesterByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if requester == nil || !requester.IsActive {
		http.Error(w, "requester profile not found", http.StatusNotFound)
		return nil, false
	}

	return requester, true
}

func (h *JobsHandler) jobFromCreate(w http.ResponseWriter, req *jobCreateRequest) (*models.Job, bool) {
	millis, err := parseDate(req.DateNeeded)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	return &models.Job{
		RequesterID:       req.RequesterID,
		WorkerID:          req.WorkerID,
		ServiceNeededID:   req.ServiceNeededID,
		Zone:              req.Zone,
		DateNeeded:        millis,
		Description:       req.Description,
		PaymentAmount:     req.PaymentAmount,
		Notes:             req.Notes,
		Repeated:          req.Repeated,
		RecurrencePattern: req.RecurrencePattern,
		ParentJobID:       req.ParentJobID,
		ServicesUsed:      req.ServicesUsed,
	}, true
}

func (h *JobsHandler) respondJob(w http.ResponseWriter, r *http.Request, id int64) {
	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, job, http.StatusOK)
}

func parseDate(raw string) (int64, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid date format, use RFC 3339 (e.g. 2025-03-01T10:00:00Z)")
	}
	return t.UnixMilli(), nil
}
