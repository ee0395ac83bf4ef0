package api_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/servicehub/servicehub/internal/matching"
	"github.com/servicehub/servicehub/internal/models"
	"github.com/servicehub/servicehub/pkg/repository"
)

// TestJobFlow walks the whole coordination path: directory signup and
// approval, job request, matching, assignment and rated completion.
func TestJobFlow(t *testing.T) {
	router, repo := newTestServer(t, testConfig())
	ctx := context.Background()
	_, adminToken := seedAdmin(t, repo)

	// admin registers the service catalog
	var created struct {
		ID int64 `json:"id"`
	}
	w := doJSON(t, router, http.MethodPost, "/v1/admin/services", adminToken, map[string]string{"name": "Ménage"}, &created)
	if w.Code != http.StatusCreated {
		t.Fatalf("create service: %d %s", w.Code, w.Body.String())
	}
	menage := created.ID

	// worker signs up and is approved by the admin
	var workerAuth struct {
		Token string `json:"token"`
	}
	w = doJSON(t, router, http.MethodPost, "/v1/auth/signup/worker", "", map[string]any{
		"username": "awa", "email": "awa@example.com", "password": "pw",
		"first_name": "Awa", "last_name": "Obame",
		"zone": "owendo", "job_primary_id": menage,
	}, &workerAuth)
	if w.Code != http.StatusOK {
		t.Fatalf("worker signup: %d %s", w.Code, w.Body.String())
	}

	var pendingWorkers []models.Worker
	w = doJSON(t, router, http.MethodGet, "/v1/admin/workers?status=pending", adminToken, nil, &pendingWorkers)
	if w.Code != http.StatusOK || len(pendingWorkers) != 1 {
		t.Fatalf("list pending workers: %d %d", w.Code, len(pendingWorkers))
	}
	workerID := pendingWorkers[0].ID

	var approveResp struct {
		Approved int64 `json:"approved"`
	}
	w = doJSON(t, router, http.MethodPost, "/v1/admin/workers/approve", adminToken, map[string][]int64{"ids": {workerID}}, &approveResp)
	if w.Code != http.StatusOK || approveResp.Approved != 1 {
		t.Fatalf("approve workers: %d %+v", w.Code, approveResp)
	}

	// requester signs up and is approved
	var auth struct {
		Token string `json:"token"`
	}
	w = doJSON(t, router, http.MethodPost, "/v1/auth/signup/requester", "", map[string]any{
		"username": "marie", "email": "marie@example.com", "password": "pw",
		"first_name": "Marie", "last_name": "Ndong",
	}, &auth)
	if w.Code != http.StatusOK {
		t.Fatalf("requester signup: %d %s", w.Code, w.Body.String())
	}
	requesterToken := auth.Token

	var requesters []models.Requester
	w = doJSON(t, router, http.MethodGet, "/v1/admin/requesters?status=pending", adminToken, nil, &requesters)
	if w.Code != http.StatusOK || len(requesters) != 1 {
		t.Fatalf("list pending requesters: %d %d", w.Code, len(requesters))
	}
	w = doJSON(t, router, http.MethodPost, "/v1/admin/requesters/approve", adminToken, map[string][]int64{"ids": {requesters[0].ID}}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("approve requesters: %d", w.Code)
	}

	// requester files a job request; it starts pending
	const when = "2026-09-15T10:00:00Z"
	w = doJSON(t, router, http.MethodPost, "/v1/requester/jobs", requesterToken, map[string]any{
		"service_needed_id": menage,
		"zone":              "owendo",
		"date_needed":       when,
		"description":       "weekly house cleaning",
		"payment_amount":    15000,
	}, &created)
	if w.Code != http.StatusCreated {
		t.Fatalf("create job: %d %s", w.Code, w.Body.String())
	}
	jobID := created.ID

	var job models.Job
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/admin/jobs/%d", jobID), adminToken, nil, &job)
	if w.Code != http.StatusOK || job.Status != models.StatusPending {
		t.Fatalf("expected pending job, got %d %q", w.Code, job.Status)
	}

	// the approved worker is matched with a primary-skill label and no
	// numeric rating yet
	matchPath := fmt.Sprintf("/v1/admin/jobs/match?service_id=%d&zone=owendo&date_needed=%s", menage, when)
	var candidates []matching.Candidate
	w = doJSON(t, router, http.MethodGet, matchPath, adminToken, nil, &candidates)
	if w.Code != http.StatusOK {
		t.Fatalf("match: %d %s", w.Code, w.Body.String())
	}
	if len(candidates) != 1 || candidates[0].Worker.ID != workerID {
		t.Fatalf("unexpected candidates: %#v", candidates)
	}
	if candidates[0].Role != matching.RolePrimary || candidates[0].RatingLabel != matching.NoRatingLabel {
		t.Fatalf("unexpected labels: %#v", candidates[0])
	}

	// assignment makes the worker busy for nearby times
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/admin/jobs/%d/assign", jobID), adminToken, map[string]int64{"worker_id": workerID}, &job)
	if w.Code != http.StatusOK || job.Status != models.StatusAssigned {
		t.Fatalf("assign: %d %q", w.Code, job.Status)
	}

	// the worker sees the assignment under their own jobs
	var assigned []models.Job
	w = doJSON(t, router, http.MethodGet, "/v1/worker/jobs", workerAuth.Token, nil, &assigned)
	if w.Code != http.StatusOK || len(assigned) != 1 || assigned[0].ID != jobID {
		t.Fatalf("worker job list: %d %#v", w.Code, assigned)
	}

	nearby := fmt.Sprintf("/v1/admin/jobs/match?service_id=%d&zone=owendo&date_needed=%s", menage, "2026-09-15T10:30:00Z")
	w = doJSON(t, router, http.MethodGet, nearby, adminToken, nil, &candidates)
	if w.Code != http.StatusOK || len(candidates) != 0 {
		t.Fatalf("expected busy worker excluded, got %#v", candidates)
	}

	// the owning requester completes the job with a rating
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/requester/jobs/%d/complete", jobID), requesterToken, map[string]any{"rating": 5, "review": "excellent"}, &job)
	if w.Code != http.StatusOK || job.Status != models.StatusCompleted {
		t.Fatalf("complete: %d %q %s", w.Code, job.Status, w.Body.String())
	}

	worker, err := repo.GetWorker(ctx, workerID)
	if err != nil {
		t.Fatalf("load worker: %v", err)
	}
	if worker.RatingCount != 1 || worker.AvgRating != 5 {
		t.Fatalf("rating aggregate wrong: %#v", worker)
	}

	// completed jobs free the slot and the label shows the average
	w = doJSON(t, router, http.MethodGet, matchPath, adminToken, nil, &candidates)
	if w.Code != http.StatusOK || len(candidates) != 1 {
		t.Fatalf("expected worker available again, got %#v", candidates)
	}
	if candidates[0].RatingLabel != "5.0★" {
		t.Fatalf("unexpected rating label %q", candidates[0].RatingLabel)
	}

	// a closed job rejects edits wholesale
	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/v1/admin/jobs/%d", jobID), adminToken, map[string]any{"description": "too late"}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 editing a closed job got %d", w.Code)
	}

	// the requester sees their own jobs only
	var own []models.Job
	w = doJSON(t, router, http.MethodGet, "/v1/requester/jobs", requesterToken, nil, &own)
	if w.Code != http.StatusOK || len(own) != 1 || own[0].ID != jobID {
		t.Fatalf("list own jobs: %d %#v", w.Code, own)
	}
}

func TestJobSchemaValidation(t *testing.T) {
	router, repo := newTestServer(t, testConfig())
	ctx := context.Background()
	_, adminToken := seedAdmin(t, repo)

	svc, err := repo.CreateServiceType(ctx, &models.ServiceType{Name: "cleaning"})
	if err != nil {
		t.Fatalf("seed service: %v", err)
	}
	reqID, err := repo.CreateRequester(ctx, &models.Requester{FirstName: "R", LastName: "Q", Email: "rq@example.com", Status: models.StatusApproved})
	if err != nil {
		t.Fatalf("seed requester: %v", err)
	}

	// repeated without a pattern fails schema validation before any write
	w := doJSON(t, router, http.MethodPost, "/v1/admin/jobs", adminToken, map[string]any{
		"requester_id":      reqID,
		"service_needed_id": svc,
		"date_needed":       "2026-09-15T10:00:00Z",
		"repeated":          true,
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for repeated job without pattern got %d", w.Code)
	}

	// bad pattern value is caught by the schema enum
	w = doJSON(t, router, http.MethodPost, "/v1/admin/jobs", adminToken, map[string]any{
		"requester_id":       reqID,
		"service_needed_id":  svc,
		"date_needed":        "2026-09-15T10:00:00Z",
		"repeated":           true,
		"recurrence_pattern": "yearly",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad recurrence pattern got %d", w.Code)
	}

	// malformed date string is rejected in the handler
	w = doJSON(t, router, http.MethodPost, "/v1/admin/jobs", adminToken, map[string]any{
		"requester_id":      reqID,
		"service_needed_id": svc,
		"date_needed":       "15/09/2026",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date got %d", w.Code)
	}

	jobs, err := repo.ListJobs(ctx, repository.JobFilter{})
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("no job row may exist after rejected payloads, got %d", len(jobs))
	}
}

func TestRecurrenceEndpoints(t *testing.T) {
	router, repo := newTestServer(t, testConfig())
	ctx := context.Background()
	_, adminToken := seedAdmin(t, repo)

	svc, err := repo.CreateServiceType(ctx, &models.ServiceType{Name: "cleaning"})
	if err != nil {
		t.Fatalf("seed service: %v", err)
	}
	reqID, err := repo.CreateRequester(ctx, &models.Requester{FirstName: "R", LastName: "Q", Email: "rq@example.com", Status: models.StatusApproved})
	if err != nil {
		t.Fatalf("seed requester: %v", err)
	}

	// admin creates a weekly job
	var created struct {
		ID int64 `json:"id"`
	}
	w := doJSON(t, router, http.MethodPost, "/v1/admin/jobs", adminToken, map[string]any{
		"requester_id":       reqID,
		"service_needed_id":  svc,
		"zone":               "owendo",
		"date_needed":        "2026-09-15T10:00:00Z",
		"description":        "weekly cleaning",
		"payment_amount":     10000,
		"repeated":           true,
		"recurrence_pattern": "weekly",
	}, &created)
	if w.Code != http.StatusCreated {
		t.Fatalf("create parent: %d %s", w.Code, w.Body.String())
	}
	parentID := created.ID

	// duplicate as next week's occurrence
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/admin/jobs/%d/duplicate", parentID), adminToken, map[string]any{
		"date_needed": "2026-09-22T10:00:00Z",
	}, &created)
	if w.Code != http.StatusCreated {
		t.Fatalf("duplicate: %d %s", w.Code, w.Body.String())
	}
	childID := created.ID

	child, err := repo.GetJob(ctx, childID)
	if err != nil || child == nil {
		t.Fatalf("load child: %v", err)
	}
	if child.ParentJobID == nil || *child.ParentJobID != parentID {
		t.Fatalf("child not linked to parent: %#v", child)
	}

	// edit the parent and push the shared fields to the child
	var updated struct {
		Job             models.Job `json:"job"`
		ChildrenUpdated int64      `json:"children_updated"`
	}
	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/v1/admin/jobs/%d", parentID), adminToken, map[string]any{
		"description":       "deep cleaning",
		"payment_amount":    12000,
		"apply_to_children": true,
	}, &updated)
	if w.Code != http.StatusOK {
		t.Fatalf("update parent: %d %s", w.Code, w.Body.String())
	}
	if updated.ChildrenUpdated != 1 {
		t.Fatalf("expected 1 child updated got %d", updated.ChildrenUpdated)
	}

	child, _ = repo.GetJob(ctx, childID)
	if child.Description != "deep cleaning" || child.PaymentAmount != 12000 {
		t.Fatalf("child not updated: %#v", child)
	}
	if child.DateNeeded == updated.Job.DateNeeded {
		t.Fatalf("child must keep its own date")
	}

	// one audit row, visible through the log endpoint
	var changes []models.RecurrenceChange
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/admin/jobs/%d/recurrence-changes", parentID), adminToken, nil, &changes)
	if w.Code != http.StatusOK || len(changes) != 1 {
		t.Fatalf("recurrence changes: %d %d", w.Code, len(changes))
	}
	if changes[0].AffectedJobs != 1 {
		t.Fatalf("unexpected audit row: %#v", changes[0])
	}

	// soft delete hides the parent from the default listing
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/v1/admin/jobs/%d", parentID), adminToken, nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	var listed []models.Job
	w = doJSON(t, router, http.MethodGet, "/v1/admin/jobs", adminToken, nil, &listed)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	for _, j := range listed {
		if j.ID == parentID {
			t.Fatalf("soft-deleted job must not be listed")
		}
	}
}
