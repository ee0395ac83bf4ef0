package api

import (
	"encoding/json"
	"net/http"

	"github.com/servicehub/servicehub/internal/models"
	"github.com/servicehub/servicehub/pkg/repository"
)

type RequestersHandler struct {
	requesters repository.RequesterRepo
}

func NewRequestersHandler(rr repository.RequesterRepo) *RequestersHandler {
	return &RequestersHandler{requesters: rr}
}

func (h *RequestersHandler) List(w http.ResponseWriter, r *http.Request) {
	f := repository.RequesterFilter{ActiveOnly: true}
	if status := r.URL.Query().Get("status"); status != "" {
		switch status {
		case models.StatusPending, models.StatusApproved, models.StatusRejected:
			f.Status = status
		default:
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
	}

	requesters, err := h.requesters.ListRequesters(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if requesters == nil {
		requesters = []models.Requester{}
	}

	writeJSON(w, requesters, http.StatusOK)
}

func (h *RequestersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	requester, err := h.requesters.GetRequester(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if requester == nil {
		http.Error(w, "requester not found", http.StatusNotFound)
		return
	}

	writeJSON(w, requester, http.StatusOK)
}

type requesterUpdateRequest struct {
	FirstName       *string  `json:"first_name"`
	LastName        *string  `json:"last_name"`
	Email           *string  `json:"email"`
	CountryCode     *string  `json:"country_code"`
	PhoneNumber     *string  `json:"phone_number"`
	Source          *string  `json:"source"`
	Notes           *string  `json:"notes"`
	Status          *string  `json:"status"`
	RegularServices *[]int64 `json:"regular_services"`
}

func (h *RequestersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req requesterUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	requester, err := h.requesters.GetRequester(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if requester == nil || !requester.IsActive {
		http.Error(w, "requester not found", http.StatusNotFound)
		return
	}

	if req.FirstName != nil {
		requester.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		requester.LastName = *req.LastName
	}
	if req.Email != nil {
		requester.Email = *req.Email
	}
	if req.CountryCode != nil {
		requester.CountryCode = *req.CountryCode
	}
	if req.PhoneNumber != nil {
		requester.PhoneNumber = *req.PhoneNumber
	}
	if req.Source != nil {
		requester.Source = *req.Source
	}
	if req.Notes != nil {
		requester.Notes = *req.Notes
	}
	if req.Status != nil {
		switch *req.Status {
		case models.StatusPending, models.StatusApproved, models.StatusRejected:
			requester.Status = *req.Status
		default:
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
	}

	if err := h.requesters.UpdateRequester(ctx, requester); err != nil {
		writeError(w, err)
		return
	}

	if req.RegularServices != nil {
		if err := h.requesters.SetRegularServices(ctx, id, *req.RegularServices); err != nil {
			writeError(w, err)
			return
		}
		requester.RegularServices = *req.RegularServices
	}

	writeJSON(w, requester, http.StatusOK)
}

func (h *RequestersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	requester, err := h.requesters.GetRequester(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if requester == nil {
		http.Error(w, "requester not found", http.StatusNotFound)
		return
	}

	if err := h.requesters.DeactivateRequester(ctx, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RequestersHandler) ApproveBulk(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDList(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(ids) == 0 {
		http.Error(w, "no ids selected", http.StatusBadRequest)
		return
	}

	approved, err := h.requesters.ApproveRequesters(r.Context(), ids)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]int64{"approved": approved}, http.StatusOK)
}

// MyProfile returns the requester profile of the authenticated user.
func (h *RequestersHandler) MyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(CtxUserID).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	requester, err := h.requesters.GetRequesterByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if requester == nil {
		http.Error(w, "requester profile not found", http.StatusNotFound)
		return
	}

	writeJSON(w, requester, http.StatusOK)
}
