package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/servicehub/servicehub/internal/models"
	"github.com/servicehub/servicehub/pkg/repository"
)

type ServicesHandler struct {
	services repository.ServiceTypeRepo
}

func NewServicesHandler(sr repository.ServiceTypeRepo) *ServicesHandler {
	return &ServicesHandler{services: sr}
}

type serviceTypeRequest struct {
	Name string `json:"name"`
}

func (h *ServicesHandler) List(w http.ResponseWriter, r *http.Request) {
	services, err := h.services.ListServiceTypes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if services == nil {
		services = []models.ServiceType{}
	}

	writeJSON(w, services, http.StatusOK)
}

func (h *ServicesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req serviceTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	id, err := h.services.CreateServiceType(r.Context(), &models.ServiceType{Name: req.Name})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]int64{"id": id}, http.StatusCreated)
}

func (h *ServicesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req serviceTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	existing, err := h.services.GetServiceType(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		http.Error(w, "service type not found", http.StatusNotFound)
		return
	}

	existing.Name = req.Name
	if err := h.services.UpdateServiceType(ctx, existing); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, existing, http.StatusOK)
}

func (h *ServicesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	existing, err := h.services.GetServiceType(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		http.Error(w, "service type not found", http.StatusNotFound)
		return
	}

	if err := h.services.DeleteServiceType(ctx, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
