package api

import (
	"encoding/json"
	"net/http"

	"github.com/servicehub/servicehub/internal/models"
	"github.com/servicehub/servicehub/internal/storage"
	"github.com/servicehub/servicehub/pkg/repository"
)

const maxUploadBytes = 8 << 20

type WorkersHandler struct {
	workers repository.WorkerRepo
	uploads *storage.Store
}

func NewWorkersHandler(wr repository.WorkerRepo, uploads *storage.Store) *WorkersHandler {
	return &WorkersHandler{workers: wr, uploads: uploads}
}

// List returns active workers, optionally filtered by status, zone or skill.
func (h *WorkersHandler) List(w http.ResponseWriter, r *http.Request) {
	f := repository.WorkerFilter{ActiveOnly: true}

	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		switch status {
		case models.StatusPending, models.StatusApproved, models.StatusRejected:
			f.Status = status
		default:
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
	}
	f.Zone = q.Get("zone")
	if id, ok, err := queryID(r, "service_id"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	} else if ok {
		f.ServiceID = id
	}

	workers, err := h.workers.ListWorkers(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if workers == nil {
		workers = []models.Worker{}
	}

	writeJSON(w, workers, http.StatusOK)
}

func (h *WorkersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	worker, err := h.workers.GetWorker(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if worker == nil {
		http.Error(w, "worker not found", http.StatusNotFound)
		return
	}

	writeJSON(w, worker, http.StatusOK)
}

type workerUpdateRequest struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Email           *string `json:"email"`
	CountryCode     *string `json:"country_code"`
	PhoneNumber     *string `json:"phone_number"`
	Zone            *string `json:"zone"`
	City            *string `json:"city"`
	JobPrimaryID    *int64  `json:"job_primary_id"`
	JobSecondaryID  *int64  `json:"job_secondary_id"`
	ExperienceYears *int    `json:"experience_years"`
	SalaryPerJob    *int64  `json:"salary_per_job"`
	Bio             *string `json:"bio"`
	Source          *string `json:"source"`
	Notes           *string `json:"notes"`
	Status          *string `json:"status"`
}

func (h *WorkersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req workerUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	worker, err := h.workers.GetWorker(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if worker == nil || !worker.IsActive {
		http.Error(w, "worker not found", http.StatusNotFound)
		return
	}

	if req.FirstName != nil {
		worker.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		worker.LastName = *req.LastName
	}
	if req.Email != nil {
		worker.Email = *req.Email
	}
	if req.CountryCode != nil {
		worker.CountryCode = *req.CountryCode
	}
	if req.PhoneNumber != nil {
		worker.PhoneNumber = *req.PhoneNumber
	}
	if req.Zone != nil {
		if !models.ValidZone(*req.Zone) {
			http.Error(w, "unknown zone", http.StatusBadRequest)
			return
		}
		worker.Zone = *req.Zone
	}
	if req.City != nil {
		worker.City = *req.City
	}
	if req.JobPrimaryID != nil {
		worker.JobPrimaryID = *req.JobPrimaryID
	}
	if req.JobSecondaryID != nil {
		if *req.JobSecondaryID == 0 {
			worker.JobSecondaryID = nil
		} else {
			worker.JobSecondaryID = req.JobSecondaryID
		}
	}
	if worker.JobSecondaryID != nil && *worker.JobSecondaryID == worker.JobPrimaryID {
		http.Error(w, "secondary skill must differ from the primary skill", http.StatusBadRequest)
		return
	}
	if req.ExperienceYears != nil {
		worker.ExperienceYears = *req.ExperienceYears
	}
	if req.SalaryPerJob != nil {
		worker.SalaryPerJob = *req.SalaryPerJob
	}
	if req.Bio != nil {
		worker.Bio = *req.Bio
	}
	if req.Source != nil {
		worker.Source = *req.Source
	}
	if req.Notes != nil {
		worker.Notes = *req.Notes
	}
	if req.Status != nil {
		switch *req.Status {
		case models.StatusPending, models.StatusApproved, models.StatusRejected:
			worker.Status = *req.Status
		default:
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
	}

	if err := h.workers.UpdateWorker(ctx, worker); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, worker, http.StatusOK)
}

// Delete soft-deletes a worker. Historical job references stay intact.
func (h *WorkersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	worker, err := h.workers.GetWorker(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if worker == nil {
		http.Error(w, "worker not found", http.StatusNotFound)
		return
	}

	if err := h.workers.DeactivateWorker(ctx, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ApproveBulk approves the active workers among the posted ids; inactive
// ids are ignored.
func (h *WorkersHandler) ApproveBulk(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDList(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(ids) == 0 {
		http.Error(w, "no ids selected", http.StatusBadRequest)
		return
	}

	approved, err := h.workers.ApproveWorkers(r.Context(), ids)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]int64{"approved": approved}, http.StatusOK)
}

// UploadPicture stores a profile picture and keeps only the reference.
func (h *WorkersHandler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, "pictures", storage.KindPhoto, func(worker *models.Worker, ref string) {
		worker.ProfilePicture = ref
	})
}

// UploadDocument stores an identity document and keeps only the reference.
func (h *WorkersHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, "documents", storage.KindDocument, func(worker *models.Worker, ref string) {
		worker.IDDocument = ref
	})
}

func (h *WorkersHandler) upload(w http.ResponseWriter, r *http.Request, subfolder string, kind storage.Kind, set func(*models.Worker, string)) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	worker, err := h.workers.GetWorker(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if worker == nil || !worker.IsActive {
		http.Error(w, "worker not found", http.StatusNotFound)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ref, err := h.uploads.Save(file, header.Filename, subfolder, kind)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	set(worker, ref)
	if err := h.workers.UpdateWorker(ctx, worker); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]string{"ref": ref}, http.StatusCreated)
}

// MyProfile returns the worker profile of the authenticated user.
func (h *WorkersHandler) MyProfile(w http.ResponseWriter, r *http.Request) {
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
	if worker == nil {
		http.Error(w, "worker profile not found", http.StatusNotFound)
		return
	}

	writeJSON(w, worker, http.StatusOK)
}
