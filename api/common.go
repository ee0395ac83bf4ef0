package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/gorilla/mux"

	"github.com/servicehub/servicehub/internal/models"
)

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

// writeError maps the domain error taxonomy to HTTP statuses. Validation
// and closed-job messages are preserved so the caller can resubmit.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrJobClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrNotAllowed):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		logger.Error("internal error", slog.Any("err", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// pathID reads the numeric {id} path variable.
func pathID(r *http.Request, name string) (int64, bool) {
	raw, ok := mux.Vars(r)[name]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryID reads an optional numeric query parameter; non-numeric input is
// reported so the filter fails loudly instead of being silently dropped.
func queryID(r *http.Request, name string) (int64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, errors.New("invalid " + name)
	}
	return id, true, nil
}

// parseIDList reads a JSON body of the form {"ids": [1, 2, 3]}.
func parseIDList(r *http.Request) ([]int64, error) {
	var body struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, errors.New("invalid request body")
	}
	return body.IDs, nil
}
