package api

import (
	"encoding/json"
	"fmt"

	"log/slog"

	"github.com/gorilla/mux"
	"github.com/qri-io/jsonschema"

	hubdb "github.com/servicehub/servicehub/db"
	"github.com/servicehub/servicehub/internal/config"
	"github.com/servicehub/servicehub/internal/db"
	"github.com/servicehub/servicehub/internal/lifecycle"
	"github.com/servicehub/servicehub/internal/mailer"
	"github.com/servicehub/servicehub/internal/matching"
	"github.com/servicehub/servicehub/internal/models"
	"github.com/servicehub/servicehub/internal/recurrence"
	"github.com/servicehub/servicehub/internal/repository/sqlite"
	"github.com/servicehub/servicehub/internal/storage"
)

const jobSchemaPath = "seed/job_payload_schema.json"

// loadJobSchema parses the embedded JSON schema used to validate job
// payloads before they reach the state machine.
func loadJobSchema() (*jsonschema.Schema, error) {
	raw, err := hubdb.SeedFiles.ReadFile(jobSchemaPath)
	if err != nil {
		return nil, fmt.Errorf("read job schema: %w", err)
	}

	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(raw, rs); err != nil {
		return nil, fmt.Errorf("parse job schema: %w", err)
	}

	return rs, nil
}

func SetupRoutes(cfg *config.Config, version, buildTime string, conn *db.DB, uploads *storage.Store, mail mailer.Sender, logger *slog.Logger) (*mux.Router, error) {
	SetLogger(logger)

	schema, err := loadJobSchema()
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository
	repo := sqlite.New(conn, logger)

	// Core engines
	machine := lifecycle.New(repo, repo, repo, repo, logger)
	engine := matching.New(repo, repo, repo, logger)
	recur := recurrence.New(repo, repo, machine, logger)

	// Create handlers
	systemHandler := NewSystemHandler(repo)
	authHandler := NewAuthHandler(repo, repo, repo, mail, cfg.JWTSecret, cfg.TokenDuration, cfg.ResetTokenDuration)
	servicesHandler := NewServicesHandler(repo)
	workersHandler := NewWorkersHandler(repo, uploads)
	requestersHandler := NewRequestersHandler(repo)
	jobsHandler := NewJobsHandler(repo, repo, repo, machine, engine, recur, schema)

	// Open endpoints; auth traffic is rate limited per client IP.
	limiter := newRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")

	open := r.PathPrefix("/v1/auth").Subrouter()
	open.Use(limiter.Middleware)
	open.HandleFunc("/signup/worker", authHandler.SignupWorker).Methods("POST")
	open.HandleFunc("/signup/requester", authHandler.SignupRequester).Methods("POST")
	open.HandleFunc("/signin", authHandler.Signin).Methods("POST")
	open.HandleFunc("/forgot-password", authHandler.ForgotPassword).Methods("POST")
	open.HandleFunc("/reset-password", authHandler.ResetPassword).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	apiV1.HandleFunc("/auth/signout", authHandler.Signout).Methods("POST")
	apiV1.HandleFunc("/services", servicesHandler.List).Methods("GET")

	// Worker self-service endpoints
	workerV1 := apiV1.PathPrefix("/worker").Subrouter()
	workerV1.Use(RequireRoleMiddleware(models.RoleWorker))
	workerV1.HandleFunc("/me", workersHandler.MyProfile).Methods("GET")
	workerV1.HandleFunc("/jobs", jobsHandler.ListAssigned).Methods("GET")

	// Requester self-service endpoints
	requesterV1 := apiV1.PathPrefix("/requester").Subrouter()
	requesterV1.Use(RequireRoleMiddleware(models.RoleRequester))
	requesterV1.HandleFunc("/me", requestersHandler.MyProfile).Methods("GET")
	requesterV1.HandleFunc("/jobs", jobsHandler.ListOwn).Methods("GET")
	requesterV1.HandleFunc("/jobs", jobsHandler.CreateOwn).Methods("POST")
	requesterV1.HandleFunc("/jobs/{id}/complete", jobsHandler.CompleteOwn).Methods("POST")

	// Admin endpoints
	admin := apiV1.PathPrefix("/admin").Subrouter()
	admin.Use(AdminOnlyMiddleware)

	admin.HandleFunc("/dashboard", systemHandler.Dashboard).Methods("GET")

	admin.HandleFunc("/services", servicesHandler.Create).Methods("POST")
	admin.HandleFunc("/services/{id}", servicesHandler.Update).Methods("PUT")
	admin.HandleFunc("/services/{id}", servicesHandler.Delete).Methods("DELETE")

	admin.HandleFunc("/workers", workersHandler.List).Methods("GET")
	admin.HandleFunc("/workers/approve", workersHandler.ApproveBulk).Methods("POST")
	admin.HandleFunc("/workers/{id}", workersHandler.Get).Methods("GET")
	admin.HandleFunc("/workers/{id}", workersHandler.Update).Methods("PUT")
	admin.HandleFunc("/workers/{id}", workersHandler.Delete).Methods("DELETE")
	admin.HandleFunc("/workers/{id}/picture", workersHandler.UploadPicture).Methods("POST")
	admin.HandleFunc("/workers/{id}/document", workersHandler.UploadDocument).Methods("POST")

	admin.HandleFunc("/requesters", requestersHandler.List).Methods("GET")
	admin.HandleFunc("/requesters/approve", requestersHandler.ApproveBulk).Methods("POST")
	admin.HandleFunc("/requesters/{id}", requestersHandler.Get).Methods("GET")
	admin.HandleFunc("/requesters/{id}", requestersHandler.Update).Methods("PUT")
	admin.HandleFunc("/requesters/{id}", requestersHandler.Delete).Methods("DELETE")

	admin.HandleFunc("/jobs", jobsHandler.List).Methods("GET")
	admin.HandleFunc("/jobs", jobsHandler.Create).Methods("POST")
	admin.HandleFunc("/jobs/match", jobsHandler.Match).Methods("GET")
	admin.HandleFunc("/jobs/{id}", jobsHandler.Get).Methods("GET")
	admin.HandleFunc("/jobs/{id}", jobsHandler.Update).Methods("PUT")
	admin.HandleFunc("/jobs/{id}", jobsHandler.Delete).Methods("DELETE")
	admin.HandleFunc("/jobs/{id}/duplicate", jobsHandler.Duplicate).Methods("POST")
	admin.HandleFunc("/jobs/{id}/assign", jobsHandler.Assign).Methods("POST")
	admin.HandleFunc("/jobs/{id}/unassign", jobsHandler.Unassign).Methods("POST")
	admin.HandleFunc("/jobs/{id}/complete", jobsHandler.Complete).Methods("POST")
	admin.HandleFunc("/jobs/{id}/cancel", jobsHandler.Cancel).Methods("POST")
	admin.HandleFunc("/jobs/{id}/recurrence-changes", jobsHandler.RecurrenceChanges).Methods("GET")

	return r, nil
}
