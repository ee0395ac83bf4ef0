package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/servicehub/servicehub/internal/mailer"
	"github.com/servicehub/servicehub/internal/models"
	"github.com/servicehub/servicehub/pkg/repository"
)

const resetPurpose = "password-reset"

type AuthHandler struct {
	userRepo      repository.UserRepo
	workerRepo    repository.WorkerRepo
	requesterRepo repository.RequesterRepo
	mail          mailer.Sender
	jwtSecret     string
	tokenDuration time.Duration
	resetDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(ur repository.UserRepo, wr repository.WorkerRepo, rr repository.RequesterRepo, mail mailer.Sender, jwtSecret string, tokenDuration, resetDuration time.Duration) *AuthHandler {
	return &AuthHandler{
		userRepo:      ur,
		workerRepo:    wr,
		requesterRepo: rr,
		mail:          mail,
		jwtSecret:     jwtSecret,
		tokenDuration: tokenDuration,
		resetDuration: resetDuration,
	}
}

type workerSignupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	CountryCode     string `json:"country_code"`
	PhoneNumber     string `json:"phone_number"`
	Zone            string `json:"zone"`
	City            string `json:"city"`
	JobPrimaryID    int64  `json:"job_primary_id"`
	JobSecondaryID  *int64 `json:"job_secondary_id"`
	ExperienceYears int    `json:"experience_years"`
	SalaryPerJob    int64  `json:"salary_per_job"`
	Bio             string `json:"bio"`
	Source          string `json:"source"`
}

type requesterSignupRequest struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	CountryCode     string  `json:"country_code"`
	PhoneNumber     string  `json:"phone_number"`
	Source          string  `json:"source"`
	RegularServices []int64 `json:"regular_services"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

// SignupWorker registers a worker account: one User row plus a Worker
// profile starting in pending status awaiting admin approval.
func (h *AuthHandler) SignupWorker(w http.ResponseWriter, r *http.Request) {
	var req workerSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}
	if req.JobPrimaryID <= 0 {
		http.Error(w, "A primary skill is required", http.StatusBadRequest)
		return
	}
	if req.JobSecondaryID != nil && *req.JobSecondaryID == req.JobPrimaryID {
		http.Error(w, "Secondary skill must differ from the primary skill", http.StatusBadRequest)
		return
	}
	if !models.ValidZone(req.Zone) {
		http.Error(w, "Unknown zone", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	userID, err := h.createUser(ctx, w, req.Username, req.Email, req.Password, models.RoleWorker)
	if err != nil {
		return
	}

	worker := models.Worker{
		UserID:          userID,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		CountryCode:     req.CountryCode,
		PhoneNumber:     req.PhoneNumber,
		Zone:            req.Zone,
		City:            req.City,
		JobPrimaryID:    req.JobPrimaryID,
		JobSecondaryID:  req.JobSecondaryID,
		ExperienceYears: req.ExperienceYears,
		SalaryPerJob:    req.SalaryPerJob,
		Bio:             req.Bio,
		Source:          req.Source,
	}
	if worker.City == "" {
		worker.City = "Libreville"
	}
	if _, err := h.workerRepo.CreateWorker(ctx, &worker); err != nil {
		http.Error(w, "Error creating worker profile", http.StatusInternalServerError)
		return
	}

	h.issueToken(w, userID, models.RoleWorker, false)
}

// SignupRequester registers a requester account with an optional set of
// regular services.
func (h *AuthHandler) SignupRequester(w http.ResponseWriter, r *http.Request) {
	var req requesterSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	userID, err := h.createUser(ctx, w, req.Username, req.Email, req.Password, models.RoleRequester)
	if err != nil {
		return
	}

	requester := models.Requester{
		UserID:          userID,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		CountryCode:     req.CountryCode,
		PhoneNumber:     req.PhoneNumber,
		Source:          req.Source,
		RegularServices: req.RegularServices,
	}
	if _, err := h.requesterRepo.CreateRequester(ctx, &requester); err != nil {
		http.Error(w, "Error creating requester profile", http.StatusInternalServerError)
		return
	}

	h.issueToken(w, userID, models.RoleRequester, false)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	user, err := h.userRepo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || user == nil {
		http.Error(w, "Credentials not found", http.StatusUnauthorized)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "Credentials not found", http.StatusUnauthorized)
		return
	}

	h.issueToken(w, user.ID, user.Role, user.IsAdmin)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	// For stateless JWT, signout is client-side (just delete token)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"message":"signed out"}`)
}

type forgotRequest struct {
	Email string `json:"email"`
}

// ForgotPassword mails a short-lived signed reset token. The response is
// the same whether or not the address exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	user, err := h.userRepo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err == nil && user != nil {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": user.ID,
			"purpose": resetPurpose,
			"exp":     time.Now().Add(h.resetDuration).Unix(),
		})
		tokenStr, err := token.SignedString([]byte(h.jwtSecret))
		if err == nil {
			body := fmt.Sprintf("Use this token to reset your password: %s", tokenStr)
			if err := h.mail.Send(ctx, user.Email, "Password reset", body); err != nil {
				logger.Error("send reset mail", "err", err)
			}
		}
	}

	writeJSON(w, map[string]string{"message": "if the address exists, a reset link was sent"}, http.StatusOK)
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword verifies the signed token and replaces the password hash.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.Password == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	token, err := jwt.Parse(req.Token, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return []byte(h.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["purpose"] != resetPurpose {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}
	id, ok := claims["user_id"].(float64)
	if !ok {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	if err := h.userRepo.UpdateUserPassword(r.Context(), int64(id), string(hash)); err != nil {
		http.Error(w, "Error updating password", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{"message": "password updated"}, http.StatusOK)
}

func (h *AuthHandler) createUser(ctx context.Context, w http.ResponseWriter, username, email, password, role string) (int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if existing, err := h.userRepo.GetUserByUsername(ctx, username); err == nil && existing != nil {
		http.Error(w, "Username already taken", http.StatusConflict)
		return 0, fmt.Errorf("username taken")
	}
	if existing, err := h.userRepo.GetUserByEmail(ctx, email); err == nil && existing != nil {
		http.Error(w, "Email already registered", http.StatusConflict)
		return 0, fmt.Errorf("email taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return 0, err
	}

	user := models.User{
		Role:         role,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	id, err := h.userRepo.CreateUser(ctx, &user)
	if err != nil {
		http.Error(w, "Error creating user", http.StatusInternalServerError)
		return 0, err
	}

	return id, nil
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, userID int64, role string, isAdmin bool) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"role":     role,
		"is_admin": isAdmin,
		"exp":      time.Now().Add(h.tokenDuration).Unix(),
	})
	tokenStr, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, authResponse{Token: tokenStr}, http.StatusOK)
}
