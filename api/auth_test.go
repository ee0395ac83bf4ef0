package api_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/servicehub/servicehub/internal/models"
)

func TestSignupWorker(t *testing.T) {
	router, repo := newTestServer(t, testConfig())

	svcID, err := repo.CreateServiceType(context.Background(), &models.ServiceType{Name: "cleaning"})
	if err != nil {
		t.Fatalf("seed service: %v", err)
	}

	base := map[string]any{
		"username":       "awa",
		"email":          "awa@example.com",
		"password":       "s3cret",
		"first_name":     "Awa",
		"last_name":      "Obame",
		"zone":           "owendo",
		"job_primary_id": svcID,
	}

	tests := []struct {
		name       string
		mutate     func(m map[string]any)
		wantStatus int
	}{
		{"Success", func(m map[string]any) {}, http.StatusOK},
		{"DuplicateUsername", func(m map[string]any) { m["email"] = "other@example.com" }, http.StatusConflict},
		{"MissingPassword", func(m map[string]any) { m["username"] = "x"; m["email"] = "x@example.com"; delete(m, "password") }, http.StatusBadRequest},
		{"MissingPrimarySkill", func(m map[string]any) { m["username"] = "y"; m["email"] = "y@example.com"; delete(m, "job_primary_id") }, http.StatusBadRequest},
		{"SecondaryEqualsPrimary", func(m map[string]any) {
			m["username"] = "z"
			m["email"] = "z@example.com"
			m["job_secondary_id"] = svcID
		}, http.StatusBadRequest},
		{"UnknownZone", func(m map[string]any) { m["username"] = "w"; m["email"] = "w@example.com"; m["zone"] = "atlantis" }, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]any{}
			for k, v := range base {
				body[k] = v
			}
			tt.mutate(body)

			var resp struct {
				Token string `json:"token"`
			}
			w := doJSON(t, router, http.MethodPost, "/v1/auth/signup/worker", "", body, &resp)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d got %d body=%s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK && resp.Token == "" {
				t.Fatalf("expected a token on success")
			}
		})
	}

	// the worker profile exists and starts pending
	worker, err := repo.GetWorker(context.Background(), 1)
	if err != nil || worker == nil {
		t.Fatalf("worker profile not created: %v", err)
	}
	if worker.Status != models.StatusPending {
		t.Fatalf("expected pending worker got %q", worker.Status)
	}
	if worker.City != "Libreville" {
		t.Fatalf("expected default city, got %q", worker.City)
	}
}

func TestSignupRequesterAndSignin(t *testing.T) {
	router, repo := newTestServer(t, testConfig())

	svcID, err := repo.CreateServiceType(context.Background(), &models.ServiceType{Name: "cleaning"})
	if err != nil {
		t.Fatalf("seed service: %v", err)
	}

	signup := map[string]any{
		"username":         "marie",
		"email":            "Marie@Example.com",
		"password":         "hunter2",
		"first_name":       "Marie",
		"last_name":        "Ndong",
		"regular_services": []int64{svcID},
	}
	var resp struct {
		Token string `json:"token"`
	}
	w := doJSON(t, router, http.MethodPost, "/v1/auth/signup/requester", "", signup, &resp)
	if w.Code != http.StatusOK || resp.Token == "" {
		t.Fatalf("signup failed: %d %s", w.Code, w.Body.String())
	}

	tok, err := jwt.Parse(resp.Token, func(token *jwt.Token) (any, error) { return []byte(testSecret), nil })
	if err != nil || !tok.Valid {
		t.Fatalf("invalid signup token: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["role"] != models.RoleRequester {
		t.Fatalf("unexpected role claim %v", claims["role"])
	}
	if isAdmin, _ := claims["is_admin"].(bool); isAdmin {
		t.Fatalf("fresh signup must not be admin")
	}

	// the email was normalized, signin is case-insensitive on input
	signin := map[string]string{"email": "marie@example.com", "password": "hunter2"}
	w = doJSON(t, router, http.MethodPost, "/v1/auth/signin", "", signin, &resp)
	if w.Code != http.StatusOK || resp.Token == "" {
		t.Fatalf("signin failed: %d %s", w.Code, w.Body.String())
	}

	// wrong password is rejected with the same message shape
	signin["password"] = "wrong"
	w = doJSON(t, router, http.MethodPost, "/v1/auth/signin", "", signin, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password got %d", w.Code)
	}

	// requester profile carries the regular services
	req, err := repo.GetRequesterByUser(context.Background(), int64(claims["user_id"].(float64)))
	if err != nil || req == nil {
		t.Fatalf("requester profile not created: %v", err)
	}
	if len(req.RegularServices) != 1 || req.RegularServices[0] != svcID {
		t.Fatalf("regular services not stored: %#v", req.RegularServices)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	router, repo := newTestServer(t, testConfig())
	ctx := context.Background()

	signup := map[string]any{
		"username":   "paul",
		"email":      "paul@example.com",
		"password":   "oldpass",
		"first_name": "Paul",
		"last_name":  "Essono",
	}
	w := doJSON(t, router, http.MethodPost, "/v1/auth/signup/requester", "", signup, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("signup failed: %d", w.Code)
	}

	// the response is uniform whether or not the address exists
	w = doJSON(t, router, http.MethodPost, "/v1/auth/forgot-password", "", map[string]string{"email": "nobody@example.com"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("forgot-password for unknown address: expected 200 got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/v1/auth/forgot-password", "", map[string]string{"email": "paul@example.com"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("forgot-password: expected 200 got %d", w.Code)
	}

	// craft the reset token the way the handler does
	user, err := repo.GetUserByEmail(ctx, "paul@example.com")
	if err != nil || user == nil {
		t.Fatalf("load user: %v", err)
	}
	reset := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"purpose": "password-reset",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	resetStr, err := reset.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign reset token: %v", err)
	}

	w = doJSON(t, router, http.MethodPost, "/v1/auth/reset-password", "", map[string]string{"token": resetStr, "password": "newpass"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset-password: expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	// old password no longer works, new one does
	w = doJSON(t, router, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": "paul@example.com", "password": "oldpass"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected old password rejected got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": "paul@example.com", "password": "newpass"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected new password accepted got %d", w.Code)
	}

	// a plain session token must not reset passwords
	session := signToken(t, user.ID, models.RoleRequester, false)
	w = doJSON(t, router, http.MethodPost, "/v1/auth/reset-password", "", map[string]string{"token": session, "password": "evil"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for token without reset purpose got %d", w.Code)
	}
}
