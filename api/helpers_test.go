package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/servicehub/servicehub/api"
	hubdb "github.com/servicehub/servicehub/db"
	"github.com/servicehub/servicehub/internal/config"
	dbpkg "github.com/servicehub/servicehub/internal/db"
	"github.com/servicehub/servicehub/internal/mailer"
	"github.com/servicehub/servicehub/internal/models"
	sqlite "github.com/servicehub/servicehub/internal/repository/sqlite"
	"github.com/servicehub/servicehub/internal/storage"
)

const testSecret = "testsecret"

func testConfig() *config.Config {
	return &config.Config{
		Addr:               ":0",
		JWTSecret:          testSecret,
		APITimeout:         5 * time.Second,
		DatabasePath:       "ignored",
		TokenDuration:      time.Hour,
		ResetTokenDuration: time.Hour,
		RateLimit:          config.RateLimit{PerMinute: 10000, Burst: 10000},
	}
}

// newTestServer wires the full router against a fresh in-memory database and
// returns a repo handle on the same database for seeding and asserts.
func newTestServer(t *testing.T, cfg *config.Config) (http.Handler, *sqlite.SQLiteRepo) {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := dbpkg.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := dbpkg.Migrate(ctx, conn, hubdb.Migrations); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	router, err := api.SetupRoutes(cfg, "test", "now", conn, storage.New(t.TempDir()), mailer.NewLogSender(nil), nil)
	if err != nil {
		t.Fatalf("failed to set up routes: %v", err)
	}

	return router, sqlite.New(conn, nil)
}

// seedAdmin creates an admin user row and returns a signed token for it.
func seedAdmin(t *testing.T, repo *sqlite.SQLiteRepo) (int64, string) {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), &models.User{
		Role:         models.RoleAdmin,
		Username:     "admin-" + t.Name(),
		Email:        fmt.Sprintf("admin-%d@example.com", time.Now().UnixNano()),
		PasswordHash: "unused",
		IsAdmin:      true,
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return id, signToken(t, id, models.RoleAdmin, true)
}

func signToken(t *testing.T, userID int64, role string, isAdmin bool) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"role":     role,
		"is_admin": isAdmin,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// doJSON performs a request against the router and decodes the JSON response
// into out when out is non-nil.
func doJSON(t *testing.T, h http.Handler, method, path, token string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if out != nil && w.Code < 300 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("unmarshal response %q: %v", w.Body.String(), err)
		}
	}

	return w
}
