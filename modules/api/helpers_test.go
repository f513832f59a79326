package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/civic-platform/config"
	"github.com/example/civic-platform/modules/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// newTestApp serves the auth endpoints over a real auth service backed by a
// temporary SQLite file.
func newTestApp(t *testing.T, production bool) (*fiber.App, *auth.AuthService) {
	t.Helper()
	return newTestAppWithClock(t, production, nil)
}

// newTestAppWithClock is newTestApp with an injected token clock.
func newTestAppWithClock(t *testing.T, production bool, now func() time.Time) (*fiber.App, *auth.AuthService) {
	t.Helper()

	db, err := auth.OpenDatabase(config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	service := auth.NewAuthService(
		auth.NewUserRepository(db),
		auth.NewPasswordHasher(4, 4),
		auth.NewTokenManager(auth.TokenConfig{
			Secret: "api-test-secret",
			Issuer: "api-test",
			TTL:    config.TokenTTL,
			Now:    now,
		}),
		nil,
		nil,
	)

	return NewApp(service, nil, production), service
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func tokenCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == TokenCookie {
			return c
		}
	}
	return nil
}

func registerBody(email, phone string) map[string]string {
	return map[string]string{
		"fullName":        "John Doe",
		"email":           email,
		"phone":           phone,
		"password":        "secret123",
		"confirmPassword": "secret123",
	}
}

// registerUser registers an account and returns its session token and ID.
func registerUser(t *testing.T, app *fiber.App, email, phone string) (string, uint) {
	t.Helper()

	resp := doRequest(t, app, http.MethodPost, "/api/auth/register", registerBody(email, phone), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	cookie := tokenCookie(resp)
	require.NotNil(t, cookie)

	body := decode[UserResponse](t, resp)
	require.NotNil(t, body.User)
	return cookie.Value, body.User.ID
}

const sevenDays = 7 * 24 * time.Hour
