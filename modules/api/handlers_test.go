package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/civic-platform/modules/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_SetsSessionCookie(t *testing.T) {
	app, _ := newTestApp(t, false)

	resp := doRequest(t, app, http.MethodPost, "/api/auth/register",
		registerBody("john@example.com", "5551234567"), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	cookie := tokenCookie(resp)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.InDelta(t, sevenDays.Seconds(), float64(cookie.MaxAge), 5)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"email":"john@example.com"`)
	assert.Contains(t, string(raw), `"isAdmin":false`)
	assert.NotContains(t, strings.ToLower(string(raw)), "password")
}

func TestRegister_SecureCookieInProduction(t *testing.T) {
	app, _ := newTestApp(t, true)

	resp := doRequest(t, app, http.MethodPost, "/api/auth/register",
		registerBody("john@example.com", "5551234567"), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	cookie := tokenCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
}

func TestRegister_ThenCurrentUser(t *testing.T) {
	app, _ := newTestApp(t, false)
	token, id := registerUser(t, app, "john@example.com", "5551234567")

	resp := doRequest(t, app, http.MethodGet, "/api/auth/user", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[UserResponse](t, resp)
	require.NotNil(t, body.User)
	assert.Equal(t, id, body.User.ID)
	assert.Equal(t, "john@example.com", body.User.Email)
	assert.False(t, body.User.IsAdmin)
}

func TestRegister_Failures(t *testing.T) {
	app, _ := newTestApp(t, false)
	registerUser(t, app, "john@example.com", "5551234567")

	mismatch := registerBody("jane@example.com", "5559876543")
	mismatch["confirmPassword"] = "different"

	tests := []struct {
		name        string
		body        any
		wantStatus  int
		wantError   string
		wantMessage string
		wantField   string
	}{
		{
			name:       "password mismatch",
			body:       mismatch,
			wantStatus: http.StatusBadRequest,
			wantError:  "validation",
			wantField:  "confirmPassword",
		},
		{
			name:        "duplicate email",
			body:        registerBody("john@example.com", "5559876543"),
			wantStatus:  http.StatusBadRequest,
			wantError:   "conflict",
			wantMessage: auth.MsgEmailInUse,
		},
		{
			name:        "duplicate phone",
			body:        registerBody("jane@example.com", "5551234567"),
			wantStatus:  http.StatusBadRequest,
			wantError:   "conflict",
			wantMessage: auth.MsgPhoneInUse,
		},
		{
			name:       "malformed body",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "validation",
			wantField:  "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, app, http.MethodPost, "/api/auth/register", tt.body, "")
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Nil(t, tokenCookie(resp))

			body := decode[ErrorResponse](t, resp)
			assert.Equal(t, tt.wantError, body.Error)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, body.Message)
			}
			if tt.wantField != "" {
				assert.Contains(t, body.Fields, tt.wantField)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	app, _ := newTestApp(t, false)
	_, id := registerUser(t, app, "john@example.com", "5551234567")

	resp := doRequest(t, app, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "john@example.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := tokenCookie(resp)
	require.NotNil(t, cookie)

	me := doRequest(t, app, http.MethodGet, "/api/auth/user", nil, cookie.Value)
	require.Equal(t, http.StatusOK, me.StatusCode)
	assert.Equal(t, id, decode[UserResponse](t, me).User.ID)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	app, _ := newTestApp(t, false)
	registerUser(t, app, "john@example.com", "5551234567")

	wrongPassword := doRequest(t, app, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "john@example.com", "password": "wrong-password"}, "")
	unknownEmail := doRequest(t, app, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "nobody@example.com", "password": "secret123"}, "")

	require.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.StatusCode)

	a, err := io.ReadAll(wrongPassword.Body)
	require.NoError(t, err)
	b, err := io.ReadAll(unknownEmail.Body)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Contains(t, string(a), auth.MsgInvalidCredentials)
}

func TestCurrentUser_Unauthenticated(t *testing.T) {
	app, service := newTestApp(t, false)
	token, id := registerUser(t, app, "john@example.com", "5551234567")

	tampered := []byte(token)
	if tampered[len(tampered)-2] == 'A' {
		tampered[len(tampered)-2] = 'B'
	} else {
		tampered[len(tampered)-2] = 'A'
	}

	t.Run("no cookie", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/auth/user", nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("tampered token", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/auth/user", nil, string(tampered))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/auth/user", nil, "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("deleted user", func(t *testing.T) {
		require.NoError(t, service.DeleteUser(context.Background(), id))

		resp := doRequest(t, app, http.MethodGet, "/api/auth/user", nil, token)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "authentication", decode[ErrorResponse](t, resp).Error)
	})
}

func TestCurrentUser_ExpiredToken(t *testing.T) {
	var mu sync.Mutex
	clock := time.Now()
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}

	app, _ := newTestAppWithClock(t, false, now)
	token, _ := registerUser(t, app, "john@example.com", "5551234567")

	resp := doRequest(t, app, http.MethodGet, "/api/auth/user", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mu.Lock()
	clock = clock.Add(sevenDays + time.Minute)
	mu.Unlock()

	resp = doRequest(t, app, http.MethodGet, "/api/auth/user", nil, token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "authentication", decode[ErrorResponse](t, resp).Error)
}

func TestCheckAdmin(t *testing.T) {
	app, service := newTestApp(t, false)
	token, id := registerUser(t, app, "john@example.com", "5551234567")

	resp := doRequest(t, app, http.MethodGet, "/api/auth/admin", nil, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, auth.MsgForbidden, decode[ErrorResponse](t, resp).Message)

	resp = doRequest(t, app, http.MethodGet, "/api/auth/admin", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, err := service.PromoteUser(context.Background(), id)
	require.NoError(t, err)

	// The same token now passes: admin status is read on every request.
	resp = doRequest(t, app, http.MethodGet, "/api/auth/admin", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[AdminResponse](t, resp).IsAdmin)
}

func TestPromoteUser(t *testing.T) {
	app, service := newTestApp(t, false)
	adminToken, adminID := registerUser(t, app, "admin@example.com", "5550000001")
	userToken, userID := registerUser(t, app, "john@example.com", "5551234567")

	_, err := service.PromoteUser(context.Background(), adminID)
	require.NoError(t, err)

	t.Run("non-admin is forbidden", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, "/api/auth/users/1/promote", nil, userToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("bad id", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, "/api/auth/users/abc/promote", nil, adminToken)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, "/api/auth/users/9999/promote", nil, adminToken)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("promotes", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost,
			"/api/auth/users/"+strconv.FormatUint(uint64(userID), 10)+"/promote", nil, adminToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, decode[UserResponse](t, resp).User.IsAdmin)

		check := doRequest(t, app, http.MethodGet, "/api/auth/admin", nil, userToken)
		assert.Equal(t, http.StatusOK, check.StatusCode)
	})
}

func TestLogout(t *testing.T) {
	app, _ := newTestApp(t, false)
	registerUser(t, app, "john@example.com", "5551234567")

	for i := 0; i < 2; i++ {
		resp := doRequest(t, app, http.MethodPost, "/api/auth/logout", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		cookie := tokenCookie(resp)
		require.NotNil(t, cookie)
		assert.Empty(t, cookie.Value)
		assert.True(t, cookie.Expires.Before(time.Now()))
		assert.True(t, cookie.HttpOnly)

		// A browser would now send the cleared cookie.
		me := doRequest(t, app, http.MethodGet, "/api/auth/user", nil, cookie.Value)
		assert.Equal(t, http.StatusUnauthorized, me.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, false)

	resp := doRequest(t, app, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
