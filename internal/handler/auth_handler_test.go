package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/model"
	"taskhub/internal/service"
)

type memoryUsers struct {
	users map[string]*model.User
}

func (m *memoryUsers) FindByID(_ context.Context, id string) (model.User, error) {
	if u, ok := m.users[id]; ok {
		return *u, nil
	}
	return model.User{}, model.ErrUserNotFound
}

func (m *memoryUsers) FindByUsername(_ context.Context, username string) (model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return *u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (m *memoryUsers) ExistsByUsernameOrEmail(_ context.Context, username string, email string) (bool, error) {
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUsers) Create(_ context.Context, u model.User) error {
	m.users[u.ID] = &u
	return nil
}

func (m *memoryUsers) SetTwoFactorCode(_ context.Context, userID string, code string, expiry time.Time) error {
	u := m.users[userID]
	u.TwoFactorCode = &code
	u.TwoFactorExpiry = &expiry
	return nil
}

func (m *memoryUsers) ClearTwoFactorCode(_ context.Context, userID string) error {
	u := m.users[userID]
	u.TwoFactorCode = nil
	u.TwoFactorExpiry = nil
	return nil
}

func (m *memoryUsers) IncrementFailedAttempts(_ context.Context, userID string) (int, error) {
	u := m.users[userID]
	u.FailedLoginAttempts++
	return u.FailedLoginAttempts, nil
}

func (m *memoryUsers) LockAccount(_ context.Context, userID string, until time.Time) error {
	u := m.users[userID]
	u.LockedUntil = &until
	return nil
}

func (m *memoryUsers) ResetFailedAttempts(_ context.Context, userID string) error {
	u := m.users[userID]
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	return nil
}

type memoryTokens struct {
	byToken map[string]struct {
		userID    string
		expiresAt time.Time
		revoked   bool
	}
}

func (m *memoryTokens) Store(_ context.Context, token string, userID string, expiresAt time.Time) error {
	m.byToken[token] = struct {
		userID    string
		expiresAt time.Time
		revoked   bool
	}{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *memoryTokens) Validate(_ context.Context, token string) (string, error) {
	stored, ok := m.byToken[token]
	if !ok {
		return "", model.ErrTokenNotFound
	}
	if stored.revoked {
		return "", model.ErrTokenRevoked
	}
	if time.Now().UTC().After(stored.expiresAt) {
		return "", model.ErrTokenExpired
	}
	return stored.userID, nil
}

func (m *memoryTokens) Revoke(_ context.Context, token string) error {
	if stored, ok := m.byToken[token]; ok {
		stored.revoked = true
		m.byToken[token] = stored
	}
	return nil
}

func newLoginFixture(t *testing.T, twoFactor bool) *AuthHandler {
	t.Helper()

	tokens := &memoryTokens{byToken: map[string]struct {
		userID    string
		expiresAt time.Time
		revoked   bool
	}{}}
	return newLoginFixtureWithTokens(t, twoFactor, tokens)
}

func newLoginFixtureWithTokens(t *testing.T, twoFactor bool, tokens service.RefreshTokenStore) *AuthHandler {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &memoryUsers{users: map[string]*model.User{
		"u-1": {
			ID:               "u-1",
			Username:         "alice",
			Email:            "alice@example.com",
			PasswordHash:     string(hash),
			Role:             model.RoleMember,
			IsActive:         true,
			TwoFactorEnabled: twoFactor,
		},
	}}

	svc, err := service.NewAuthService("handler-test-secret", 15*time.Minute, time.Hour,
		10*time.Minute, 5, 15*time.Minute, users, tokens)
	require.NoError(t, err)

	return NewAuthHandler(svc)
}

func postJSON(t *testing.T, handlerFunc http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestAuthHandlerLogin(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials return a token pair", func(t *testing.T) {
		h := newLoginFixture(t, false)

		rec := postJSON(t, h.Login, "/api/v1/auth/login", model.LoginRequest{
			Username: "alice", Password: "correct-horse-battery",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		envelope := decodeEnvelope(t, rec)
		require.Equal(t, true, envelope["success"])

		data := envelope["data"].(map[string]any)
		require.NotEmpty(t, data["access_token"])
		require.NotEmpty(t, data["refresh_token"])
		require.Equal(t, "Bearer", data["token_type"])

		user := data["user"].(map[string]any)
		require.Equal(t, "alice", user["username"])
		require.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("two-factor account gets a pending response", func(t *testing.T) {
		h := newLoginFixture(t, true)

		rec := postJSON(t, h.Login, "/api/v1/auth/login", model.LoginRequest{
			Username: "alice", Password: "correct-horse-battery",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		data := decodeEnvelope(t, rec)["data"].(map[string]any)
		require.Equal(t, true, data["require_two_factor"])
		require.Equal(t, "u-1", data["user_id"])
		require.NotContains(t, rec.Body.String(), "access_token")
	})

	t.Run("wrong password and unknown user produce identical responses", func(t *testing.T) {
		h := newLoginFixture(t, false)

		wrongPass := postJSON(t, h.Login, "/api/v1/auth/login", model.LoginRequest{
			Username: "alice", Password: "nope",
		})
		unknownUser := postJSON(t, h.Login, "/api/v1/auth/login", model.LoginRequest{
			Username: "mallory", Password: "nope",
		})

		require.Equal(t, http.StatusUnauthorized, wrongPass.Code)
		require.Equal(t, http.StatusUnauthorized, unknownUser.Code)
		require.JSONEq(t, wrongPass.Body.String(), unknownUser.Body.String())
	})

	t.Run("two-factor with a malformed user id gets the generic unauthorized body", func(t *testing.T) {
		h := newLoginFixture(t, false)

		badID := postJSON(t, h.VerifyTwoFactor, "/api/v1/auth/two-factor", model.TwoFactorRequest{
			UserID: "not-a-uuid", Code: "123456",
		})
		badLogin := postJSON(t, h.Login, "/api/v1/auth/login", model.LoginRequest{
			Username: "mallory", Password: "nope",
		})

		require.Equal(t, http.StatusUnauthorized, badID.Code)
		require.JSONEq(t, badLogin.Body.String(), badID.Body.String())
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		h := newLoginFixture(t, false)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		h.Login(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandlerRefresh(t *testing.T) {
	t.Parallel()

	h := newLoginFixture(t, false)

	login := postJSON(t, h.Login, "/api/v1/auth/login", model.LoginRequest{
		Username: "alice", Password: "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, login.Code)
	refreshToken := decodeEnvelope(t, login)["data"].(map[string]any)["refresh_token"].(string)

	t.Run("refresh returns only a new access token", func(t *testing.T) {
		rec := postJSON(t, h.Refresh, "/api/v1/auth/refresh", model.RefreshRequest{RefreshToken: refreshToken})
		require.Equal(t, http.StatusOK, rec.Code)

		data := decodeEnvelope(t, rec)["data"].(map[string]any)
		require.NotEmpty(t, data["access_token"])
		require.NotContains(t, data, "refresh_token")
	})

	t.Run("missing token is a bad request", func(t *testing.T) {
		rec := postJSON(t, h.Refresh, "/api/v1/auth/refresh", model.RefreshRequest{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bogus token is unauthorized", func(t *testing.T) {
		rec := postJSON(t, h.Refresh, "/api/v1/auth/refresh", model.RefreshRequest{RefreshToken: "bogus"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("logout revokes the refresh token", func(t *testing.T) {
		rec := postJSON(t, h.Logout, "/api/v1/auth/logout", model.RefreshRequest{RefreshToken: refreshToken})
		require.Equal(t, http.StatusOK, rec.Code)

		refreshAfter := postJSON(t, h.Refresh, "/api/v1/auth/refresh", model.RefreshRequest{RefreshToken: refreshToken})
		require.Equal(t, http.StatusUnauthorized, refreshAfter.Code)
	})
}

type capturingLogHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *capturingLogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capturingLogHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *capturingLogHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *capturingLogHandler) WithGroup(string) slog.Handler      { return h }

type revokeFailTokens struct {
	*memoryTokens
}

func (revokeFailTokens) Revoke(context.Context, string) error {
	return errors.New("token store offline")
}

// Not parallel: swaps the process-wide default logger.
func TestAuthHandlerLogoutRevocationFailure(t *testing.T) {
	capture := &capturingLogHandler{}
	prev := slog.Default()
	slog.SetDefault(slog.New(capture))
	defer slog.SetDefault(prev)

	tokens := revokeFailTokens{memoryTokens: &memoryTokens{byToken: map[string]struct {
		userID    string
		expiresAt time.Time
		revoked   bool
	}{}}}
	h := newLoginFixtureWithTokens(t, false, tokens)

	login := postJSON(t, h.Login, "/api/v1/auth/login", model.LoginRequest{
		Username: "alice", Password: "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, login.Code)
	refreshToken := decodeEnvelope(t, login)["data"].(map[string]any)["refresh_token"].(string)

	rec := postJSON(t, h.Logout, "/api/v1/auth/logout", model.RefreshRequest{RefreshToken: refreshToken})

	// The client still gets its best-effort success answer.
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	require.Equal(t, true, data["logged_out"])

	// The failure is on record for operators.
	warned := false
	for _, r := range capture.records {
		if r.Level == slog.LevelWarn {
			warned = true
		}
	}
	require.True(t, warned, "expected a warning about the failed revocation")
}
