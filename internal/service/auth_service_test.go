package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/model"
)

type fakeUserStore struct {
	users map[string]*model.User
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	store := &fakeUserStore{users: map[string]*model.User{}}
	for _, u := range users {
		store.users[u.ID] = u
	}
	return store
}

func (f *fakeUserStore) FindByID(_ context.Context, id string) (model.User, error) {
	if u, ok := f.users[id]; ok {
		return *u, nil
	}
	return model.User{}, model.ErrUserNotFound
}

func (f *fakeUserStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return *u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (f *fakeUserStore) ExistsByUsernameOrEmail(_ context.Context, username string, email string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) Create(_ context.Context, u model.User) error {
	f.users[u.ID] = &u
	return nil
}

func (f *fakeUserStore) SetTwoFactorCode(_ context.Context, userID string, code string, expiry time.Time) error {
	u := f.users[userID]
	u.TwoFactorCode = &code
	u.TwoFactorExpiry = &expiry
	return nil
}

func (f *fakeUserStore) ClearTwoFactorCode(_ context.Context, userID string) error {
	u := f.users[userID]
	u.TwoFactorCode = nil
	u.TwoFactorExpiry = nil
	return nil
}

func (f *fakeUserStore) IncrementFailedAttempts(_ context.Context, userID string) (int, error) {
	u := f.users[userID]
	u.FailedLoginAttempts++
	return u.FailedLoginAttempts, nil
}

func (f *fakeUserStore) LockAccount(_ context.Context, userID string, until time.Time) error {
	u := f.users[userID]
	u.LockedUntil = &until
	return nil
}

func (f *fakeUserStore) ResetFailedAttempts(_ context.Context, userID string) error {
	u := f.users[userID]
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	return nil
}

type storedToken struct {
	userID    string
	expiresAt time.Time
	revoked   bool
}

type fakeTokenStore struct {
	tokens map[string]*storedToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]*storedToken{}}
}

func (f *fakeTokenStore) Store(_ context.Context, token string, userID string, expiresAt time.Time) error {
	f.tokens[token] = &storedToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeTokenStore) Validate(_ context.Context, token string) (string, error) {
	stored, ok := f.tokens[token]
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

func (f *fakeTokenStore) Revoke(_ context.Context, token string) error {
	if stored, ok := f.tokens[token]; ok {
		stored.revoked = true
	}
	return nil
}

type capturingSender struct {
	lastCode string
	calls    int
}

func (c *capturingSender) SendCode(_ context.Context, _ model.User, code string) error {
	c.lastCode = code
	c.calls++
	return nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestAuthService(t *testing.T, users *fakeUserStore, tokens *fakeTokenStore) *AuthService {
	t.Helper()
	svc, err := NewAuthService("test-secret-0123456789", 15*time.Minute, 168*time.Hour,
		10*time.Minute, 5, 15*time.Minute, users, tokens)
	require.NoError(t, err)
	return svc
}

func activeUser(t *testing.T, password string) *model.User {
	t.Helper()
	return &model.User{
		ID:           "u-1",
		Username:     "alice",
		Email:        "alice@example.com",
		Firstname:    "Alice",
		Lastname:     "Doe",
		PasswordHash: hashPassword(t, password),
		Role:         model.RoleMember,
		IsActive:     true,
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("issues token pair for valid credentials", func(t *testing.T) {
		users := newFakeUserStore(activeUser(t, "hunter2-secret"))
		tokens := newFakeTokenStore()
		svc := newTestAuthService(t, users, tokens)

		result, err := svc.Login(ctx, "alice", "hunter2-secret")
		require.NoError(t, err)
		require.Nil(t, result.Pending)
		require.NotNil(t, result.Tokens)
		require.NotEmpty(t, result.Tokens.AccessToken)
		require.NotEmpty(t, result.Tokens.RefreshToken)
		require.Equal(t, "Bearer", result.Tokens.TokenType)
		require.Equal(t, "alice", result.Tokens.User.Username)
		require.Len(t, tokens.tokens, 1)
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		users := newFakeUserStore(activeUser(t, "hunter2-secret"))
		svc := newTestAuthService(t, users, newFakeTokenStore())

		_, unknownErr := svc.Login(ctx, "nobody", "whatever-pass")
		_, wrongErr := svc.Login(ctx, "alice", "wrong-password")

		require.ErrorIs(t, unknownErr, model.ErrInvalidCredentials)
		require.ErrorIs(t, wrongErr, model.ErrInvalidCredentials)
	})

	t.Run("inactive account cannot log in", func(t *testing.T) {
		u := activeUser(t, "hunter2-secret")
		u.IsActive = false
		svc := newTestAuthService(t, newFakeUserStore(u), newFakeTokenStore())

		_, err := svc.Login(ctx, "alice", "hunter2-secret")
		require.ErrorIs(t, err, model.ErrInvalidCredentials)
	})

	t.Run("locks account after repeated failures", func(t *testing.T) {
		u := activeUser(t, "hunter2-secret")
		users := newFakeUserStore(u)
		svc := newTestAuthService(t, users, newFakeTokenStore())

		for i := 0; i < 5; i++ {
			_, err := svc.Login(ctx, "alice", "wrong-password")
			require.ErrorIs(t, err, model.ErrInvalidCredentials)
		}

		_, err := svc.Login(ctx, "alice", "hunter2-secret")
		require.ErrorIs(t, err, model.ErrAccountLocked)
	})

	t.Run("successful login resets the failure counter", func(t *testing.T) {
		u := activeUser(t, "hunter2-secret")
		u.FailedLoginAttempts = 3
		users := newFakeUserStore(u)
		svc := newTestAuthService(t, users, newFakeTokenStore())

		_, err := svc.Login(ctx, "alice", "hunter2-secret")
		require.NoError(t, err)
		require.Zero(t, users.users["u-1"].FailedLoginAttempts)
	})

	t.Run("two-factor account gets pending marker instead of tokens", func(t *testing.T) {
		u := activeUser(t, "hunter2-secret")
		u.TwoFactorEnabled = true
		users := newFakeUserStore(u)
		tokens := newFakeTokenStore()
		svc := newTestAuthService(t, users, tokens)
		sender := &capturingSender{}
		svc.SetTwoFactorSender(sender)

		result, err := svc.Login(ctx, "alice", "hunter2-secret")
		require.NoError(t, err)
		require.Nil(t, result.Tokens)
		require.NotNil(t, result.Pending)
		require.True(t, result.Pending.RequireTwoFactor)
		require.Equal(t, "u-1", result.Pending.UserID)
		require.Empty(t, tokens.tokens, "no tokens before the challenge completes")
		require.Equal(t, 1, sender.calls)
		require.Len(t, sender.lastCode, 6)
	})

	t.Run("repeated login overwrites the pending code", func(t *testing.T) {
		u := activeUser(t, "hunter2-secret")
		u.TwoFactorEnabled = true
		users := newFakeUserStore(u)
		svc := newTestAuthService(t, users, newFakeTokenStore())
		sender := &capturingSender{}
		svc.SetTwoFactorSender(sender)

		_, err := svc.Login(ctx, "alice", "hunter2-secret")
		require.NoError(t, err)
		first := sender.lastCode

		_, err = svc.Login(ctx, "alice", "hunter2-secret")
		require.NoError(t, err)

		require.Equal(t, 2, sender.calls)
		require.Equal(t, *users.users["u-1"].TwoFactorCode, sender.lastCode)
		_ = first // codes may collide, so only the stored value is asserted
	})
}

func TestVerifyTwoFactor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	setup := func(t *testing.T) (*AuthService, *fakeUserStore, *capturingSender) {
		u := activeUser(t, "hunter2-secret")
		u.TwoFactorEnabled = true
		users := newFakeUserStore(u)
		svc := newTestAuthService(t, users, newFakeTokenStore())
		sender := &capturingSender{}
		svc.SetTwoFactorSender(sender)

		_, err := svc.Login(ctx, "alice", "hunter2-secret")
		require.NoError(t, err)
		return svc, users, sender
	}

	t.Run("correct code issues tokens and clears the challenge", func(t *testing.T) {
		svc, users, sender := setup(t)

		pair, err := svc.VerifyTwoFactor(ctx, "u-1", sender.lastCode)
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Nil(t, users.users["u-1"].TwoFactorCode, "code is single-use")
	})

	t.Run("code cannot be replayed", func(t *testing.T) {
		svc, _, sender := setup(t)

		_, err := svc.VerifyTwoFactor(ctx, "u-1", sender.lastCode)
		require.NoError(t, err)

		_, err = svc.VerifyTwoFactor(ctx, "u-1", sender.lastCode)
		require.ErrorIs(t, err, model.ErrChallengeNotFound)
	})

	t.Run("wrong code is rejected and stays pending", func(t *testing.T) {
		svc, users, sender := setup(t)

		wrong := "000000"
		if sender.lastCode == wrong {
			wrong = "000001"
		}

		_, err := svc.VerifyTwoFactor(ctx, "u-1", wrong)
		require.ErrorIs(t, err, model.ErrTwoFactorMismatch)
		require.NotNil(t, users.users["u-1"].TwoFactorCode)
	})

	t.Run("expired code is cleared on read", func(t *testing.T) {
		svc, users, sender := setup(t)

		past := time.Now().UTC().Add(-time.Minute)
		users.users["u-1"].TwoFactorExpiry = &past

		_, err := svc.VerifyTwoFactor(ctx, "u-1", sender.lastCode)
		require.ErrorIs(t, err, model.ErrChallengeExpired)
		require.Nil(t, users.users["u-1"].TwoFactorCode)
	})

	t.Run("no pending challenge", func(t *testing.T) {
		svc := newTestAuthService(t, newFakeUserStore(activeUser(t, "hunter2-secret")), newFakeTokenStore())

		_, err := svc.VerifyTwoFactor(ctx, "u-1", "123456")
		require.ErrorIs(t, err, model.ErrChallengeNotFound)

		_, err = svc.VerifyTwoFactor(ctx, "ghost", "123456")
		require.ErrorIs(t, err, model.ErrChallengeNotFound)
	})
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid refresh token yields a fresh access token only", func(t *testing.T) {
		users := newFakeUserStore(activeUser(t, "hunter2-secret"))
		tokens := newFakeTokenStore()
		svc := newTestAuthService(t, users, tokens)

		result, err := svc.Login(ctx, "alice", "hunter2-secret")
		require.NoError(t, err)

		refreshed, err := svc.Refresh(ctx, result.Tokens.RefreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, refreshed.AccessToken)
		require.Equal(t, "Bearer", refreshed.TokenType)

		// The refresh token is not rotated; it remains usable.
		_, err = svc.Refresh(ctx, result.Tokens.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("unknown token", func(t *testing.T) {
		svc := newTestAuthService(t, newFakeUserStore(), newFakeTokenStore())

		_, err := svc.Refresh(ctx, "not-a-token")
		require.ErrorIs(t, err, model.ErrTokenNotFound)
	})

	t.Run("expired token", func(t *testing.T) {
		users := newFakeUserStore(activeUser(t, "hunter2-secret"))
		tokens := newFakeTokenStore()
		svc := newTestAuthService(t, users, tokens)

		require.NoError(t, tokens.Store(ctx, "stale", "u-1", time.Now().UTC().Add(-time.Hour)))

		_, err := svc.Refresh(ctx, "stale")
		require.ErrorIs(t, err, model.ErrTokenExpired)
	})

	t.Run("revoked token after logout", func(t *testing.T) {
		users := newFakeUserStore(activeUser(t, "hunter2-secret"))
		tokens := newFakeTokenStore()
		svc := newTestAuthService(t, users, tokens)

		result, err := svc.Login(ctx, "alice", "hunter2-secret")
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, result.Tokens.RefreshToken))

		_, err = svc.Refresh(ctx, result.Tokens.RefreshToken)
		require.ErrorIs(t, err, model.ErrTokenRevoked)
	})
}

func TestRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates a member by default", func(t *testing.T) {
		users := newFakeUserStore()
		svc := newTestAuthService(t, users, newFakeTokenStore())

		user, err := svc.Register(ctx, model.RegisterRequest{
			Username: "bob",
			Email:    "bob@example.com",
			Password: "long-enough-pass",
		})
		require.NoError(t, err)
		require.Equal(t, model.RoleMember, user.Role)
		require.NotEmpty(t, user.ID)

		stored, err := users.FindByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotEqual(t, "long-enough-pass", stored.PasswordHash)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		users := newFakeUserStore(activeUser(t, "hunter2-secret"))
		svc := newTestAuthService(t, users, newFakeTokenStore())

		_, err := svc.Register(ctx, model.RegisterRequest{
			Username: "alice",
			Email:    "other@example.com",
			Password: "long-enough-pass",
		})
		require.ErrorIs(t, err, model.ErrUserAlreadyExists)
	})

	t.Run("rejects short passwords and bad emails", func(t *testing.T) {
		svc := newTestAuthService(t, newFakeUserStore(), newFakeTokenStore())

		_, err := svc.Register(ctx, model.RegisterRequest{Username: "x", Email: "x@example.com", Password: "short"})
		require.Error(t, err)

		_, err = svc.Register(ctx, model.RegisterRequest{Username: "x", Email: "not-an-email", Password: "long-enough-pass"})
		require.Error(t, err)
	})
}

func TestValidateAccessToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	users := newFakeUserStore(activeUser(t, "hunter2-secret"))
	svc := newTestAuthService(t, users, newFakeTokenStore())

	result, err := svc.Login(ctx, "alice", "hunter2-secret")
	require.NoError(t, err)

	t.Run("accepts a freshly issued access token", func(t *testing.T) {
		claims, err := svc.ValidateAccessToken(result.Tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "u-1", claims.UserID)
		require.Equal(t, "alice", claims.Username)
		require.Equal(t, model.RoleMember, claims.Role)
		require.NotEmpty(t, claims.TokenID)
	})

	t.Run("rejects garbage and refresh tokens", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("garbage")
		require.Error(t, err)

		// Opaque refresh tokens are not JWTs and never pass validation.
		_, err = svc.ValidateAccessToken(result.Tokens.RefreshToken)
		require.Error(t, err)
	})

	t.Run("rejects tokens signed with another secret", func(t *testing.T) {
		other, err := NewAuthService("another-secret-entirely", 15*time.Minute, time.Hour,
			10*time.Minute, 5, 15*time.Minute, users, newFakeTokenStore())
		require.NoError(t, err)

		otherResult, err := other.Login(ctx, "alice", "hunter2-secret")
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(otherResult.Tokens.AccessToken)
		require.Error(t, err)
	})
}

func TestNoSecretLeakage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	u := activeUser(t, "hunter2-secret")
	u.TwoFactorEnabled = true
	users := newFakeUserStore(u)
	svc := newTestAuthService(t, users, newFakeTokenStore())
	sender := &capturingSender{}
	svc.SetTwoFactorSender(sender)

	result, err := svc.Login(ctx, "alice", "hunter2-secret")
	require.NoError(t, err)

	pending, err := json.Marshal(result.Pending)
	require.NoError(t, err)
	require.NotContains(t, string(pending), sender.lastCode)

	pair, err := svc.VerifyTwoFactor(ctx, "u-1", sender.lastCode)
	require.NoError(t, err)

	serialized, err := json.Marshal(pair)
	require.NoError(t, err)
	require.NotContains(t, string(serialized), u.PasswordHash)
}
