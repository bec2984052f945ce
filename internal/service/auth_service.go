package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/model"
	"taskhub/pkg/apierror"
)

const bcryptCost = 12

// UserStore is the slice of the user repository the auth flow needs.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error)
	Create(ctx context.Context, u model.User) error
	SetTwoFactorCode(ctx context.Context, userID string, code string, expiry time.Time) error
	ClearTwoFactorCode(ctx context.Context, userID string) error
	IncrementFailedAttempts(ctx context.Context, userID string) (int, error)
	LockAccount(ctx context.Context, userID string, until time.Time) error
	ResetFailedAttempts(ctx context.Context, userID string) error
}

// RefreshTokenStore persists opaque refresh tokens.
type RefreshTokenStore interface {
	Store(ctx context.Context, token string, userID string, expiresAt time.Time) error
	Validate(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

// TwoFactorSender delivers a generated code out-of-band. The delivery
// channel (email, SMS) is outside this service; the default sender just
// logs that a code was issued.
type TwoFactorSender interface {
	SendCode(ctx context.Context, user model.User, code string) error
}

type logSender struct{}

func (logSender) SendCode(_ context.Context, user model.User, _ string) error {
	slog.Info("two-factor code issued", "user_id", user.ID)
	return nil
}

// AuthService orchestrates login, two-factor verification, and token
// refresh. Per-call failures are terminal; nothing is retried here.
type AuthService struct {
	users         UserStore
	tokens        RefreshTokenStore
	sender        TwoFactorSender
	jwtSecret     []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	twoFactorTTL  time.Duration
	maxLoginFails int
	lockoutFor    time.Duration
}

func NewAuthService(jwtSecret string, accessTTL, refreshTTL, twoFactorTTL time.Duration,
	maxLoginFails int, lockoutFor time.Duration,
	users UserStore, tokens RefreshTokenStore) (*AuthService, error) {

	if strings.TrimSpace(jwtSecret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if maxLoginFails <= 0 {
		maxLoginFails = 5
	}
	if lockoutFor <= 0 {
		lockoutFor = 15 * time.Minute
	}

	return &AuthService{
		users:         users,
		tokens:        tokens,
		sender:        logSender{},
		jwtSecret:     []byte(jwtSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		twoFactorTTL:  twoFactorTTL,
		maxLoginFails: maxLoginFails,
		lockoutFor:    lockoutFor,
	}, nil
}

// SetTwoFactorSender swaps the out-of-band code delivery channel.
func (s *AuthService) SetTwoFactorSender(sender TwoFactorSender) {
	if sender != nil {
		s.sender = sender
	}
}

// Login verifies credentials and either issues tokens directly or,
// when the user has two-factor enabled, stores a fresh challenge code
// and reports the pending state. A repeated login while a challenge is
// pending simply overwrites the prior code.
func (s *AuthService) Login(ctx context.Context, username string, password string) (model.LoginResult, error) {
	user, err := s.verifyCredentials(ctx, username, password)
	if err != nil {
		return model.LoginResult{}, err
	}

	if user.TwoFactorEnabled {
		code, expiry, err := generateTwoFactorCode(s.twoFactorTTL)
		if err != nil {
			return model.LoginResult{}, err
		}

		if err := s.users.SetTwoFactorCode(ctx, user.ID, code, expiry); err != nil {
			return model.LoginResult{}, err
		}

		if err := s.sender.SendCode(ctx, user, code); err != nil {
			slog.Error("two-factor code delivery failed", "user_id", user.ID, "error", err)
		}

		return model.LoginResult{
			Pending: &model.TwoFactorPending{RequireTwoFactor: true, UserID: user.ID},
		}, nil
	}

	tokens, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return model.LoginResult{}, err
	}

	return model.LoginResult{Tokens: &tokens}, nil
}

// verifyCredentials never reveals whether the username or the password
// was wrong: both cases return ErrInvalidCredentials.
func (s *AuthService) verifyCredentials(ctx context.Context, username string, password string) (model.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.User{}, model.ErrInvalidCredentials
		}
		return model.User{}, err
	}

	if !user.IsActive {
		slog.Warn("login attempt on inactive account", "user_id", user.ID)
		return model.User{}, model.ErrInvalidCredentials
	}

	if user.LockedUntil != nil && time.Now().UTC().Before(*user.LockedUntil) {
		return model.User{}, model.ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		attempts, countErr := s.users.IncrementFailedAttempts(ctx, user.ID)
		if countErr != nil {
			slog.Error("failed attempt counter update failed", "user_id", user.ID, "error", countErr)
		} else if attempts >= s.maxLoginFails {
			until := time.Now().UTC().Add(s.lockoutFor)
			if lockErr := s.users.LockAccount(ctx, user.ID, until); lockErr != nil {
				slog.Error("account lock failed", "user_id", user.ID, "error", lockErr)
			} else {
				slog.Warn("account locked after repeated failures", "user_id", user.ID, "until", until)
			}
		}
		return model.User{}, model.ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		if err := s.users.ResetFailedAttempts(ctx, user.ID); err != nil {
			slog.Error("failed attempt counter reset failed", "user_id", user.ID, "error", err)
		}
	}

	return user, nil
}

// VerifyTwoFactor completes a pending challenge. The stored code is
// single-use: it is cleared on success and on expiry. Every failure
// kind surfaces to the transport as a generic unauthorized.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, userID string, code string) (model.TokenPair, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.TokenPair{}, model.ErrChallengeNotFound
		}
		return model.TokenPair{}, err
	}

	if user.TwoFactorCode == nil || user.TwoFactorExpiry == nil {
		return model.TokenPair{}, model.ErrChallengeNotFound
	}

	if time.Now().UTC().After(*user.TwoFactorExpiry) {
		if err := s.users.ClearTwoFactorCode(ctx, user.ID); err != nil {
			slog.Error("stale two-factor code cleanup failed", "user_id", user.ID, "error", err)
		}
		return model.TokenPair{}, model.ErrChallengeExpired
	}

	if subtle.ConstantTimeCompare([]byte(*user.TwoFactorCode), []byte(strings.TrimSpace(code))) != 1 {
		return model.TokenPair{}, model.ErrTwoFactorMismatch
	}

	if err := s.users.ClearTwoFactorCode(ctx, user.ID); err != nil {
		return model.TokenPair{}, err
	}

	return s.issueTokenPair(ctx, user)
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated and stays valid until expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.AccessTokenOnly, error) {
	userID, err := s.tokens.Validate(ctx, refreshToken)
	if err != nil {
		return model.AccessTokenOnly{}, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.AccessTokenOnly{}, model.ErrTokenNotFound
		}
		return model.AccessTokenOnly{}, err
	}

	accessToken, err := s.issueAccessToken(user)
	if err != nil {
		return model.AccessTokenOnly{}, err
	}

	return model.AccessTokenOnly{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, strings.TrimSpace(refreshToken))
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.PublicUser, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	password := strings.TrimSpace(req.Password)
	role := strings.ToLower(strings.TrimSpace(req.Role))

	if username == "" || password == "" || email == "" {
		return model.PublicUser{}, apierror.BadRequest("username, email and password are required", "")
	}
	if len(password) < 8 {
		return model.PublicUser{}, apierror.BadRequest("password must be at least 8 characters", "")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.PublicUser{}, apierror.BadRequest("invalid email address", email)
	}
	if role == "" {
		role = model.RoleMember
	}
	if role != model.RoleAdmin && role != model.RoleManager && role != model.RoleMember {
		return model.PublicUser{}, apierror.BadRequest("invalid role", role)
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return model.PublicUser{}, err
	}
	if exists {
		return model.PublicUser{}, model.ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return model.PublicUser{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Firstname:    strings.TrimSpace(req.Firstname),
		Lastname:     strings.TrimSpace(req.Lastname),
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return model.PublicUser{}, err
	}

	return user.Public(), nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID string) (model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

// ValidateAccessToken checks signature, expiry, and token type. This is
// the only verification surface protected routes rely on; no store
// lookup happens here.
func (s *AuthService) ValidateAccessToken(tokenString string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.Unauthorized("invalid token signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apierror.Unauthorized("invalid token")
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.Unauthorized("invalid token claims")
	}

	typ, _ := claimsMap["typ"].(string)
	if typ != "access" {
		return nil, apierror.Unauthorized("invalid token type")
	}

	claims := &model.AuthClaims{Type: typ}
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.Username, _ = claimsMap["username"].(string)
	claims.Role, _ = claimsMap["role"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if claims.UserID == "" {
		return nil, apierror.Unauthorized("invalid token subject")
	}

	return claims, nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, user model.User) (model.TokenPair, error) {
	accessToken, err := s.issueAccessToken(user)
	if err != nil {
		return model.TokenPair{}, err
	}

	refreshToken, err := newRefreshTokenValue()
	if err != nil {
		return model.TokenPair{}, err
	}

	expiresAt := time.Now().UTC().Add(s.refreshTTL)
	if err := s.tokens.Store(ctx, refreshToken, user.ID, expiresAt); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		User:         user.Public(),
	}, nil
}

func (s *AuthService) issueAccessToken(user model.User) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"typ":      "access",
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(s.accessTTL).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}
