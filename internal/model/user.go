package model

import "time"

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
)

type User struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	Firstname           string     `json:"firstname"`
	Lastname            string     `json:"lastname"`
	PasswordHash        string     `json:"-"`
	Role                string     `json:"role"`
	IsActive            bool       `json:"is_active"`
	TwoFactorEnabled    bool       `json:"two_factor_enabled"`
	TwoFactorCode       *string    `json:"-"`
	TwoFactorExpiry     *time.Time `json:"-"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// PublicUser is the projection returned by auth and user endpoints.
// It never carries the password hash or two-factor fields.
type PublicUser struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Firstname        string    `json:"firstname"`
	Lastname         string    `json:"lastname"`
	Role             string    `json:"role"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		Firstname:        u.Firstname,
		Lastname:         u.Lastname,
		Role:             u.Role,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
	}
}

type AuthClaims struct {
	UserID   string `json:"sub"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Type     string `json:"typ"`
	TokenID  string `json:"jti"`
}

type TokenPair struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int64      `json:"expires_in"`
	User         PublicUser `json:"user"`
}

// TwoFactorPending is returned by login instead of tokens when the
// user has two-factor authentication enabled. The code itself travels
// out-of-band and is never part of any response.
type TwoFactorPending struct {
	RequireTwoFactor bool   `json:"require_two_factor"`
	UserID           string `json:"user_id"`
}

// LoginResult holds exactly one of Tokens or Pending.
type LoginResult struct {
	Tokens  *TokenPair
	Pending *TwoFactorPending
}

// AccessTokenOnly is the refresh response. The refresh token itself is
// left untouched and stays valid until its own expiry.
type AccessTokenOnly struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
