package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrAccountInactive    = errors.New("account is inactive")

	// Two-factor challenge errors. All of these surface to the caller
	// as a generic unauthorized response; the distinction is for logs.
	ErrChallengeNotFound  = errors.New("no two-factor challenge pending")
	ErrChallengeExpired   = errors.New("two-factor code expired")
	ErrTwoFactorMismatch  = errors.New("two-factor code mismatch")

	// Refresh token errors
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenExpired  = errors.New("refresh token expired")
	ErrTokenRevoked  = errors.New("refresh token revoked")

	// Project/task related errors
	ErrProjectNotFound  = errors.New("project not found")
	ErrNotProjectMember = errors.New("not a member of this project")
	ErrTaskNotFound     = errors.New("task not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrDocumentNotFound = errors.New("document not found")

	// Notification related errors
	ErrNotificationNotFound = errors.New("notification not found")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
