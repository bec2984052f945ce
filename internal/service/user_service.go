package service

import (
	"context"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/pkg/apierror"
)

type UserService struct {
	users    *repository.UserRepository
	tokens   *repository.TokenRepository
	activity ActivityRecorder
}

func NewUserService(users *repository.UserRepository, tokens *repository.TokenRepository, activity ActivityRecorder) *UserService {
	return &UserService{users: users, tokens: tokens, activity: activity}
}

func (s *UserService) Get(ctx context.Context, userID string) (model.PublicUser, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.PublicUser{}, err
	}
	return u.Public(), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (model.PublicUser, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.PublicUser{}, err
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if _, err := mail.ParseAddress(email); err != nil {
			return model.PublicUser{}, apierror.BadRequest("invalid email address", email)
		}
		u.Email = email
	}
	if req.Firstname != nil {
		u.Firstname = strings.TrimSpace(*req.Firstname)
	}
	if req.Lastname != nil {
		u.Lastname = strings.TrimSpace(*req.Lastname)
	}

	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return model.PublicUser{}, err
	}

	if req.Password != nil {
		if len(*req.Password) < 8 {
			return model.PublicUser{}, apierror.BadRequest("password must be at least 8 characters", "")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcryptCost)
		if err != nil {
			return model.PublicUser{}, err
		}
		if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
			return model.PublicUser{}, err
		}
		// A password change invalidates every open session.
		if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
			return model.PublicUser{}, err
		}
	}

	// Profile snapshots stay at the public projection so the log never
	// carries hashes or codes.
	s.activity.Log(ctx, "user.update_profile",
		model.ActivityActor{UserID: u.ID, Username: u.Username, Role: u.Role},
		"success", u.ID, nil, u.Public(), "")

	return u.Public(), nil
}

// SetTwoFactor enables or disables the login challenge for the account.
// Disabling also discards any outstanding code.
func (s *UserService) SetTwoFactor(ctx context.Context, userID string, enabled bool) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.SetTwoFactorEnabled(ctx, userID, enabled); err != nil {
		return err
	}
	s.activity.Log(ctx, "user.set_two_factor",
		model.ActivityActor{UserID: u.ID, Username: u.Username, Role: u.Role},
		"success", userID, nil, map[string]any{"enabled": enabled}, "")
	return nil
}

func (s *UserService) List(ctx context.Context) ([]model.PublicUser, error) {
	return s.users.List(ctx)
}

func (s *UserService) Delete(ctx context.Context, userID string, requester *model.AuthClaims) error {
	if requester.Role != model.RoleAdmin {
		return model.ErrForbidden
	}
	if userID == requester.UserID {
		return apierror.BadRequest("cannot delete your own account", "")
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return err
	}

	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.activity.Log(ctx, "user.delete", actorFromClaims(requester), "success", userID, nil, nil, "")
	return nil
}
