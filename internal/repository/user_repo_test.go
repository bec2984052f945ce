package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"taskhub/internal/model"
)

// A malformed id must read as an unknown user, not as an infrastructure
// failure, so credential flows keep their generic unauthorized answer.
func TestUserFindByIDMalformed(t *testing.T) {
	t.Parallel()

	repo := NewUserRepository(nil)

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, model.ErrUserNotFound)

	require.ErrorIs(t, repo.Delete(context.Background(), "'; --"), model.ErrUserNotFound)
}
