package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/model"
)

func TestSortColumn(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "title", sortColumn("title"))
	assert.Equal(t, "due_end", sortColumn("Due_End"))
	assert.Equal(t, "updated_at", sortColumn(" updated_at "))

	// Anything off the whitelist falls back to created_at.
	assert.Equal(t, "created_at", sortColumn(""))
	assert.Equal(t, "created_at", sortColumn("id; DROP TABLE tasks"))
	assert.Equal(t, "created_at", sortColumn("password_hash"))
}

func TestSortDirection(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ASC", sortDirection("asc"))
	assert.Equal(t, "ASC", sortDirection("ASC"))
	assert.Equal(t, "ASC", sortDirection(" asc "))

	assert.Equal(t, "DESC", sortDirection(""))
	assert.Equal(t, "DESC", sortDirection("desc"))
	assert.Equal(t, "DESC", sortDirection("sideways"))
}

func TestIsUUID(t *testing.T) {
	t.Parallel()

	assert.True(t, isUUID("b2f7c1d0-4a9e-4f6b-8c3d-1e5a7b9d2f40"))

	assert.False(t, isUUID(""))
	assert.False(t, isUUID("42"))
	assert.False(t, isUUID("not-a-uuid"))
	assert.False(t, isUUID("'; DROP TABLE users; --"))
}

func TestTaskListMalformedFilterIDs(t *testing.T) {
	t.Parallel()

	// A nil pool proves the malformed filters short-circuit before any
	// query is attempted.
	repo := NewTaskRepository(nil)

	for _, filter := range []model.TaskFilter{
		{ProjectID: "not-a-uuid"},
		{AssignedTo: "42"},
		{ParentTaskID: "'; --"},
	} {
		tasks, total, err := repo.List(context.Background(),
			"b2f7c1d0-4a9e-4f6b-8c3d-1e5a7b9d2f40", filter)
		require.NoError(t, err)
		assert.Empty(t, tasks)
		assert.Zero(t, total)
	}
}

func TestTaskFindByIDMalformed(t *testing.T) {
	t.Parallel()

	repo := NewTaskRepository(nil)

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, model.ErrTaskNotFound)

	require.ErrorIs(t, repo.SoftDelete(context.Background(), "not-a-uuid"), model.ErrTaskNotFound)
}
