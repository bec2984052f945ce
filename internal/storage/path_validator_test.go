package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathValidatorResolveKey(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	validator, err := NewPathValidator(root)
	require.NoError(t, err)

	t.Run("key resolves inside root", func(t *testing.T) {
		resolved, resolveErr := validator.ResolveKey("task-1/abc_report.pdf")
		require.NoError(t, resolveErr)
		require.Equal(t, filepath.Join(validator.RootAbs(), "task-1", "abc_report.pdf"), resolved)
	})

	t.Run("backslashes are normalized", func(t *testing.T) {
		resolved, resolveErr := validator.ResolveKey(`task-1\photo.jpg`)
		require.NoError(t, resolveErr)
		require.Equal(t, filepath.Join(validator.RootAbs(), "task-1", "photo.jpg"), resolved)
	})

	t.Run("empty and root keys are rejected", func(t *testing.T) {
		_, resolveErr := validator.ResolveKey("  ")
		require.Error(t, resolveErr)

		_, resolveErr = validator.ResolveKey("/")
		require.Error(t, resolveErr)
	})

	t.Run("path traversal is rejected", func(t *testing.T) {
		_, resolveErr := validator.ResolveKey("task-1/../../etc/passwd")
		require.Error(t, resolveErr)
	})

	t.Run("control characters are rejected", func(t *testing.T) {
		_, resolveErr := validator.ResolveKey("task-1\nfile.txt")
		require.Error(t, resolveErr)
	})

	t.Run("null bytes are rejected", func(t *testing.T) {
		_, resolveErr := validator.ResolveKey("task-1\x00/file.txt")
		require.Error(t, resolveErr)
	})

	t.Run("within root check is case-sensitive", func(t *testing.T) {
		require.False(t, isWithinRoot(`/tmp/Root`, `/tmp/root/folder/file.txt`))
		require.True(t, isWithinRoot(`/tmp/root`, `/tmp/root/folder/file.txt`))
	})
}
