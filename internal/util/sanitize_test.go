package util

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	t.Run("sanitizes invalid characters", func(t *testing.T) {
		actual, err := SanitizeFilename(` report<2026>?.pdf `)
		require.NoError(t, err)
		require.Equal(t, "report_2026__.pdf", actual)
	})

	t.Run("rejects empty filenames", func(t *testing.T) {
		_, err := SanitizeFilename("   ")
		require.Error(t, err)
	})

	t.Run("rejects null bytes", func(t *testing.T) {
		_, err := SanitizeFilename("file\x00name.txt")
		require.Error(t, err)
	})

	t.Run("rejects windows reserved names", func(t *testing.T) {
		_, err := SanitizeFilename("CON.txt")
		require.Error(t, err)
	})

	t.Run("rejects dot and dot-dot", func(t *testing.T) {
		_, err := SanitizeFilename(".")
		require.Error(t, err)
		_, err = SanitizeFilename("..")
		require.Error(t, err)
	})

	t.Run("replaces path separators", func(t *testing.T) {
		actual, err := SanitizeFilename(`..\..\evil.sh`)
		require.NoError(t, err)
		require.NotContains(t, actual, `\`)
		require.NotContains(t, actual, "/")
	})

	t.Run("truncates long filenames", func(t *testing.T) {
		tooLong := make([]byte, 300)
		for i := 0; i < len(tooLong); i++ {
			tooLong[i] = 'a'
		}

		actual, err := SanitizeFilename(string(tooLong))
		require.NoError(t, err)
		require.Len(t, []rune(actual), 255)
	})

	t.Run("strips zero-width characters", func(t *testing.T) {
		input := "sprint​ planning​ notes.png"
		actual, err := SanitizeFilename(input)
		require.NoError(t, err)
		require.Equal(t, "sprint planning notes.png", actual)
	})

	t.Run("rejects filenames that become empty after stripping invisible chars", func(t *testing.T) {
		_, err := SanitizeFilename("​‌‍")
		require.Error(t, err)
	})

	t.Run("rune-safe truncation preserves multi-byte characters", func(t *testing.T) {
		runes := make([]rune, 260)
		for i := range runes {
			runes[i] = 'é'
		}

		actual, err := SanitizeFilename(string(runes) + ".txt")
		require.NoError(t, err)
		require.LessOrEqual(t, len([]rune(actual)), 255)
		require.True(t, utf8.ValidString(actual), "result should be valid UTF-8")
	})
}
