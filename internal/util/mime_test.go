package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsImageMIME(t *testing.T) {
	t.Parallel()

	require.True(t, IsImageMIME("image/png"))
	require.True(t, IsImageMIME(" IMAGE/JPEG "))
	require.False(t, IsImageMIME("application/pdf"))
	require.False(t, IsImageMIME(""))
}

func TestIsThumbnailMIME(t *testing.T) {
	t.Parallel()

	require.True(t, IsThumbnailMIME("image/jpeg"))
	require.True(t, IsThumbnailMIME("image/png"))
	require.True(t, IsThumbnailMIME(" IMAGE/WEBP "))
	require.False(t, IsThumbnailMIME("image/svg+xml"))
	require.False(t, IsThumbnailMIME("text/plain"))
}

func TestDetectMIME(t *testing.T) {
	t.Parallel()

	require.Equal(t, "image/png", DetectMIME([]byte("\x89PNG\r\n\x1a\n")))
	require.Equal(t, "application/pdf", DetectMIME([]byte("%PDF-1.7")))
}
