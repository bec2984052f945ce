package util

import (
	"regexp"
	"strings"
	"unicode"

	"taskhub/pkg/apierror"
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

var windowsReservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
	"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
	"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// SanitizeFilename cleans an uploaded document name so it is safe to
// store and echo back. Control and invisible characters are stripped,
// reserved and traversal names rejected.
func SanitizeFilename(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apierror.BadRequest("filename cannot be empty", "")
	}

	if strings.Contains(trimmed, "\x00") {
		return "", apierror.BadRequest("filename contains null bytes", trimmed)
	}

	builder := strings.Builder{}
	builder.Grow(len(trimmed))
	for _, char := range trimmed {
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		builder.WriteRune(char)
	}

	cleaned := strings.TrimSpace(invalidFilenameChars.ReplaceAllString(builder.String(), "_"))
	if cleaned == "" {
		return "", apierror.BadRequest("filename is invalid after sanitization", trimmed)
	}

	// Truncate by runes (not bytes) to avoid splitting multi-byte characters.
	runes := []rune(cleaned)
	if len(runes) > 255 {
		runes = runes[:255]
	}
	cleaned = string(runes)

	if cleaned == "." || cleaned == ".." {
		return "", apierror.BadRequest("filename cannot be current or parent directory", cleaned)
	}

	stem := cleaned
	if idx := strings.Index(cleaned, "."); idx >= 0 {
		stem = cleaned[:idx]
	}
	if _, exists := windowsReservedNames[strings.ToUpper(stem)]; exists {
		return "", apierror.BadRequest("reserved filename is not allowed", cleaned)
	}

	return cleaned, nil
}

// isInvisibleUnicode returns true for zero-width and other invisible
// Unicode characters that should be stripped from filenames.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u200e', '\u200f',
		'\u2060', '\u2061', '\u2062', '\u2063', '\u2064',
		'\ufeff', '\ufff9', '\ufffa', '\ufffb':
		return true
	}
	return false
}
