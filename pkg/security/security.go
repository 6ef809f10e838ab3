package security

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jdziat/simple-recurring-triggers/pkg/core"
)

// Security limits and configuration
const (
	// MaxTriggerNameLength is the maximum length for trigger names
	MaxTriggerNameLength = 255

	// MaxPayloadSize is the maximum size in bytes for trigger payloads (1MB)
	MaxPayloadSize = 1 << 20

	// MaxConcurrency is the hard limit for dispatch concurrency
	MaxConcurrency = 1000

	// MaxErrorMessageLength is the maximum length for stored error messages
	MaxErrorMessageLength = 4096
)

// validTriggerName matches alphanumeric, hyphens, underscores, and dots
var validTriggerName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-\.]*$`)

// ValidateTriggerName validates a trigger name
func ValidateTriggerName(name string) error {
	if name == "" {
		return core.ErrInvalidTriggerName
	}
	if len(name) > MaxTriggerNameLength {
		return core.ErrTriggerNameTooLong
	}
	if !validTriggerName.MatchString(name) {
		return core.ErrInvalidTriggerName
	}
	return nil
}

// SanitizeErrorMessage truncates and sanitizes error messages for storage
func SanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}

	// Remove any null bytes or control characters (except newlines)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	// Truncate if too long
	if utf8.RuneCountInString(result) > MaxErrorMessageLength {
		runes := []rune(result)
		result = string(runes[:MaxErrorMessageLength-3]) + "..."
	}

	return result
}

// ClampConcurrency ensures concurrency is within limits
func ClampConcurrency(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}
