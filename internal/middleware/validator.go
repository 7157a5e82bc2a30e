package middleware

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	userIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_.@|:-]{1,128}$`)
	voiceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{1,64}$`)
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateUserID accepts auth-provider style ids (e.g. "auth0|abc123", emails).
func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if !userIDPattern.MatchString(id) {
		return fmt.Errorf("invalid user ID format")
	}
	return nil
}

// ValidateVoiceID checks an ElevenLabs voice id. Empty means "use the default".
func ValidateVoiceID(id string) error {
	if id == "" {
		return nil
	}
	if !voiceIDPattern.MatchString(id) {
		return fmt.Errorf("invalid voice ID format")
	}
	return nil
}

// ValidateLimit clamps a pagination limit to 1..100, defaulting to 20.
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// ParseLimit reads a limit query value; garbage falls back to the default.
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultLimit
	}
	return ValidateLimit(n)
}
