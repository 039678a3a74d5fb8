package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/anon-safe/safe-launcher/internal/shared/id"
)

// String length limits
const (
	MaxPathLength = 4096
	MaxIDLength   = 128
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	// Null bytes would truncate the path handed to exec
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateLaunchPath validates the absolute path of an application binary
func ValidateLaunchPath(path string) error {
	if err := ValidateString(path, "absolute_path", 1, MaxPathLength, true); err != nil {
		return err
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("absolute_path must be absolute, got %q", path)
	}
	return nil
}

// ValidateAppID validates an application id field
func ValidateAppID(value string) (id.AppID, error) {
	if err := ValidateString(value, "app_id", 1, MaxIDLength, true); err != nil {
		return "", err
	}
	return id.Parse(value)
}
