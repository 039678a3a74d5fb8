package utils

import (
	"strings"
	"testing"

	"github.com/anon-safe/safe-launcher/internal/shared/id"
)

func TestValidateLaunchPath(t *testing.T) {
	valid := []string{"/apps/editor", "/usr/local/bin/viewer"}
	for _, p := range valid {
		if err := ValidateLaunchPath(p); err != nil {
			t.Errorf("Expected %q to be valid: %v", p, err)
		}
	}

	invalid := []string{"", "relative/editor", "/apps/\x00editor", "/" + strings.Repeat("a", MaxPathLength+1)}
	for _, p := range invalid {
		if err := ValidateLaunchPath(p); err == nil {
			t.Errorf("Expected %q to be invalid", p)
		}
	}
}

func TestValidateAppID(t *testing.T) {
	appID, err := id.NewAppID()
	if err != nil {
		t.Fatalf("NewAppID failed: %v", err)
	}

	got, err := ValidateAppID(appID.String())
	if err != nil {
		t.Fatalf("Expected valid id: %v", err)
	}
	if got != appID {
		t.Errorf("Expected %s, got %s", appID, got)
	}

	if _, err := ValidateAppID(""); err == nil {
		t.Error("Expected error for empty id")
	}
	if _, err := ValidateAppID("app_nope"); err == nil {
		t.Error("Expected error for malformed id")
	}
}
