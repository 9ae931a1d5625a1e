package version

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if BuildTime == "" {
		t.Error("BuildTime should be initialized")
	}
	if GitCommit == "" {
		t.Error("GitCommit should be initialized")
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "mapexporter ") {
		t.Errorf("String() = %q, want mapexporter prefix", s)
	}
	if !strings.Contains(s, Version) {
		t.Errorf("String() = %q, want version %q", s, Version)
	}
}
