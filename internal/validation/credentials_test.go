package validation

import (
	"strings"
	"testing"
)

func TestValidateHandle(t *testing.T) {
	valid := []string{"alice", "a", "user_42", "dot.dash-ok", strings.Repeat("x", 24)}
	for _, h := range valid {
		if err := ValidateHandle(h); err != nil {
			t.Errorf("%q rejected: %v", h, err)
		}
	}

	invalid := []string{"", "has space", "emoji😀", "way@off", strings.Repeat("x", 25)}
	for _, h := range invalid {
		if err := ValidateHandle(h); err == nil {
			t.Errorf("%q accepted", h)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("hunter2pass"); err != nil {
		t.Errorf("rejected: %v", err)
	}
	if err := ValidatePassword("short"); err == nil {
		t.Error("7-char password accepted")
	}
	// bcrypt truncates past 72 bytes
	if err := ValidatePassword(strings.Repeat("x", 73)); err == nil {
		t.Error("73-char password accepted")
	}
}

func TestCheckRegistration(t *testing.T) {
	if err := CheckRegistration("alice", "Alice", "hunter2pass"); err != nil {
		t.Errorf("valid registration rejected: %v", err)
	}
	if err := CheckRegistration("alice", strings.Repeat("n", 49), "hunter2pass"); err == nil {
		t.Error("49-char display name accepted")
	}
}
