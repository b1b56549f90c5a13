package main

import (
	"strings"
	"testing"
)

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		value float64
		width int
		want  string
	}{
		{0, 4, "[░░░░]"},
		{0.5, 4, "[██░░]"},
		{1, 4, "[████]"},
		{1.5, 4, "[████]"},
		{-1, 4, "[░░░░]"},
	}

	for _, tt := range tests {
		if got := renderProgressBar(tt.value, tt.width); got != tt.want {
			t.Errorf("renderProgressBar(%v, %d) = %q; want %q", tt.value, tt.width, got, tt.want)
		}
	}
}

func TestFormatLevel(t *testing.T) {
	tests := []struct {
		xp   int
		want string
	}{
		{0, "Level 1 "},
		{1500, "Level 2 "},
		{-10, "Level 1 "},
	}

	for _, tt := range tests {
		got := formatLevel(tt.xp)
		if !strings.HasPrefix(got, tt.want) {
			t.Errorf("formatLevel(%d) = %q; want prefix %q", tt.xp, got, tt.want)
		}
	}

	if got := formatLevel(1500); !strings.Contains(got, "500/1000 XP (50%)") {
		t.Errorf("formatLevel(1500) = %q; want 500/1000 XP (50%%)", got)
	}
}

func TestCmdToken_Usage(t *testing.T) {
	if err := cmdToken(nil); err == nil {
		t.Error("expected usage error without a user id")
	}
	if err := cmdToken([]string{"not-a-uuid"}); err == nil {
		t.Error("expected error for malformed user id")
	}
}

func TestCmdLevel_Invalid(t *testing.T) {
	if err := cmdLevel([]string{"lots"}); err == nil {
		t.Error("expected error for non-numeric xp")
	}
}
