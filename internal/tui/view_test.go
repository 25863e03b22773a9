package tui

import (
	"testing"

	"github.com/Mez0/TempBox/internal/models"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{-1, 3, 0},
		{0, 3, 0},
		{2, 3, 2},
		{3, 3, 2},
		{10, 3, 2},
	}
	for _, tt := range tests {
		if got := clamp(tt.i, tt.n); got != tt.want {
			t.Errorf("clamp(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short, 10) = %q", got)
	}
	if got := truncate("a very long subject line", 10); len([]rune(got)) != 10 {
		t.Errorf("truncate produced %d runes: %q", len([]rune(got)), got)
	}
	// Wide runes must be cut by rune, not byte.
	if got := truncate("日本語のとても長い件名です", 6); len([]rune(got)) != 6 {
		t.Errorf("truncate produced %d runes: %q", len([]rune(got)), got)
	}
}

func TestConnectionGlyph(t *testing.T) {
	for state, want := range map[models.ConnectionState]string{
		models.ConnectionOpened:     "●",
		models.ConnectionConnecting: "◌",
		models.ConnectionErrored:    "✗",
		models.ConnectionClosed:     "○",
	} {
		if got := connectionGlyph(state); got != want {
			t.Errorf("connectionGlyph(%s) = %q, want %q", state, got, want)
		}
	}
}
