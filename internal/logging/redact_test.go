package logging

import (
	"errors"
	"strings"
	"testing"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name  string
		input string
		leaks string
	}{
		{
			name:  "bearer token in error text",
			input: "request failed: Bearer eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9 rejected",
			leaks: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9",
		},
		{
			name:  "token assignment",
			input: `config token="abcdefghijklmnopqrstuvwx" invalid`,
			leaks: "abcdefghijklmnopqrstuvwx",
		},
		{
			name:  "password assignment",
			input: "password:supersecretpassword12345 was wrong",
			leaks: "supersecretpassword12345",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Redact(tt.input)
			if strings.Contains(got, tt.leaks) {
				t.Errorf("Redact(%q) = %q, still contains the secret", tt.input, got)
			}
			if !strings.Contains(got, RedactedValue) {
				t.Errorf("Redact(%q) = %q, no redaction marker", tt.input, got)
			}
		})
	}
}

func TestRedactLeavesPlainTextAlone(t *testing.T) {
	input := "connection refused: dial tcp 127.0.0.1:443"
	if got := Redact(input); got != input {
		t.Errorf("Redact(%q) = %q, want unchanged", input, got)
	}
}

func TestRedactErr(t *testing.T) {
	if got := RedactErr(nil); got != "" {
		t.Errorf("RedactErr(nil) = %q, want empty", got)
	}
	got := RedactErr(errors.New("auth=abcdefghijklmnopqrstuvwxyz"))
	if strings.Contains(got, "abcdefghijklmnopqrstuvwxyz") {
		t.Errorf("RedactErr leaked the secret: %q", got)
	}
}

func TestIsSensitiveField(t *testing.T) {
	for field, want := range map[string]bool{
		"password":      true,
		"Token":         true,
		"bearer_token":  true,
		"authorization": true,
		"address":       false,
		"subject":       false,
	} {
		if got := IsSensitiveField(field); got != want {
			t.Errorf("IsSensitiveField(%q) = %v, want %v", field, got, want)
		}
	}
}
