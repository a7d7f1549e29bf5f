package logger

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "empty", in: "", max: 10, want: ""},
		{name: "plain", in: "hello", max: 10, want: "hello"},
		{name: "strips newlines", in: "a\nb\rc", max: 10, want: "abc"},
		{name: "strips escape", in: "x\x1b[31my", max: 10, want: "x[31my"},
		{name: "truncates", in: "abcdef", max: 3, want: "abc..."},
		{name: "default max", in: "abc", max: 0, want: "abc"},
		{name: "invalid utf8", in: "ok\xffok", max: 10, want: "okok"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.in, tt.max); got != tt.want {
				t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestSanitizeHelpers(t *testing.T) {
	t.Parallel()

	if got := SanitizeError(nil); got != "" {
		t.Errorf("SanitizeError(nil) = %q", got)
	}
	if got := SanitizeError(errors.New("boom\n")); got != "boom" {
		t.Errorf("SanitizeError() = %q", got)
	}
	long := strings.Repeat("x", MaxLabelLength+5)
	if got := SanitizeLabel(long); len(got) != MaxLabelLength+3 {
		t.Errorf("SanitizeLabel() length = %d", len(got))
	}
	if got := SanitizePath("/api/v1/todos"); got != "/api/v1/todos" {
		t.Errorf("SanitizePath() = %q", got)
	}
}

func TestMaskEmail(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"alice@example.com": "a***@example.com",
		" Bob@Example.com ": "B***@Example.com",
		"no-at-sign":        "***",
		"":                  "",
		"@example.com":      "***",
	}
	for in, want := range tests {
		if got := MaskEmail(in); got != want {
			t.Errorf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	l, err := NewProductionLogger("server", true)
	if err != nil {
		t.Fatalf("NewProductionLogger() error = %v", err)
	}
	if !l.Core().Enabled(level(true)) {
		t.Error("debug level not enabled in debug mode")
	}
	if l.Core().Enabled(level(true)) && !l.Core().Enabled(level(false)) {
		t.Error("info level disabled")
	}
	if err := Sync(nil); err != nil {
		t.Errorf("Sync(nil) = %v", err)
	}
}
