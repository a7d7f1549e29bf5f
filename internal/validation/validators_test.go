package validation

import "testing"

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim", "  Run  ", "Run"},
		{"control chars", "Ru\x00n\x07", "Run"},
		{"keeps newline", "a\nb", "a\nb"},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHistoryDateTag(t *testing.T) {
	t.Parallel()

	type req struct {
		Date string `validate:"required,history_date"`
	}

	tests := []struct {
		date  string
		valid bool
	}{
		{"2024-03-01", true},
		{"2024-02-30", false},
		{"03/01/2024", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			t.Parallel()
			err := Validate.Struct(req{Date: tt.date})
			if tt.valid && err != nil {
				t.Errorf("expected %q to be valid, got %v", tt.date, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("expected %q to be invalid", tt.date)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "a/b", "a.b", "#", "$x", "[0]"} {
		if err := ValidateKey(key); err == nil {
			t.Errorf("ValidateKey(%q) expected error", key)
		}
	}
	if err := ValidateKey("0190a5e0-7c1d-7b7e-8f00-1234567890ab"); err != nil {
		t.Errorf("ValidateKey(uuid) unexpected error: %v", err)
	}
}
