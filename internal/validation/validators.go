package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/benvon/embody/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("history_date", validateHistoryDate); err != nil {
		panic(fmt.Sprintf("failed to register history_date validator: %v", err))
	}
	if err := Validate.RegisterValidation("tree_key", validateTreeKey); err != nil {
		panic(fmt.Sprintf("failed to register tree_key validator: %v", err))
	}
}

// validateHistoryDate accepts calendar dates in the history key layout
func validateHistoryDate(fl validator.FieldLevel) bool {
	return ValidateDate(fl.Field().String()) == nil
}

// validateTreeKey accepts strings usable as a single tree path segment
func validateTreeKey(fl validator.FieldLevel) bool {
	return ValidateKey(fl.Field().String()) == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateDate checks a YYYY-MM-DD history date
func ValidateDate(value string) error {
	if _, err := time.Parse(models.DateLayout, value); err != nil {
		return fmt.Errorf("invalid date: %s (must be YYYY-MM-DD)", value)
	}
	return nil
}

// ValidateKey checks that value can be used as one tree path segment
func ValidateKey(value string) error {
	if value == "" {
		return fmt.Errorf("invalid key: empty")
	}
	if strings.ContainsAny(value, "/.#$[]") {
		return fmt.Errorf("invalid key: %s (must not contain / . # $ [ ])", value)
	}
	return nil
}
