package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/taskhaven/todo-api/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("priority", validatePriority); err != nil {
		panic(fmt.Sprintf("failed to register priority validator: %v", err))
	}
}

// validatePriority validates that a string is a valid Priority enum value
func validatePriority(fl validator.FieldLevel) bool {
	switch models.Priority(fl.Field().String()) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return true
	default:
		return false
	}
}

// ValidatePriority validates a Priority string value
func ValidatePriority(value string) error {
	switch models.Priority(value) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return nil
	default:
		return fmt.Errorf("invalid priority: %s (must be 'low', 'medium', or 'high')", value)
	}
}

// ValidateStatusFilter validates the status filter value for todo listing
func ValidateStatusFilter(value string) error {
	switch value {
	case "", "all", "active", "completed":
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'active', 'completed', or 'all')", value)
	}
}

// ValidateTags validates tag count and per-tag length bounds
func ValidateTags(tags []string) error {
	if len(tags) > models.MaxTags {
		return fmt.Errorf("maximum %d tags allowed", models.MaxTags)
	}
	for _, tag := range tags {
		if tag == "" {
			return fmt.Errorf("tags must not be empty")
		}
		if utf8.RuneCountInString(tag) > models.MaxTagLength {
			return fmt.Errorf("tag %q exceeds maximum length of %d characters", tag, models.MaxTagLength)
		}
	}
	return nil
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
