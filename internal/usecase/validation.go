package usecase

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Signal types RepoRadar emits today. Anything else is rejected at the door.
var knownSignalTypes = map[string]bool{
	"NEW_LANG_FILE":      true,
	"OPEN_PR":            true,
	"I18N_DEPENDENCY":    true,
	"LOCALE_DIRECTORY":   true,
	"TRANSLATION_CONFIG": true,
}

func ValidateIngestSignalInput(input IngestSignalInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.Company) == "" {
		errors = append(errors, ValidationError{"company", "is required"})
	}

	if strings.TrimSpace(input.Domain) == "" {
		errors = append(errors, ValidationError{"domain", "is required"})
	} else if !strings.Contains(input.Domain, ".") {
		errors = append(errors, ValidationError{"domain", "must be a valid domain"})
	}

	if strings.TrimSpace(input.SignalType) == "" {
		errors = append(errors, ValidationError{"signal_type", "is required"})
	} else if !knownSignalTypes[strings.ToUpper(input.SignalType)] {
		errors = append(errors, ValidationError{"signal_type", "is not a known signal type"})
	}

	if strings.TrimSpace(input.SignalSummary) == "" {
		errors = append(errors, ValidationError{"signal_summary", "is required"})
	}

	if strings.TrimSpace(input.Author) == "" {
		errors = append(errors, ValidationError{"author", "is required"})
	}

	if strings.TrimSpace(input.URL) == "" {
		errors = append(errors, ValidationError{"url", "is required"})
	} else if u, err := url.Parse(input.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, ValidationError{"url", "must be a valid URL"})
	}

	return errors
}
