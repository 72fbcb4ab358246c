package usecase

// Error codes surfaced to callers. Domain errors are business outcomes
// (the caller did something the workflow refuses); technical errors are
// infrastructure giving up.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeNotFound             = "LEAD_NOT_FOUND"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeRegenerateLimit      = "REGENERATE_LIMIT_EXCEEDED"
	CodeGenerationDown       = "GENERATION_UNAVAILABLE"
	CodeConcurrencyExhausted = "CONCURRENCY_EXHAUSTED"
)

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	_, ok := err.(*DomainError)
	return ok
}

// DomainCode extracts the code, or "" for non-domain errors.
func DomainCode(err error) string {
	if de, ok := err.(*DomainError); ok {
		return de.Code
	}
	return ""
}

type TechnicalError struct {
	Code    string
	Message string
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func IsTechnicalError(err error) bool {
	_, ok := err.(*TechnicalError)
	return ok
}
