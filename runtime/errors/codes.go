package errors

// Error code constants. Codes are stable and appear in CLI and JSON output.

const (
	// Declaration errors
	ErrDuplicateDeclaration = "TX001"
	ErrInvalidDeclaration   = "TX006"

	// Composition errors
	ErrNamespaceCollision   = "TX002"
	ErrUnresolvedEntrypoint = "TX003"

	// Injection errors
	ErrConfigMismatch = "TX004"

	// Validation errors
	ErrValidation = "TX005"
)

// Phase returns the phase that raises errors with the given code.
func Phase(code string) string {
	switch code {
	case ErrDuplicateDeclaration, ErrInvalidDeclaration:
		return "declaration"
	case ErrNamespaceCollision, ErrUnresolvedEntrypoint:
		return "composition"
	case ErrConfigMismatch:
		return "injection"
	case ErrValidation:
		return "validation"
	default:
		return "unknown"
	}
}
