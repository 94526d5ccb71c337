package manager

import "fmt"

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ model string }

func (e tooBusyError) Error() string { return "too busy: " + e.model }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

type modelNotFoundError struct{ name string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.name }

// ErrModelNotFound returns an error for a model name absent from the registry.
func ErrModelNotFound(name string) error { return modelNotFoundError{name: name} }

// IsModelNotFound reports whether the error indicates a missing model name.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// dependencyUnavailableError signals a missing runtime capability (e.g. a
// gguf adapter in a build without llama support) so the HTTP layer can
// return 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	_, ok := err.(dependencyUnavailableError)
	return ok
}

// promptTooLongError maps to 413 at the HTTP layer.
type promptTooLongError struct{ length, limit int }

func (e promptTooLongError) Error() string {
	return fmt.Sprintf("prompt length %d exceeds limit %d", e.length, e.limit)
}

// IsPromptTooLong reports whether err indicates an oversized prompt.
func IsPromptTooLong(err error) bool {
	_, ok := err.(promptTooLongError)
	return ok
}
