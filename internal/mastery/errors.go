package mastery

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when fewer than two usable interactions
// remain after dropping incomplete records. A single interaction cannot
// form a next-step prediction pair.
var ErrInsufficientData = errors.New("at least 2 interactions are required")

// ValidationError reports a malformed interaction record.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid interaction %d: field %q: %s", e.Index, e.Field, e.Reason)
}

// FeatureComputationError reports a non-finite value produced during
// feature derivation. Every scaling division is epsilon-guarded, so this
// should be unreachable; it exists so a degenerate input fails loudly
// instead of feeding NaN to the model.
type FeatureComputationError struct {
	Feature string
	Row     int
}

func (e *FeatureComputationError) Error() string {
	return fmt.Sprintf("feature %q is not finite at row %d", e.Feature, e.Row)
}

// InferenceError wraps a failure from the external scoring model. The
// pipeline never retries; the error surfaces to the caller unchanged.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("model inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
