package pipeline

import "fmt"

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrNotFound is returned when a referenced stage, application or user
// does not exist.
var ErrNotFound = fmt.Errorf("not found")

// ErrConflict is returned when an operation is rejected by a cross-entity
// constraint, e.g. deleting a stage that live applications still reference.
var ErrConflict = fmt.Errorf("conflict")

// ErrForbidden is returned when the acting user's role does not permit the
// operation.
var ErrForbidden = fmt.Errorf("forbidden")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
