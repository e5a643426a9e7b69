package workspaces

import "errors"

// Typed lifecycle errors. API handlers map these to distinct HTTP statuses so
// clients can tell "missing", "duplicate", "forbidden" and "wrong state" apart.
var (
	// ErrNotFound means the workspace or event id does not resolve to a record.
	ErrNotFound = errors.New("workspace not found")
	// ErrAlreadyExists means the event already has a workspace.
	ErrAlreadyExists = errors.New("workspace already exists for this event")
	// ErrNotAuthorized means the caller has a membership (or is a known user)
	// but lacks the required capability or ownership.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInvalidTransition means the requested status change is not in the
	// allowed transition table for the current status.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	// ErrAccessDenied means the caller has no active membership in the
	// workspace at all.
	ErrAccessDenied = errors.New("access denied")
)
