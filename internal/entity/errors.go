package entity

import "errors"

var (
	// ErrDuplicateLead means a lead with the same identity already exists.
	ErrDuplicateLead = errors.New("lead already exists for this identity")

	// ErrLeadNotFound means no lead row matches the identity.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrVersionConflict means a concurrent writer won the version race.
	// Callers must re-read the lead and decide again.
	ErrVersionConflict = errors.New("lead version conflict")
)
