package models

import "errors"

// Invariant violations surfaced by model-level validation.
var (
	ErrInvalidRole          = errors.New("unknown role")
	ErrInvalidApprovalState = errors.New("unknown approval state")
	ErrNonStudentGroup      = errors.New("only students may belong to a group")
	ErrNonStudentApproval   = errors.New("non-student accounts are always approved")
	ErrMarkOutOfRange       = errors.New("mark must be between 0 and 20")
)
