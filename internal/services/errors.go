package services

import "errors"

// Validation errors: surfaced to the caller, never swallowed.
var (
	ErrVotePayload      = errors.New("vote payload not valid for this vote pattern")
	ErrVoteOutOfRange   = errors.New("vote payload outside the allowed range")
	ErrNotAuthorized    = errors.New("only the author may change this comment")
	ErrWrongCommentSet  = errors.New("comment belongs to a different comment set")
	ErrPermissionDenied = errors.New("permission denied")
)

// Consistency errors: a programming or data-corruption defect, callers
// should abort rather than recover.
var (
	ErrInvalidPattern = errors.New("invalid vote pattern")
	ErrUnknownAction  = errors.New("unknown action")
)
