package ledger

import "errors"

// Error kinds returned by ledger operations. Callers match with errors.Is;
// operations wrap these with context via fmt.Errorf("%w: ...").
var (
	// ErrValidation indicates a missing or malformed required field (empty
	// group name, non-member new owner, bad expense splits, ...).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates a group, invite code, expense, or user that
	// does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the caller lacks the required role (non-member
	// or non-owner).
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyMember indicates a duplicate join or add-member attempt.
	ErrAlreadyMember = errors.New("already a member")

	// ErrNotAMember indicates the caller is not a member of the group they
	// tried to leave.
	ErrNotAMember = errors.New("not a member")

	// ErrInvalidOperation indicates an operation the current state forbids,
	// such as the owner leaving while other members remain.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrConflict indicates a concurrent write was detected; the caller
	// should re-read and retry.
	ErrConflict = errors.New("concurrent modification")

	// ErrCodeSpaceExhausted indicates the invite-code retry budget was
	// spent without finding an unused code.
	ErrCodeSpaceExhausted = errors.New("invite code space exhausted")
)
