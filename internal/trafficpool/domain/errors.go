package domain

import "errors"

// Mutation error taxonomy. Read paths never return these; they degrade to
// defaults instead. The service layer wraps them into transport-facing
// typed errors.
var (
	// ErrNotFound indicates an unknown lead or pool id in a mutation.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTarget indicates an operation against a protected pool,
	// such as adding leads to the computed Uncategorized pool.
	ErrInvalidTarget = errors.New("invalid target pool")
	// ErrForbidden indicates deletion of a non-deletable system pool.
	ErrForbidden = errors.New("operation forbidden")
)
