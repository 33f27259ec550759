package domain

import "errors"

// Sentinel errors surfaced by the tour engine. HTTP and GraphQL layers map
// these onto response codes; everything else wraps with fmt.Errorf("%w").
var (
	// ErrTourNotFound means no session exists for the given id.
	ErrTourNotFound = errors.New("tour not found")

	// ErrInvalidTransition means the requested status change is not in the
	// lifecycle table. Session state is left untouched.
	ErrInvalidTransition = errors.New("invalid tour status transition")

	// ErrInfeasibleInsertion means no position in the remaining route accepts
	// the candidate.
	ErrInfeasibleInsertion = errors.New("no feasible insertion point")

	// ErrNoPendingChoices means a confirm arrived without a preceding
	// browse-mode replan, or the pending list was invalidated by a later
	// route mutation.
	ErrNoPendingChoices = errors.New("no pending detour choices")
)
