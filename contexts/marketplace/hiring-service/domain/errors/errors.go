package errors

import (
	"errors"
	"fmt"
)

// Taxonomy sentinels. Callers and transports classify with errors.Is against
// these; the specific errors below wrap exactly one of them.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
	ErrTransientFailure = errors.New("transient failure")
	ErrInvalidRequest   = errors.New("invalid request")
)

var (
	ErrPostingNotFound  = fmt.Errorf("posting %w", ErrNotFound)
	ErrProposalNotFound = fmt.Errorf("proposal %w", ErrNotFound)

	ErrNotPostingOwner      = fmt.Errorf("%w: caller is not the posting owner", ErrForbidden)
	ErrNotProposalSubmitter = fmt.Errorf("%w: caller is not the proposal submitter", ErrForbidden)

	ErrPostingAssigned      = fmt.Errorf("%w: posting is no longer open", ErrConflict)
	ErrProposalNotPending   = fmt.Errorf("%w: proposal is not pending", ErrConflict)
	ErrDuplicateProposal    = fmt.Errorf("%w: proposal already submitted for posting", ErrConflict)
	ErrConcurrentAssignment = fmt.Errorf("%w: posting was assigned by a concurrent hire", ErrConflict)

	ErrUnitLockTimeout = fmt.Errorf("%w: timed out waiting for posting unit", ErrTransientFailure)
	ErrUnitContention  = fmt.Errorf("%w: posting unit aborted by contention", ErrTransientFailure)

	ErrInvalidPosting  = fmt.Errorf("%w: posting requires title, description and positive budget", ErrInvalidRequest)
	ErrInvalidProposal = fmt.Errorf("%w: proposal requires posting, message and positive price", ErrInvalidRequest)
	ErrOwnPosting      = fmt.Errorf("%w: cannot submit a proposal on your own posting", ErrInvalidRequest)
	ErrMissingCaller   = fmt.Errorf("%w: caller identity is required", ErrInvalidRequest)
	ErrEmptyRevision   = fmt.Errorf("%w: revision needs a message or a positive price", ErrInvalidRequest)

	ErrUnitClosed               = errors.New("unit of work already committed or aborted")
	ErrUnitScope                = errors.New("record is outside the unit's posting aggregate")
	ErrRepositoryInvariantBroke = errors.New("repository invariant violated")
)
