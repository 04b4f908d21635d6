package services

import (
	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"
)

// EvaluateHireEligibility runs the ordered hire checks that do not depend on
// lookups: proposal/posting linkage, ownership, then open status.
// The same policy is re-applied inside the unit of work before commit.
func EvaluateHireEligibility(
	posting entities.Posting,
	proposal entities.Proposal,
	callerID string,
) error {
	if proposal.PostingID != posting.PostingID {
		return domainerrors.ErrPostingNotFound
	}
	if !posting.IsOwnedBy(callerID) {
		return domainerrors.ErrNotPostingOwner
	}
	if !posting.IsOpen() {
		return domainerrors.ErrPostingAssigned
	}
	return nil
}

// EvaluateProposalEligibility guards proposal submission against closed
// postings, self-bidding and duplicate bids.
func EvaluateProposalEligibility(
	posting entities.Posting,
	existing []entities.Proposal,
	submitterID string,
) error {
	if !posting.IsOpen() {
		return domainerrors.ErrPostingAssigned
	}
	if posting.IsOwnedBy(submitterID) {
		return domainerrors.ErrOwnPosting
	}
	for _, proposal := range existing {
		if proposal.SubmitterID == submitterID {
			return domainerrors.ErrDuplicateProposal
		}
	}
	return nil
}
