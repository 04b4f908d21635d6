package services

import (
	"testing"

	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateHireEligibilityOrder(t *testing.T) {
	open := entities.Posting{PostingID: "posting-1", OwnerID: "owner-1", Status: entities.PostingStatusOpen}
	assigned := open
	assigned.Status = entities.PostingStatusAssigned
	proposal := entities.Proposal{ProposalID: "proposal-1", PostingID: "posting-1", Status: entities.ProposalStatusPending}
	foreign := entities.Proposal{ProposalID: "proposal-2", PostingID: "posting-9", Status: entities.ProposalStatusPending}

	assert.NoError(t, EvaluateHireEligibility(open, proposal, "owner-1"))
	assert.ErrorIs(t, EvaluateHireEligibility(open, foreign, "owner-1"), domainerrors.ErrPostingNotFound)
	// ownership is checked before status, so a stranger sees Forbidden even on an assigned posting.
	assert.ErrorIs(t, EvaluateHireEligibility(assigned, proposal, "stranger"), domainerrors.ErrForbidden)
	assert.ErrorIs(t, EvaluateHireEligibility(assigned, proposal, "owner-1"), domainerrors.ErrConflict)
	assert.ErrorIs(t, EvaluateHireEligibility(open, proposal, ""), domainerrors.ErrForbidden)
}

func TestEvaluateProposalEligibility(t *testing.T) {
	open := entities.Posting{PostingID: "posting-1", OwnerID: "owner-1", Status: entities.PostingStatusOpen}
	existing := []entities.Proposal{{ProposalID: "p-1", PostingID: "posting-1", SubmitterID: "bidder-a"}}

	assert.NoError(t, EvaluateProposalEligibility(open, existing, "bidder-b"))
	assert.ErrorIs(t, EvaluateProposalEligibility(open, existing, "bidder-a"), domainerrors.ErrDuplicateProposal)
	assert.ErrorIs(t, EvaluateProposalEligibility(open, existing, "owner-1"), domainerrors.ErrOwnPosting)

	closed := open
	closed.Status = entities.PostingStatusAssigned
	assert.ErrorIs(t, EvaluateProposalEligibility(closed, nil, "bidder-b"), domainerrors.ErrPostingAssigned)
}
