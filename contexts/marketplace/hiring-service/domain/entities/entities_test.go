package entities

import (
	"testing"
	"time"

	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostingAssignIsOneWay(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	posting, err := NewPosting("posting-1", "owner-1", "Logo", "Vector", 100, at)
	require.NoError(t, err)

	assigned, err := posting.Assign(at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, PostingStatusAssigned, assigned.Status)
	assert.True(t, posting.IsOpen(), "Assign returns a copy")

	_, err = assigned.Assign(at.Add(2 * time.Minute))
	assert.ErrorIs(t, err, domainerrors.ErrPostingAssigned)
}

func TestProposalHireRequiresPending(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	proposal, err := NewProposal("proposal-1", "posting-1", "bidder-1", "hello", 50, at)
	require.NoError(t, err)

	hired, err := proposal.Hire(at)
	require.NoError(t, err)
	assert.Equal(t, ProposalStatusHired, hired.Status)

	rejected := proposal
	rejected.Status = ProposalStatusRejected
	_, err = rejected.Hire(at)
	assert.ErrorIs(t, err, domainerrors.ErrProposalNotPending)

	_, err = NewProposal("proposal-2", "posting-1", "bidder-1", "hello", 0, at)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidProposal)
}

func TestProposalReviseKeepsOmittedTerms(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	proposal, err := NewProposal("proposal-1", "posting-1", "bidder-1", "hello", 50, at)
	require.NoError(t, err)

	priced, err := proposal.Revise("", 75, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "hello", priced.Message)
	assert.Equal(t, 75.0, priced.Price)
	assert.Equal(t, at.Add(time.Hour), priced.UpdatedAt)

	worded, err := proposal.Revise("  sharper pitch ", 0, at)
	require.NoError(t, err)
	assert.Equal(t, "sharper pitch", worded.Message)
	assert.Equal(t, 50.0, worded.Price)

	_, err = proposal.Revise(" ", 0, at)
	assert.ErrorIs(t, err, domainerrors.ErrEmptyRevision)
	_, err = proposal.Revise("x", -1, at)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidProposal)

	hired, err := proposal.Hire(at)
	require.NoError(t, err)
	_, err = hired.Revise("late", 0, at)
	assert.ErrorIs(t, err, domainerrors.ErrProposalNotPending)
}

func TestProposalWithdrawableOnlyWhilePending(t *testing.T) {
	proposal := Proposal{ProposalID: "proposal-1", SubmitterID: "bidder-1", Status: ProposalStatusPending}
	assert.NoError(t, proposal.CheckWithdrawable())
	assert.True(t, proposal.IsSubmittedBy("bidder-1"))
	assert.False(t, proposal.IsSubmittedBy("bidder-2"))
	assert.False(t, proposal.IsSubmittedBy(""))

	for _, status := range []ProposalStatus{ProposalStatusHired, ProposalStatusRejected} {
		proposal.Status = status
		assert.ErrorIs(t, proposal.CheckWithdrawable(), domainerrors.ErrProposalNotPending, string(status))
	}
}
