package entities

import (
	"strings"
	"time"

	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"
)

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusHired    ProposalStatus = "hired"
	ProposalStatusRejected ProposalStatus = "rejected"
)

type Proposal struct {
	ProposalID  string
	PostingID   string
	SubmitterID string
	Message     string
	Price       float64
	Status      ProposalStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewProposal(
	proposalID string,
	postingID string,
	submitterID string,
	message string,
	price float64,
	createdAt time.Time,
) (Proposal, error) {
	if strings.TrimSpace(proposalID) == "" ||
		strings.TrimSpace(postingID) == "" ||
		strings.TrimSpace(submitterID) == "" ||
		strings.TrimSpace(message) == "" {
		return Proposal{}, domainerrors.ErrInvalidProposal
	}
	if price <= 0 {
		return Proposal{}, domainerrors.ErrInvalidProposal
	}
	return Proposal{
		ProposalID:  proposalID,
		PostingID:   postingID,
		SubmitterID: submitterID,
		Message:     message,
		Price:       price,
		Status:      ProposalStatusPending,
		CreatedAt:   createdAt.UTC(),
		UpdatedAt:   createdAt.UTC(),
	}, nil
}

func (p Proposal) IsPending() bool {
	return p.Status == ProposalStatusPending
}

// Hire moves a pending proposal to its terminal hired state.
func (p Proposal) Hire(at time.Time) (Proposal, error) {
	if !p.IsPending() {
		return p, domainerrors.ErrProposalNotPending
	}
	p.Status = ProposalStatusHired
	p.UpdatedAt = at.UTC()
	return p, nil
}

func (p Proposal) IsSubmittedBy(userID string) bool {
	return userID != "" && p.SubmitterID == userID
}

// Revise replaces the message and/or price of a pending proposal. An empty
// message or a zero price keeps the current value.
func (p Proposal) Revise(message string, price float64, at time.Time) (Proposal, error) {
	if !p.IsPending() {
		return p, domainerrors.ErrProposalNotPending
	}
	message = strings.TrimSpace(message)
	if price < 0 {
		return p, domainerrors.ErrInvalidProposal
	}
	if message == "" && price == 0 {
		return p, domainerrors.ErrEmptyRevision
	}
	if message != "" {
		p.Message = message
	}
	if price > 0 {
		p.Price = price
	}
	p.UpdatedAt = at.UTC()
	return p, nil
}

// CheckWithdrawable allows withdrawal only while the proposal is pending.
func (p Proposal) CheckWithdrawable() error {
	if !p.IsPending() {
		return domainerrors.ErrProposalNotPending
	}
	return nil
}
