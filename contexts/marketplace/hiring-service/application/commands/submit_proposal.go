package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "gigflow/contexts/marketplace/hiring-service/application"
	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"
	"gigflow/contexts/marketplace/hiring-service/domain/services"
	"gigflow/contexts/marketplace/hiring-service/ports"
)

type SubmitProposalCommand struct {
	SubmitterID string
	PostingID   string
	Message     string
	Price       float64
}

type SubmitProposalUseCase struct {
	Postings    ports.PostingReader
	Proposals   ports.PostingWriter
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute validates the payload, then checks the posting is open, is not the
// submitter's own and has no earlier proposal from the same submitter. The
// store re-enforces the duplicate rule on insert.
func (u SubmitProposalUseCase) Execute(ctx context.Context, cmd SubmitProposalCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.SubmitterID) == "" {
		return entities.Proposal{}, domainerrors.ErrMissingCaller
	}
	if strings.TrimSpace(cmd.PostingID) == "" || strings.TrimSpace(cmd.Message) == "" || cmd.Price <= 0 {
		return entities.Proposal{}, domainerrors.ErrInvalidProposal
	}

	posting, err := u.Postings.GetPosting(ctx, cmd.PostingID)
	if err != nil {
		return entities.Proposal{}, err
	}
	existing, err := u.Postings.ListProposalsByPosting(ctx, cmd.PostingID)
	if err != nil {
		return entities.Proposal{}, err
	}
	if err := services.EvaluateProposalEligibility(posting, existing, cmd.SubmitterID); err != nil {
		logger.Warn("submit proposal rejected",
			"event", "submit_proposal_rejected",
			"module", hiringModuleName,
			"layer", "application",
			"posting_id", cmd.PostingID,
			"submitter_id", cmd.SubmitterID,
			"error", err.Error(),
		)
		return entities.Proposal{}, err
	}

	proposalID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.Proposal{}, err
	}
	now := time.Now().UTC()
	if u.Clock != nil {
		now = u.Clock.Now().UTC()
	}
	proposal, err := entities.NewProposal(proposalID, cmd.PostingID, cmd.SubmitterID, cmd.Message, cmd.Price, now)
	if err != nil {
		return entities.Proposal{}, err
	}
	if err := u.Proposals.CreateProposal(ctx, proposal); err != nil {
		return entities.Proposal{}, err
	}

	logger.Info("proposal submitted",
		"event", "proposal_submitted",
		"module", hiringModuleName,
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"posting_id", proposal.PostingID,
		"submitter_id", proposal.SubmitterID,
	)
	return proposal, nil
}
