package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "gigflow/contexts/marketplace/hiring-service/application"
	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"
	"gigflow/contexts/marketplace/hiring-service/ports"
)

type UpdateProposalCommand struct {
	ProposalID string
	CallerID   string
	// Message and Price are optional; zero values keep the stored terms.
	Message string
	Price   float64
}

// UpdateProposalUseCase lets a submitter change a proposal that is still
// pending. The change runs inside a unit on the posting so it serializes with
// a concurrent hire of the same posting.
type UpdateProposalUseCase struct {
	Store  ports.StateStore
	Clock  ports.Clock
	Logger *slog.Logger
}

func (u UpdateProposalUseCase) Execute(ctx context.Context, cmd UpdateProposalCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.CallerID) == "" {
		return entities.Proposal{}, domainerrors.ErrMissingCaller
	}

	var revised entities.Proposal
	err := runProposalUnit(ctx, u.Store, cmd.ProposalID, cmd.CallerID, func(unit ports.UnitOfWork, current entities.Proposal) error {
		next, err := current.Revise(cmd.Message, cmd.Price, nowFrom(u.Clock))
		if err != nil {
			return err
		}
		if err := unit.ReviseProposal(ctx, next); err != nil {
			return err
		}
		revised = next
		return nil
	})
	if err != nil {
		logProposalChangeFailure(ctx, logger, "update_proposal_failed", cmd.ProposalID, cmd.CallerID, err)
		return entities.Proposal{}, err
	}

	logger.Info("proposal updated",
		"event", "proposal_updated",
		"module", hiringModuleName,
		"layer", "application",
		"proposal_id", revised.ProposalID,
		"posting_id", revised.PostingID,
		"submitter_id", revised.SubmitterID,
	)
	return revised, nil
}

type WithdrawProposalCommand struct {
	ProposalID string
	CallerID   string
}

// WithdrawProposalUseCase deletes a pending proposal on behalf of its
// submitter. A proposal already hired or rejected stays put.
type WithdrawProposalUseCase struct {
	Store  ports.StateStore
	Logger *slog.Logger
}

func (u WithdrawProposalUseCase) Execute(ctx context.Context, cmd WithdrawProposalCommand) error {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.CallerID) == "" {
		return domainerrors.ErrMissingCaller
	}

	var withdrawn entities.Proposal
	err := runProposalUnit(ctx, u.Store, cmd.ProposalID, cmd.CallerID, func(unit ports.UnitOfWork, current entities.Proposal) error {
		if err := current.CheckWithdrawable(); err != nil {
			return err
		}
		withdrawn = current
		return unit.DeleteProposal(ctx, current.ProposalID)
	})
	if err != nil {
		logProposalChangeFailure(ctx, logger, "withdraw_proposal_failed", cmd.ProposalID, cmd.CallerID, err)
		return err
	}

	logger.Info("proposal withdrawn",
		"event", "proposal_withdrawn",
		"module", hiringModuleName,
		"layer", "application",
		"proposal_id", withdrawn.ProposalID,
		"posting_id", withdrawn.PostingID,
		"submitter_id", withdrawn.SubmitterID,
	)
	return nil
}

// runProposalUnit resolves the proposal's posting, opens a unit on it and
// hands apply the proposal as re-read under the unit, after the submitter
// check. The unit commits only if apply succeeds.
func runProposalUnit(
	ctx context.Context,
	store ports.StateStore,
	proposalID string,
	callerID string,
	apply func(ports.UnitOfWork, entities.Proposal) error,
) error {
	if strings.TrimSpace(proposalID) == "" {
		return domainerrors.ErrProposalNotFound
	}
	snapshot, err := store.GetProposal(ctx, proposalID)
	if err != nil {
		return err
	}
	if !snapshot.IsSubmittedBy(callerID) {
		return domainerrors.ErrNotProposalSubmitter
	}

	unit, err := store.Begin(ctx, snapshot.PostingID)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Abort(context.WithoutCancel(ctx))
		}
	}()

	current, err := unit.GetProposal(ctx, proposalID)
	if err != nil {
		return err
	}
	if err := apply(unit, current); err != nil {
		return err
	}
	if err := unit.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

func logProposalChangeFailure(ctx context.Context, logger *slog.Logger, event string, proposalID string, callerID string, err error) {
	level := slog.LevelError
	switch {
	case errors.Is(err, domainerrors.ErrNotFound),
		errors.Is(err, domainerrors.ErrForbidden),
		errors.Is(err, domainerrors.ErrConflict),
		errors.Is(err, domainerrors.ErrInvalidRequest):
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "proposal change failed",
		"event", event,
		"module", hiringModuleName,
		"layer", "application",
		"proposal_id", proposalID,
		"caller_id", callerID,
		"error", err.Error(),
	)
}

func nowFrom(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}
