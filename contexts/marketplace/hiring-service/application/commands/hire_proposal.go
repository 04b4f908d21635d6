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
	"gigflow/contexts/marketplace/hiring-service/domain/services"
	"gigflow/contexts/marketplace/hiring-service/ports"
)

type HireProposalCommand struct {
	ProposalID string
	CallerID   string
}

// ProposalView is the hired proposal joined with its posting title.
type ProposalView struct {
	ProposalID   string
	PostingID    string
	PostingTitle string
	SubmitterID  string
	Price        float64
	Message      string
	Status       entities.ProposalStatus
}

type HireProposalResult struct {
	Proposal      ProposalView
	RejectedCount int
	Attempts      int
}

// HireProposalUseCase accepts one proposal for a posting. It is the only
// writer allowed to move a posting and its proposals jointly.
type HireProposalUseCase struct {
	Store        ports.StateStore
	Notifier     ports.Notifier
	Clock        ports.Clock
	IDGenerator  ports.IDGenerator
	MaxAttempts  int
	RetryBackoff time.Duration
	Logger       *slog.Logger
}

// committedHire only exists once a unit has committed; notification is built
// from it and nothing else.
type committedHire struct {
	posting       entities.Posting
	proposal      entities.Proposal
	rejectedCount int
	committedAt   time.Time
}

// Execute runs the hire workflow in this order:
// 1) pre-checks outside any unit (exists, exists, owner, open)
// 2) unit of work: re-read, re-check open, assign, hire, reject siblings, outbox
// 3) commit, retrying transient failures with backoff
// 4) post-commit notification to the submitter.
func (u HireProposalUseCase) Execute(ctx context.Context, cmd HireProposalCommand) (HireProposalResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.CallerID) == "" {
		return HireProposalResult{}, domainerrors.ErrMissingCaller
	}
	if strings.TrimSpace(cmd.ProposalID) == "" {
		return HireProposalResult{}, domainerrors.ErrProposalNotFound
	}

	logger.Info("hire proposal started",
		"event", "hire_proposal_started",
		"module", hiringModuleName,
		"layer", "application",
		"proposal_id", cmd.ProposalID,
		"caller_id", cmd.CallerID,
	)

	proposal, err := u.Store.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return HireProposalResult{}, u.logFailure(ctx, logger, "hire_proposal_get_proposal_failed", cmd, err)
	}
	posting, err := u.Store.GetPosting(ctx, proposal.PostingID)
	if err != nil {
		return HireProposalResult{}, u.logFailure(ctx, logger, "hire_proposal_get_posting_failed", cmd, err)
	}
	if err := services.EvaluateHireEligibility(posting, proposal, cmd.CallerID); err != nil {
		return HireProposalResult{}, u.logFailure(ctx, logger, "hire_proposal_rejected", cmd, err)
	}

	var (
		outcome  committedHire
		attempts int
	)
	for {
		attempts++
		outcome, err = u.commitHire(ctx, posting.PostingID, cmd)
		if err == nil {
			break
		}
		if !errors.Is(err, domainerrors.ErrTransientFailure) || attempts >= u.maxAttempts() {
			return HireProposalResult{}, u.logFailure(ctx, logger, "hire_proposal_commit_failed", cmd, err)
		}
		logger.Warn("hire proposal retrying after transient failure",
			"event", "hire_proposal_retry",
			"module", hiringModuleName,
			"layer", "application",
			"proposal_id", cmd.ProposalID,
			"attempt", attempts,
			"error", err.Error(),
		)
		if err := sleepContext(ctx, u.backoff(attempts)); err != nil {
			return HireProposalResult{}, errors.Join(domainerrors.ErrTransientFailure, err)
		}
	}

	logger.Info("hire proposal committed",
		"event", "hire_proposal_committed",
		"module", hiringModuleName,
		"layer", "application",
		"proposal_id", outcome.proposal.ProposalID,
		"posting_id", outcome.posting.PostingID,
		"submitter_id", outcome.proposal.SubmitterID,
		"rejected_count", outcome.rejectedCount,
		"attempts", attempts,
	)

	if u.Notifier != nil {
		u.Notifier.Notify(ctx, outcome.proposal.SubmitterID, buildHiredNotification(
			outcome.posting,
			outcome.proposal,
			outcome.committedAt,
		))
	}

	return HireProposalResult{
		Proposal: ProposalView{
			ProposalID:   outcome.proposal.ProposalID,
			PostingID:    outcome.proposal.PostingID,
			PostingTitle: outcome.posting.Title,
			SubmitterID:  outcome.proposal.SubmitterID,
			Price:        outcome.proposal.Price,
			Message:      outcome.proposal.Message,
			Status:       outcome.proposal.Status,
		},
		RejectedCount: outcome.rejectedCount,
		Attempts:      attempts,
	}, nil
}

func (u HireProposalUseCase) commitHire(
	ctx context.Context,
	postingID string,
	cmd HireProposalCommand,
) (committedHire, error) {
	unit, err := u.Store.Begin(ctx, postingID)
	if err != nil {
		return committedHire{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Abort(context.WithoutCancel(ctx))
		}
	}()

	// Re-read both records under the unit: the pre-check snapshot may be stale.
	posting, err := unit.GetPosting(ctx, postingID)
	if err != nil {
		return committedHire{}, err
	}
	proposal, err := unit.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return committedHire{}, err
	}
	if err := services.EvaluateHireEligibility(posting, proposal, cmd.CallerID); err != nil {
		if errors.Is(err, domainerrors.ErrPostingAssigned) {
			return committedHire{}, domainerrors.ErrConcurrentAssignment
		}
		return committedHire{}, err
	}

	now := u.now()
	assigned, err := posting.Assign(now)
	if err != nil {
		return committedHire{}, domainerrors.ErrConcurrentAssignment
	}
	hired, err := proposal.Hire(now)
	if err != nil {
		return committedHire{}, err
	}

	if err := unit.UpdatePostingStatus(ctx, assigned.PostingID, assigned.Status, now); err != nil {
		return committedHire{}, err
	}
	if err := unit.UpdateProposalStatus(ctx, hired.ProposalID, hired.Status, now); err != nil {
		return committedHire{}, err
	}
	rejected, err := unit.TransitionProposals(
		ctx,
		assigned.PostingID,
		entities.ProposalStatusPending,
		entities.ProposalStatusRejected,
		hired.ProposalID,
		now,
	)
	if err != nil {
		return committedHire{}, err
	}

	if u.IDGenerator != nil {
		eventID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return committedHire{}, err
		}
		envelope, err := buildHiredEnvelope(eventID, assigned, hired, rejected, now)
		if err != nil {
			return committedHire{}, err
		}
		if err := unit.AppendOutbox(ctx, envelope); err != nil {
			return committedHire{}, err
		}
	}

	if err := unit.Commit(ctx); err != nil {
		return committedHire{}, err
	}
	committed = true

	return committedHire{
		posting:       assigned,
		proposal:      hired,
		rejectedCount: rejected,
		committedAt:   now,
	}, nil
}

func (u HireProposalUseCase) logFailure(ctx context.Context, logger *slog.Logger, event string, cmd HireProposalCommand, err error) error {
	level := slog.LevelError
	switch {
	case errors.Is(err, domainerrors.ErrNotFound),
		errors.Is(err, domainerrors.ErrForbidden),
		errors.Is(err, domainerrors.ErrConflict):
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "hire proposal failed",
		"event", event,
		"module", hiringModuleName,
		"layer", "application",
		"proposal_id", cmd.ProposalID,
		"caller_id", cmd.CallerID,
		"error", err.Error(),
	)
	return err
}

func (u HireProposalUseCase) maxAttempts() int {
	if u.MaxAttempts <= 0 {
		return 1
	}
	return u.MaxAttempts
}

func (u HireProposalUseCase) backoff(attempt int) time.Duration {
	base := u.RetryBackoff
	if base <= 0 {
		base = 25 * time.Millisecond
	}
	return base << (attempt - 1)
}

func (u HireProposalUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
