package queries

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	application "gigflow/contexts/marketplace/hiring-service/application"
	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"
	"gigflow/contexts/marketplace/hiring-service/ports"
)

type GetPostingUseCase struct {
	Postings ports.PostingReader
	Logger   *slog.Logger
}

func (u GetPostingUseCase) Execute(ctx context.Context, postingID string) (entities.Posting, error) {
	posting, err := u.Postings.GetPosting(ctx, postingID)
	if err != nil {
		application.ResolveLogger(u.Logger).Debug("get posting failed",
			"event", "get_posting_failed",
			"module", "marketplace/hiring-service",
			"layer", "application",
			"posting_id", postingID,
			"error", err.Error(),
		)
		return entities.Posting{}, err
	}
	return posting, nil
}

// ListPostingsUseCase lists postings newest first, optionally filtered by a
// case-insensitive title search.
type ListPostingsUseCase struct {
	Postings ports.PostingReader
}

func (u ListPostingsUseCase) Execute(ctx context.Context, search string) ([]entities.Posting, error) {
	return u.Postings.ListPostings(ctx, strings.TrimSpace(search))
}

type ListPostingProposalsQuery struct {
	PostingID string
	CallerID  string
}

// ListPostingProposalsUseCase returns a posting's proposals to its owner only.
type ListPostingProposalsUseCase struct {
	Postings ports.PostingReader
	Logger   *slog.Logger
}

func (u ListPostingProposalsUseCase) Execute(ctx context.Context, query ListPostingProposalsQuery) ([]entities.Proposal, error) {
	logger := application.ResolveLogger(u.Logger)
	if query.CallerID == "" {
		return nil, domainerrors.ErrMissingCaller
	}
	posting, err := u.Postings.GetPosting(ctx, query.PostingID)
	if err != nil {
		return nil, err
	}
	if !posting.IsOwnedBy(query.CallerID) {
		logger.Warn("list posting proposals forbidden",
			"event", "list_posting_proposals_forbidden",
			"module", "marketplace/hiring-service",
			"layer", "application",
			"posting_id", query.PostingID,
			"caller_id", query.CallerID,
		)
		return nil, domainerrors.ErrNotPostingOwner
	}

	items, err := u.Postings.ListProposalsByPosting(ctx, query.PostingID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(items)
	return items, nil
}

type ListMyProposalsUseCase struct {
	Postings ports.PostingReader
}

func (u ListMyProposalsUseCase) Execute(ctx context.Context, callerID string) ([]entities.Proposal, error) {
	if callerID == "" {
		return nil, domainerrors.ErrMissingCaller
	}
	items, err := u.Postings.ListProposalsBySubmitter(ctx, callerID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(items)
	return items, nil
}

func sortNewestFirst(items []entities.Proposal) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ProposalID < items[j].ProposalID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
