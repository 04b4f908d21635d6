package httpadapter

import (
	"context"
	"log/slog"

	application "gigflow/contexts/marketplace/hiring-service/application"
	"gigflow/contexts/marketplace/hiring-service/application/commands"
	"gigflow/contexts/marketplace/hiring-service/application/queries"
	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	httptransport "gigflow/contexts/marketplace/hiring-service/transport/http"
)

const timestampLayout = "2006-01-02T15:04:05Z"

type Handler struct {
	CreatePosting        commands.CreatePostingUseCase
	SubmitProposal       commands.SubmitProposalUseCase
	HireProposal         commands.HireProposalUseCase
	UpdateProposal       commands.UpdateProposalUseCase
	WithdrawProposal     commands.WithdrawProposalUseCase
	GetPosting           queries.GetPostingUseCase
	ListPostings         queries.ListPostingsUseCase
	ListPostingProposals queries.ListPostingProposalsUseCase
	ListMyProposals      queries.ListMyProposalsUseCase
	Logger               *slog.Logger
}

// CreatePostingHandler godoc
// @Summary Create a posting
// @Description Opens a new posting owned by the caller.
// @Tags hiring
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Verified caller identity"
// @Param request body httptransport.CreatePostingRequest true "Posting payload"
// @Success 201 {object} httptransport.PostingResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Router /api/postings [post]
func (h Handler) CreatePostingHandler(
	ctx context.Context,
	callerID string,
	req httptransport.CreatePostingRequest,
) (httptransport.PostingResponse, error) {
	posting, err := h.CreatePosting.Execute(ctx, commands.CreatePostingCommand{
		OwnerID:     callerID,
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
	})
	if err != nil {
		return httptransport.PostingResponse{}, err
	}
	return httptransport.PostingResponse{Item: mapPosting(posting)}, nil
}

// ListPostingsHandler godoc
// @Summary List postings
// @Description Newest first. search filters by title, ignoring case.
// @Tags hiring
// @Produce json
// @Param search query string false "Title search"
// @Success 200 {object} httptransport.ListPostingsResponse
// @Router /api/postings [get]
func (h Handler) ListPostingsHandler(ctx context.Context, search string) (httptransport.ListPostingsResponse, error) {
	items, err := h.ListPostings.Execute(ctx, search)
	if err != nil {
		return httptransport.ListPostingsResponse{}, err
	}
	out := make([]httptransport.PostingDTO, 0, len(items))
	for _, item := range items {
		out = append(out, mapPosting(item))
	}
	return httptransport.ListPostingsResponse{Items: out}, nil
}

// GetPostingHandler godoc
// @Summary Get a posting
// @Tags hiring
// @Produce json
// @Param posting_id path string true "Posting id"
// @Success 200 {object} httptransport.PostingResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /api/postings/{posting_id} [get]
func (h Handler) GetPostingHandler(ctx context.Context, postingID string) (httptransport.PostingResponse, error) {
	posting, err := h.GetPosting.Execute(ctx, postingID)
	if err != nil {
		return httptransport.PostingResponse{}, err
	}
	return httptransport.PostingResponse{Item: mapPosting(posting)}, nil
}

// ListPostingProposalsHandler godoc
// @Summary List proposals for a posting
// @Description Owner-only view of every proposal on the posting, newest first.
// @Tags hiring
// @Produce json
// @Param X-User-Id header string true "Verified caller identity"
// @Param posting_id path string true "Posting id"
// @Success 200 {object} httptransport.ListProposalsResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /api/postings/{posting_id}/proposals [get]
func (h Handler) ListPostingProposalsHandler(
	ctx context.Context,
	callerID string,
	postingID string,
) (httptransport.ListProposalsResponse, error) {
	items, err := h.ListPostingProposals.Execute(ctx, queries.ListPostingProposalsQuery{
		PostingID: postingID,
		CallerID:  callerID,
	})
	if err != nil {
		return httptransport.ListProposalsResponse{}, err
	}
	return httptransport.ListProposalsResponse{Items: mapProposals(items)}, nil
}

// SubmitProposalHandler godoc
// @Summary Submit a proposal
// @Tags hiring
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Verified caller identity"
// @Param request body httptransport.SubmitProposalRequest true "Proposal payload"
// @Success 201 {object} httptransport.ProposalResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /api/proposals [post]
func (h Handler) SubmitProposalHandler(
	ctx context.Context,
	callerID string,
	req httptransport.SubmitProposalRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.SubmitProposal.Execute(ctx, commands.SubmitProposalCommand{
		SubmitterID: callerID,
		PostingID:   req.PostingID,
		Message:     req.Message,
		Price:       req.Price,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return httptransport.ProposalResponse{Item: mapProposal(proposal)}, nil
}

// ListMyProposalsHandler godoc
// @Summary List the caller's proposals
// @Tags hiring
// @Produce json
// @Param X-User-Id header string true "Verified caller identity"
// @Success 200 {object} httptransport.ListProposalsResponse
// @Router /api/proposals/mine [get]
func (h Handler) ListMyProposalsHandler(ctx context.Context, callerID string) (httptransport.ListProposalsResponse, error) {
	items, err := h.ListMyProposals.Execute(ctx, callerID)
	if err != nil {
		return httptransport.ListProposalsResponse{}, err
	}
	return httptransport.ListProposalsResponse{Items: mapProposals(items)}, nil
}

// HireProposalHandler godoc
// @Summary Hire a proposal
// @Description Atomically assigns the posting, hires the proposal and rejects every other pending proposal. Exactly one concurrent hire per posting succeeds.
// @Tags hiring
// @Produce json
// @Param X-User-Id header string true "Verified caller identity"
// @Param proposal_id path string true "Proposal id"
// @Success 200 {object} httptransport.HireProposalResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /api/proposals/{proposal_id}/hire [patch]
func (h Handler) HireProposalHandler(
	ctx context.Context,
	callerID string,
	proposalID string,
) (httptransport.HireProposalResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("hire request received",
		"event", "http_hire_proposal_received",
		"module", "marketplace/hiring-service",
		"layer", "transport",
		"proposal_id", proposalID,
	)

	result, err := h.HireProposal.Execute(ctx, commands.HireProposalCommand{
		ProposalID: proposalID,
		CallerID:   callerID,
	})
	if err != nil {
		return httptransport.HireProposalResponse{}, err
	}
	view := result.Proposal
	return httptransport.HireProposalResponse{
		Item: httptransport.ProposalDTO{
			ProposalID:   view.ProposalID,
			PostingID:    view.PostingID,
			PostingTitle: view.PostingTitle,
			SubmitterID:  view.SubmitterID,
			Message:      view.Message,
			Price:        view.Price,
			Status:       string(view.Status),
		},
		RejectedCount: result.RejectedCount,
	}, nil
}

// UpdateProposalHandler godoc
// @Summary Update a pending proposal
// @Tags hiring
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Verified caller identity"
// @Param proposal_id path string true "Proposal id"
// @Param request body httptransport.UpdateProposalRequest true "New message and/or price"
// @Success 200 {object} httptransport.ProposalResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /api/proposals/{proposal_id} [put]
func (h Handler) UpdateProposalHandler(
	ctx context.Context,
	callerID string,
	proposalID string,
	req httptransport.UpdateProposalRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.UpdateProposal.Execute(ctx, commands.UpdateProposalCommand{
		ProposalID: proposalID,
		CallerID:   callerID,
		Message:    req.Message,
		Price:      req.Price,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return httptransport.ProposalResponse{Item: mapProposal(proposal)}, nil
}

// WithdrawProposalHandler godoc
// @Summary Withdraw a pending proposal
// @Tags hiring
// @Produce json
// @Param X-User-Id header string true "Verified caller identity"
// @Param proposal_id path string true "Proposal id"
// @Success 200 {object} httptransport.WithdrawProposalResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /api/proposals/{proposal_id} [delete]
func (h Handler) WithdrawProposalHandler(
	ctx context.Context,
	callerID string,
	proposalID string,
) (httptransport.WithdrawProposalResponse, error) {
	if err := h.WithdrawProposal.Execute(ctx, commands.WithdrawProposalCommand{
		ProposalID: proposalID,
		CallerID:   callerID,
	}); err != nil {
		return httptransport.WithdrawProposalResponse{}, err
	}
	return httptransport.WithdrawProposalResponse{ProposalID: proposalID, Withdrawn: true}, nil
}

func mapPosting(posting entities.Posting) httptransport.PostingDTO {
	return httptransport.PostingDTO{
		PostingID:   posting.PostingID,
		Title:       posting.Title,
		Description: posting.Description,
		Budget:      posting.Budget,
		OwnerID:     posting.OwnerID,
		Status:      string(posting.Status),
		CreatedAt:   posting.CreatedAt.UTC().Format(timestampLayout),
	}
}

func mapProposals(items []entities.Proposal) []httptransport.ProposalDTO {
	out := make([]httptransport.ProposalDTO, 0, len(items))
	for _, item := range items {
		out = append(out, mapProposal(item))
	}
	return out
}

func mapProposal(proposal entities.Proposal) httptransport.ProposalDTO {
	return httptransport.ProposalDTO{
		ProposalID:  proposal.ProposalID,
		PostingID:   proposal.PostingID,
		SubmitterID: proposal.SubmitterID,
		Message:     proposal.Message,
		Price:       proposal.Price,
		Status:      string(proposal.Status),
		CreatedAt:   proposal.CreatedAt.UTC().Format(timestampLayout),
	}
}
