package hiringservice

import (
	"log/slog"
	"time"

	httpadapter "gigflow/contexts/marketplace/hiring-service/adapters/http"
	"gigflow/contexts/marketplace/hiring-service/adapters/memory"
	"gigflow/contexts/marketplace/hiring-service/application/commands"
	"gigflow/contexts/marketplace/hiring-service/application/queries"
	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	"gigflow/contexts/marketplace/hiring-service/ports"
)

// Module is the composition surface for the hiring context.
// Runtime wiring consumes Handler; Store is exposed for tests and the
// in-process outbox relay.
type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Store            ports.StateStore
	Notifier         ports.Notifier
	Clock            ports.Clock
	IDGenerator      ports.IDGenerator
	HireMaxAttempts  int
	HireRetryBackoff time.Duration
	Logger           *slog.Logger
}

// NewModule wires hiring use cases against explicit ports.
func NewModule(deps Dependencies) Module {
	handler := httpadapter.Handler{
		CreatePosting: commands.CreatePostingUseCase{
			Postings:    deps.Store,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		SubmitProposal: commands.SubmitProposalUseCase{
			Postings:    deps.Store,
			Proposals:   deps.Store,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		HireProposal: commands.HireProposalUseCase{
			Store:        deps.Store,
			Notifier:     deps.Notifier,
			Clock:        deps.Clock,
			IDGenerator:  deps.IDGenerator,
			MaxAttempts:  deps.HireMaxAttempts,
			RetryBackoff: deps.HireRetryBackoff,
			Logger:       deps.Logger,
		},
		UpdateProposal: commands.UpdateProposalUseCase{
			Store:  deps.Store,
			Clock:  deps.Clock,
			Logger: deps.Logger,
		},
		WithdrawProposal: commands.WithdrawProposalUseCase{
			Store:  deps.Store,
			Logger: deps.Logger,
		},
		GetPosting: queries.GetPostingUseCase{
			Postings: deps.Store,
			Logger:   deps.Logger,
		},
		ListPostings: queries.ListPostingsUseCase{
			Postings: deps.Store,
		},
		ListPostingProposals: queries.ListPostingProposalsUseCase{
			Postings: deps.Store,
			Logger:   deps.Logger,
		},
		ListMyProposals: queries.ListMyProposalsUseCase{
			Postings: deps.Store,
		},
		Logger: deps.Logger,
	}
	return Module{Handler: handler}
}

// NewInMemoryModule wires the hiring use cases against the in-memory store.
func NewInMemoryModule(
	seedPostings []entities.Posting,
	seedProposals []entities.Proposal,
	notifier ports.Notifier,
	logger *slog.Logger,
) Module {
	store := memory.NewStore(seedPostings, seedProposals, 0, logger)
	module := NewModule(Dependencies{
		Store:            store,
		Notifier:         notifier,
		Clock:            store,
		IDGenerator:      store,
		HireMaxAttempts:  3,
		HireRetryBackoff: 25 * time.Millisecond,
		Logger:           logger,
	})
	module.Store = store
	return module
}
