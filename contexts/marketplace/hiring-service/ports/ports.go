package ports

import (
	"context"
	"time"

	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	contractsv1 "gigflow/contracts/gen/events/v1"
)

// PostingReader serves the lock-free reads used for pre-checks and queries.
type PostingReader interface {
	GetPosting(ctx context.Context, postingID string) (entities.Posting, error)
	// ListPostings returns postings whose title contains search, ignoring
	// case; an empty search matches every posting.
	ListPostings(ctx context.Context, search string) ([]entities.Posting, error)
	GetProposal(ctx context.Context, proposalID string) (entities.Proposal, error)
	ListProposalsByPosting(ctx context.Context, postingID string) ([]entities.Proposal, error)
	ListProposalsBySubmitter(ctx context.Context, submitterID string) ([]entities.Proposal, error)
}

// PostingWriter covers the single-record writes owned by collaborators outside
// the hire workflow (posting and proposal creation).
type PostingWriter interface {
	CreatePosting(ctx context.Context, posting entities.Posting) error
	// CreateProposal must reject a second proposal by the same submitter on
	// the same posting with ErrDuplicateProposal.
	CreateProposal(ctx context.Context, proposal entities.Proposal) error
}

// StateStore is the durable owner of postings and proposals.
type StateStore interface {
	PostingReader
	PostingWriter
	// Begin opens a unit of work isolated at the granularity of one posting's
	// aggregate. It blocks for at most the store's lock timeout and then fails
	// with ErrTransientFailure. Units on different postings never wait on
	// each other.
	Begin(ctx context.Context, postingID string) (UnitOfWork, error)
}

// UnitOfWork is a bounded sequence of reads and writes against one posting
// aggregate that commits or aborts as a whole. Writes are invisible to other
// readers until Commit returns nil.
type UnitOfWork interface {
	GetPosting(ctx context.Context, postingID string) (entities.Posting, error)
	GetProposal(ctx context.Context, proposalID string) (entities.Proposal, error)
	UpdatePostingStatus(ctx context.Context, postingID string, status entities.PostingStatus, updatedAt time.Time) error
	UpdateProposalStatus(ctx context.Context, proposalID string, status entities.ProposalStatus, updatedAt time.Time) error
	// TransitionProposals bulk-updates every proposal of postingID currently in
	// status from to status to, skipping exceptProposalID. It returns the
	// number of proposals transitioned.
	TransitionProposals(
		ctx context.Context,
		postingID string,
		from entities.ProposalStatus,
		to entities.ProposalStatus,
		exceptProposalID string,
		updatedAt time.Time,
	) (int, error)
	// ReviseProposal rewrites a proposal's message and price.
	ReviseProposal(ctx context.Context, proposal entities.Proposal) error
	// DeleteProposal removes a proposal of the unit's posting.
	DeleteProposal(ctx context.Context, proposalID string) error
	// AppendOutbox stages an integration event committed with the unit.
	AppendOutbox(ctx context.Context, event EventEnvelope) error
	Commit(ctx context.Context) error
	// Abort discards every staged write. Calling Abort after Commit is a no-op.
	Abort(ctx context.Context) error
}

// SessionRegistry maps a user to their single live transport session.
type SessionRegistry interface {
	Register(userID string, sessionID string)
	Unregister(sessionID string)
	Lookup(userID string) (string, bool)
}

// SessionPusher is the transport primitive that hands an event to a session
// without waiting for delivery acknowledgement.
type SessionPusher interface {
	Push(sessionID string, event Notification) error
}

// Notifier delivers best-effort, at-most-once realtime events to a user.
type Notifier interface {
	Notify(ctx context.Context, userID string, event Notification)
}

// Notification is the realtime frame pushed to a connected user.
type Notification struct {
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	PostingID    string    `json:"posting_id"`
	PostingTitle string    `json:"posting_title"`
	ProposalID   string    `json:"proposal_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Clock allows deterministic testing of timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts posting/proposal/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
