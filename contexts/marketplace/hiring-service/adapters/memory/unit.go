package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"
	"gigflow/contexts/marketplace/hiring-service/ports"
)

// unit stages writes privately and publishes them in one critical section on
// Commit. It is owned by a single goroutine.
type unit struct {
	store       *Store
	postingID   string
	baseVersion int64
	posting     *entities.Posting
	proposals   map[string]entities.Proposal
	deleted     map[string]struct{}
	outbox      []ports.OutboxMessage
	release     func()
	done        bool
}

func (u *unit) GetPosting(_ context.Context, postingID string) (entities.Posting, error) {
	if u.done {
		return entities.Posting{}, domainerrors.ErrUnitClosed
	}
	if postingID != u.postingID {
		return entities.Posting{}, domainerrors.ErrUnitScope
	}
	if u.posting != nil {
		return *u.posting, nil
	}

	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	posting, ok := u.store.postings[postingID]
	if !ok {
		return entities.Posting{}, domainerrors.ErrPostingNotFound
	}
	return posting, nil
}

func (u *unit) GetProposal(_ context.Context, proposalID string) (entities.Proposal, error) {
	if u.done {
		return entities.Proposal{}, domainerrors.ErrUnitClosed
	}
	if _, gone := u.deleted[proposalID]; gone {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	if staged, ok := u.proposals[proposalID]; ok {
		return staged, nil
	}

	u.store.mu.RLock()
	proposal, ok := u.store.proposals[proposalID]
	u.store.mu.RUnlock()
	if !ok {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	if proposal.PostingID != u.postingID {
		return entities.Proposal{}, domainerrors.ErrUnitScope
	}
	return proposal, nil
}

func (u *unit) UpdatePostingStatus(
	ctx context.Context,
	postingID string,
	status entities.PostingStatus,
	updatedAt time.Time,
) error {
	posting, err := u.GetPosting(ctx, postingID)
	if err != nil {
		return err
	}
	posting.Status = status
	posting.UpdatedAt = updatedAt.UTC()
	u.posting = &posting
	return nil
}

func (u *unit) UpdateProposalStatus(
	ctx context.Context,
	proposalID string,
	status entities.ProposalStatus,
	updatedAt time.Time,
) error {
	proposal, err := u.GetProposal(ctx, proposalID)
	if err != nil {
		return err
	}
	proposal.Status = status
	proposal.UpdatedAt = updatedAt.UTC()
	u.proposals[proposalID] = proposal
	return nil
}

func (u *unit) TransitionProposals(
	_ context.Context,
	postingID string,
	from entities.ProposalStatus,
	to entities.ProposalStatus,
	exceptProposalID string,
	updatedAt time.Time,
) (int, error) {
	if u.done {
		return 0, domainerrors.ErrUnitClosed
	}
	if postingID != u.postingID {
		return 0, domainerrors.ErrUnitScope
	}

	u.store.mu.RLock()
	candidates := make([]entities.Proposal, 0)
	for id, proposal := range u.store.proposals {
		if proposal.PostingID != postingID || id == exceptProposalID {
			continue
		}
		if _, gone := u.deleted[id]; gone {
			continue
		}
		if staged, ok := u.proposals[id]; ok {
			proposal = staged
		}
		candidates = append(candidates, proposal)
	}
	u.store.mu.RUnlock()

	transitioned := 0
	for _, proposal := range candidates {
		if proposal.Status != from {
			continue
		}
		proposal.Status = to
		proposal.UpdatedAt = updatedAt.UTC()
		u.proposals[proposal.ProposalID] = proposal
		transitioned++
	}
	return transitioned, nil
}

func (u *unit) ReviseProposal(ctx context.Context, proposal entities.Proposal) error {
	current, err := u.GetProposal(ctx, proposal.ProposalID)
	if err != nil {
		return err
	}
	current.Message = proposal.Message
	current.Price = proposal.Price
	current.UpdatedAt = proposal.UpdatedAt.UTC()
	u.proposals[current.ProposalID] = current
	return nil
}

func (u *unit) DeleteProposal(ctx context.Context, proposalID string) error {
	if _, err := u.GetProposal(ctx, proposalID); err != nil {
		return err
	}
	delete(u.proposals, proposalID)
	u.deleted[proposalID] = struct{}{}
	return nil
}

func (u *unit) AppendOutbox(_ context.Context, event ports.EventEnvelope) error {
	if u.done {
		return domainerrors.ErrUnitClosed
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	u.outbox = append(u.outbox, ports.OutboxMessage{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		CreatedAt:    event.OccurredAt.UTC(),
	})
	return nil
}

// Commit publishes staged writes if the posting version is still the one
// observed at Begin. The aggregate lock is released either way.
func (u *unit) Commit(ctx context.Context) error {
	if u.done {
		return domainerrors.ErrUnitClosed
	}
	defer u.finish()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domainerrors.ErrTransientFailure, err)
	}

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.postings[u.postingID]
	if !ok {
		return domainerrors.ErrPostingNotFound
	}
	if current.Version != u.baseVersion {
		return domainerrors.ErrUnitContention
	}
	for _, message := range u.outbox {
		if _, exists := s.outbox[message.OutboxID]; exists {
			return domainerrors.ErrRepositoryInvariantBroke
		}
	}

	if u.posting == nil && len(u.proposals) == 0 && len(u.deleted) == 0 && len(u.outbox) == 0 {
		return nil
	}
	next := current
	if u.posting != nil {
		next = *u.posting
	}
	next.Version = u.baseVersion + 1
	s.postings[u.postingID] = next
	for id, proposal := range u.proposals {
		s.proposals[id] = proposal
	}
	for id := range u.deleted {
		delete(s.proposals, id)
	}
	for _, message := range u.outbox {
		s.outbox[message.OutboxID] = message
		s.outboxOrder = append(s.outboxOrder, message.OutboxID)
	}

	s.logger.Debug("posting unit committed in memory store",
		"event", "memory_unit_committed",
		"module", "marketplace/hiring-service",
		"layer", "adapter",
		"posting_id", u.postingID,
		"version", next.Version,
		"proposal_writes", len(u.proposals),
		"proposal_deletes", len(u.deleted),
		"outbox_writes", len(u.outbox),
	)
	return nil
}

func (u *unit) Abort(_ context.Context) error {
	if u.done {
		return nil
	}
	u.finish()
	return nil
}

func (u *unit) finish() {
	u.done = true
	u.posting = nil
	u.proposals = nil
	u.deleted = nil
	u.outbox = nil
	u.release()
}
