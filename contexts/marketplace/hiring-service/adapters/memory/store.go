package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	application "gigflow/contexts/marketplace/hiring-service/application"
	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"
	"gigflow/contexts/marketplace/hiring-service/ports"
)

const defaultLockTimeout = 5 * time.Second

// Store is an in-memory StateStore for local runtime and tests.
// Writes to one posting aggregate are serialized by a per-posting single-slot
// semaphore; committed state lives behind mu.
type Store struct {
	mu          sync.RWMutex
	postings    map[string]entities.Posting
	proposals   map[string]entities.Proposal
	outbox      map[string]ports.OutboxMessage
	outboxOrder []string
	outboxSent  map[string]time.Time

	locksMu     sync.Mutex
	locks       map[string]chan struct{}
	lockTimeout time.Duration

	sequence uint64
	logger   *slog.Logger
}

// NewStore seeds postings and proposals. A lockTimeout <= 0 uses the default.
func NewStore(
	seedPostings []entities.Posting,
	seedProposals []entities.Proposal,
	lockTimeout time.Duration,
	logger *slog.Logger,
) *Store {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	store := &Store{
		postings:    make(map[string]entities.Posting, len(seedPostings)),
		proposals:   make(map[string]entities.Proposal, len(seedProposals)),
		outbox:      make(map[string]ports.OutboxMessage),
		outboxOrder: make([]string, 0),
		outboxSent:  make(map[string]time.Time),
		locks:       make(map[string]chan struct{}),
		lockTimeout: lockTimeout,
		logger:      application.ResolveLogger(logger),
	}
	for _, posting := range seedPostings {
		if posting.Version == 0 {
			posting.Version = 1
		}
		store.postings[posting.PostingID] = posting
	}
	for _, proposal := range seedProposals {
		store.proposals[proposal.ProposalID] = proposal
	}
	return store
}

func (s *Store) GetPosting(_ context.Context, postingID string) (entities.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posting, ok := s.postings[postingID]
	if !ok {
		return entities.Posting{}, domainerrors.ErrPostingNotFound
	}
	return posting, nil
}

func (s *Store) GetProposal(_ context.Context, proposalID string) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proposal, ok := s.proposals[proposalID]
	if !ok {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return proposal, nil
}

func (s *Store) ListPostings(_ context.Context, search string) ([]entities.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	result := make([]entities.Posting, 0, len(s.postings))
	for _, posting := range s.postings {
		if needle != "" && !strings.Contains(strings.ToLower(posting.Title), needle) {
			continue
		}
		result = append(result, posting)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].PostingID < result[j].PostingID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) ListProposalsByPosting(_ context.Context, postingID string) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]entities.Proposal, 0)
	for _, proposal := range s.proposals {
		if proposal.PostingID == postingID {
			result = append(result, proposal)
		}
	}
	sortByCreatedAt(result)
	return result, nil
}

func (s *Store) ListProposalsBySubmitter(_ context.Context, submitterID string) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]entities.Proposal, 0)
	for _, proposal := range s.proposals {
		if proposal.SubmitterID == submitterID {
			result = append(result, proposal)
		}
	}
	sortByCreatedAt(result)
	return result, nil
}

func (s *Store) CreatePosting(_ context.Context, posting entities.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.postings[posting.PostingID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	if posting.Version == 0 {
		posting.Version = 1
	}
	s.postings[posting.PostingID] = posting
	return nil
}

// CreateProposal takes the posting's aggregate lock so a proposal can never
// slip in between a hire's sibling rejection and its commit.
func (s *Store) CreateProposal(ctx context.Context, proposal entities.Proposal) error {
	release, err := s.acquire(ctx, proposal.PostingID)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	posting, ok := s.postings[proposal.PostingID]
	if !ok {
		return domainerrors.ErrPostingNotFound
	}
	if !posting.IsOpen() {
		return domainerrors.ErrPostingAssigned
	}
	if _, exists := s.proposals[proposal.ProposalID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	for _, existing := range s.proposals {
		if existing.PostingID == proposal.PostingID && existing.SubmitterID == proposal.SubmitterID {
			return domainerrors.ErrDuplicateProposal
		}
	}
	s.proposals[proposal.ProposalID] = proposal
	return nil
}

// Begin waits up to the lock timeout for exclusive access to the posting's
// aggregate and snapshots its version for the commit-time CAS.
func (s *Store) Begin(ctx context.Context, postingID string) (ports.UnitOfWork, error) {
	if _, err := s.GetPosting(ctx, postingID); err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx, postingID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	posting, ok := s.postings[postingID]
	s.mu.RUnlock()
	if !ok {
		release()
		return nil, domainerrors.ErrPostingNotFound
	}

	return &unit{
		store:       s,
		postingID:   postingID,
		baseVersion: posting.Version,
		proposals:   make(map[string]entities.Proposal),
		deleted:     make(map[string]struct{}),
		release:     release,
	}, nil
}

func (s *Store) acquire(ctx context.Context, postingID string) (func(), error) {
	s.locksMu.Lock()
	sem, ok := s.locks[postingID]
	if !ok {
		sem = make(chan struct{}, 1)
		s.locks[postingID] = sem
	}
	s.locksMu.Unlock()

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domainerrors.ErrTransientFailure, ctx.Err())
	case <-timer.C:
		s.logger.Warn("posting unit lock timed out",
			"event", "memory_unit_lock_timeout",
			"module", "marketplace/hiring-service",
			"layer", "adapter",
			"posting_id", postingID,
			"lock_timeout", s.lockTimeout.String(),
		)
		return nil, domainerrors.ErrUnitLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-sem })
	}, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	messages := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.outboxOrder {
		if _, sent := s.outboxSent[id]; sent {
			continue
		}
		if msg, ok := s.outbox[id]; ok {
			messages = append(messages, msg)
		}
		if len(messages) >= limit {
			break
		}
	}
	return messages, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.outbox[outboxID]; !ok {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	s.outboxSent[outboxID] = sentAt.UTC()
	return nil
}

// OutboxEvents returns every outbox row in commit order, sent or not.
func (s *Store) OutboxEvents() []ports.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]ports.OutboxMessage, 0, len(s.outboxOrder))
	for _, id := range s.outboxOrder {
		if evt, ok := s.outbox[id]; ok {
			events = append(events, evt)
		}
	}
	return events
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	value := atomic.AddUint64(&s.sequence, 1)
	return fmt.Sprintf("gig-%d", value), nil
}

func sortByCreatedAt(items []entities.Proposal) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ProposalID < items[j].ProposalID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
