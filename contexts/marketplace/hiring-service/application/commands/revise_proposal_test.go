package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gigflow/contexts/marketplace/hiring-service/adapters/memory"
	"gigflow/contexts/marketplace/hiring-service/application/commands"
	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestUpdateProposalChangesPendingTerms(t *testing.T) {
	ctx := context.Background()
	store, ids := newFixture(t, 2, time.Second)
	at := seedTime.Add(2 * time.Hour)
	useCase := commands.UpdateProposalUseCase{Store: store, Clock: fixedClock{at: at}}

	updated, err := useCase.Execute(ctx, commands.UpdateProposalCommand{
		ProposalID: ids[0],
		CallerID:   "bidder-0",
		Price:      90,
	})
	require.NoError(t, err)
	assert.Equal(t, 90.0, updated.Price)
	assert.Equal(t, "I can do it", updated.Message)
	assert.Equal(t, at, updated.UpdatedAt)

	stored, err := store.GetProposal(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 90.0, stored.Price)
	assert.Equal(t, at, stored.UpdatedAt)
	assert.Equal(t, entities.ProposalStatusPending, stored.Status)

	posting, err := store.GetPosting(ctx, "posting-1")
	require.NoError(t, err)
	assert.Equal(t, entities.PostingStatusOpen, posting.Status)
	assert.Equal(t, int64(2), posting.Version)
}

func TestUpdateProposalRejections(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		prepare func(t *testing.T, store *memory.Store)
		cmd     commands.UpdateProposalCommand
		want    error
	}{
		{
			name: "missing caller",
			cmd:  commands.UpdateProposalCommand{ProposalID: "proposal-0", Price: 5},
			want: domainerrors.ErrMissingCaller,
		},
		{
			name: "unknown proposal",
			cmd:  commands.UpdateProposalCommand{ProposalID: "missing", CallerID: "bidder-0", Price: 5},
			want: domainerrors.ErrProposalNotFound,
		},
		{
			name: "someone else's proposal",
			cmd:  commands.UpdateProposalCommand{ProposalID: "proposal-0", CallerID: "bidder-1", Price: 5},
			want: domainerrors.ErrNotProposalSubmitter,
		},
		{
			name: "nothing to change",
			cmd:  commands.UpdateProposalCommand{ProposalID: "proposal-0", CallerID: "bidder-0"},
			want: domainerrors.ErrEmptyRevision,
		},
		{
			name: "negative price",
			cmd:  commands.UpdateProposalCommand{ProposalID: "proposal-0", CallerID: "bidder-0", Price: -3},
			want: domainerrors.ErrInvalidProposal,
		},
		{
			name: "already rejected",
			prepare: func(t *testing.T, store *memory.Store) {
				_, err := newUseCase(store, nil).Execute(ctx, commands.HireProposalCommand{ProposalID: "proposal-1", CallerID: "owner-1"})
				require.NoError(t, err)
			},
			cmd:  commands.UpdateProposalCommand{ProposalID: "proposal-0", CallerID: "bidder-0", Message: "late"},
			want: domainerrors.ErrProposalNotPending,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, _ := newFixture(t, 2, time.Second)
			if tc.prepare != nil {
				tc.prepare(t, store)
			}
			before, err := store.GetProposal(ctx, "proposal-0")
			require.NoError(t, err)

			_, err = commands.UpdateProposalUseCase{Store: store}.Execute(ctx, tc.cmd)
			require.ErrorIs(t, err, tc.want)

			after, err := store.GetProposal(ctx, "proposal-0")
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestWithdrawProposalDeletesPendingProposal(t *testing.T) {
	ctx := context.Background()
	store, ids := newFixture(t, 2, time.Second)
	withdraw := commands.WithdrawProposalUseCase{Store: store}

	err := withdraw.Execute(ctx, commands.WithdrawProposalCommand{ProposalID: ids[0], CallerID: "bidder-1"})
	require.ErrorIs(t, err, domainerrors.ErrForbidden)

	require.NoError(t, withdraw.Execute(ctx, commands.WithdrawProposalCommand{ProposalID: ids[0], CallerID: "bidder-0"}))
	_, err = store.GetProposal(ctx, ids[0])
	assert.ErrorIs(t, err, domainerrors.ErrProposalNotFound)

	err = withdraw.Execute(ctx, commands.WithdrawProposalCommand{ProposalID: ids[0], CallerID: "bidder-0"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	result, err := newUseCase(store, nil).Execute(ctx, commands.HireProposalCommand{ProposalID: ids[1], CallerID: "owner-1"})
	require.NoError(t, err)
	assert.Zero(t, result.RejectedCount)

	err = withdraw.Execute(ctx, commands.WithdrawProposalCommand{ProposalID: ids[1], CallerID: "bidder-1"})
	require.ErrorIs(t, err, domainerrors.ErrConflict)
	hired, err := store.GetProposal(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, entities.ProposalStatusHired, hired.Status)
}

func TestWithdrawalRacingHireOfSameProposal(t *testing.T) {
	var withdrawWins, hireWins int
	for round := 0; round < 50; round++ {
		store, ids := newFixture(t, 3, 2*time.Second)
		notifier := &recordingNotifier{}
		hire := newUseCase(store, notifier)
		withdraw := commands.WithdrawProposalUseCase{Store: store}

		var hireErr, withdrawErr error
		start := make(chan struct{})
		group, ctx := errgroup.WithContext(context.Background())
		group.Go(func() error {
			<-start
			_, hireErr = hire.Execute(ctx, commands.HireProposalCommand{ProposalID: ids[0], CallerID: "owner-1"})
			return nil
		})
		group.Go(func() error {
			<-start
			withdrawErr = withdraw.Execute(ctx, commands.WithdrawProposalCommand{ProposalID: ids[0], CallerID: "bidder-0"})
			return nil
		})
		close(start)
		require.NoError(t, group.Wait())

		posting, err := store.GetPosting(context.Background(), "posting-1")
		require.NoError(t, err)
		stored, getErr := store.GetProposal(context.Background(), ids[0])

		switch {
		case withdrawErr == nil:
			withdrawWins++
			require.ErrorIs(t, hireErr, domainerrors.ErrNotFound, "round %d", round)
			assert.ErrorIs(t, getErr, domainerrors.ErrProposalNotFound)
			assert.Equal(t, entities.PostingStatusOpen, posting.Status)
			assert.Empty(t, notifier.snapshot())
			assert.Empty(t, store.OutboxEvents())
		case hireErr == nil:
			hireWins++
			require.ErrorIs(t, withdrawErr, domainerrors.ErrConflict, "round %d", round)
			require.NoError(t, getErr)
			assert.Equal(t, entities.ProposalStatusHired, stored.Status)
			assert.Equal(t, entities.PostingStatusAssigned, posting.Status)
			assert.Len(t, notifier.snapshot(), 1)
		default:
			t.Fatalf("round %d: neither side won: hire=%v withdraw=%v", round, hireErr, withdrawErr)
		}
	}
	assert.Equal(t, 50, withdrawWins+hireWins)
}

func TestWithdrawalRacingHireOfSibling(t *testing.T) {
	for round := 0; round < 50; round++ {
		store, ids := newFixture(t, 3, 2*time.Second)
		hire := newUseCase(store, nil)
		withdraw := commands.WithdrawProposalUseCase{Store: store}

		var (
			result      commands.HireProposalResult
			hireErr     error
			withdrawErr error
		)
		start := make(chan struct{})
		group, ctx := errgroup.WithContext(context.Background())
		group.Go(func() error {
			<-start
			result, hireErr = hire.Execute(ctx, commands.HireProposalCommand{ProposalID: ids[0], CallerID: "owner-1"})
			return nil
		})
		group.Go(func() error {
			<-start
			withdrawErr = withdraw.Execute(ctx, commands.WithdrawProposalCommand{ProposalID: ids[1], CallerID: "bidder-1"})
			return nil
		})
		close(start)
		require.NoError(t, group.Wait())
		require.NoError(t, hireErr, "round %d", round)

		remaining, err := store.ListProposalsByPosting(context.Background(), "posting-1")
		require.NoError(t, err)
		rejected := 0
		for _, proposal := range remaining {
			require.NotEqual(t, entities.ProposalStatusPending, proposal.Status, "round %d: %s left pending", round, proposal.ProposalID)
			if proposal.Status == entities.ProposalStatusRejected {
				rejected++
			}
		}
		assert.Equal(t, rejected, result.RejectedCount, "round %d", round)

		if withdrawErr == nil {
			assert.Len(t, remaining, 2)
			assert.Equal(t, 1, result.RejectedCount)
		} else {
			require.True(t, errors.Is(withdrawErr, domainerrors.ErrConflict), "round %d: %v", round, withdrawErr)
			assert.Len(t, remaining, 3)
			assert.Equal(t, 2, result.RejectedCount)
		}
	}
}
