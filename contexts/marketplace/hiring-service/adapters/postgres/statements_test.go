package postgresadapter

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type capturedStatement struct {
	sql  string
	vars []any
}

// newDryRunDB builds statements without a server. Nothing reaches the
// network: no ping, no implicit transaction, and DryRun skips execution.
func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 port=5432 user=gigflow dbname=gigflow sslmode=disable",
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	return db
}

func captureUpdates(t *testing.T, db *gorm.DB) *[]capturedStatement {
	t.Helper()
	var captured []capturedStatement
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("gigflow:capture_update", func(tx *gorm.DB) {
		captured = append(captured, capturedStatement{
			sql:  tx.Statement.SQL.String(),
			vars: append([]any(nil), tx.Statement.Vars...),
		})
	}))
	return &captured
}

func TestRejectSiblingsTargetsOnlyPendingRows(t *testing.T) {
	db := newDryRunDB(t)
	captured := captureUpdates(t, db)
	u := &unit{tx: db, postingID: "posting-1", baseVersion: 3, logger: slog.Default()}
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := u.TransitionProposals(context.Background(), "posting-1",
		entities.ProposalStatusPending, entities.ProposalStatusRejected, "proposal-1", at)
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	stmt := (*captured)[0]
	assert.Contains(t, stmt.sql, `UPDATE "proposals"`)
	assert.Contains(t, stmt.sql, "posting_id = $")
	assert.Contains(t, stmt.sql, "status = $")
	assert.Contains(t, stmt.sql, "proposal_id <> $")
	assert.Contains(t, stmt.vars, string(entities.ProposalStatusRejected))
	assert.Contains(t, stmt.vars, string(entities.ProposalStatusPending))
	assert.Contains(t, stmt.vars, "proposal-1")
	assert.Contains(t, stmt.vars, "posting-1")
}

func TestPostingCASGuardsOnReadVersion(t *testing.T) {
	db := newDryRunDB(t)
	captured := captureUpdates(t, db)
	u := &unit{tx: db, postingID: "posting-1", baseVersion: 3, logger: slog.Default()}

	// A dry run matches no rows, which is what a concurrent writer looks like.
	err := u.UpdatePostingStatus(context.Background(), "posting-1", entities.PostingStatusAssigned, time.Now())
	require.ErrorIs(t, err, domainerrors.ErrUnitContention)
	assert.False(t, u.bumped)
	assert.False(t, u.dirty)

	require.Len(t, *captured, 1)
	stmt := (*captured)[0]
	assert.Contains(t, stmt.sql, `UPDATE "postings"`)
	assert.Contains(t, stmt.sql, "version = $")
	assert.Contains(t, stmt.vars, int64(3))
	assert.Contains(t, stmt.vars, int64(4))
	assert.Contains(t, stmt.vars, string(entities.PostingStatusAssigned))
}

func TestRepositoryReadsClassifyDriverErrors(t *testing.T) {
	db := newDryRunDB(t)
	lockTimeout := func(tx *gorm.DB) {
		_ = tx.AddError(&pgconn.PgError{Code: pgLockNotAvailable, Message: "canceling statement due to lock timeout"})
	}
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("gigflow:fail_query", lockTimeout))
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("gigflow:fail_update", lockTimeout))

	repo := NewRepository(db, time.Second, nil)
	ctx := context.Background()

	_, err := repo.GetPosting(ctx, "posting-1")
	assert.ErrorIs(t, err, domainerrors.ErrTransientFailure, "GetPosting")
	_, err = repo.GetProposal(ctx, "proposal-1")
	assert.ErrorIs(t, err, domainerrors.ErrTransientFailure, "GetProposal")
	_, err = repo.ListPostings(ctx, "logo")
	assert.ErrorIs(t, err, domainerrors.ErrTransientFailure, "ListPostings")
	_, err = repo.ListProposalsByPosting(ctx, "posting-1")
	assert.ErrorIs(t, err, domainerrors.ErrTransientFailure, "ListProposalsByPosting")
	_, err = repo.ListProposalsBySubmitter(ctx, "bidder-1")
	assert.ErrorIs(t, err, domainerrors.ErrTransientFailure, "ListProposalsBySubmitter")
	_, err = repo.ListPendingOutbox(ctx, 10)
	assert.ErrorIs(t, err, domainerrors.ErrTransientFailure, "ListPendingOutbox")
	err = repo.MarkOutboxSent(ctx, "outbox-1", time.Now())
	assert.ErrorIs(t, err, domainerrors.ErrTransientFailure, "MarkOutboxSent")
}
