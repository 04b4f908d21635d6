package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"
	"gigflow/contexts/marketplace/hiring-service/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultLockTimeout = 5 * time.Second

// Repository is the Postgres StateStore. A unit of work is a database
// transaction holding a row lock on the posting, which serializes writers per
// posting aggregate and leaves other postings untouched.
type Repository struct {
	db          *gorm.DB
	lockTimeout time.Duration
	logger      *slog.Logger
}

func NewRepository(db *gorm.DB, lockTimeout time.Duration, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	return &Repository{
		db:          db,
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

// Migrate creates the hiring tables and the partial unique index that backs
// the one-hired-proposal-per-posting invariant.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&postingModel{}, &proposalModel{}, &outboxModel{}); err != nil {
		return fmt.Errorf("auto-migrate hiring tables: %w", err)
	}
	// gorm-postgres-enforcer: allow-raw-sql partial indexes have no gorm tag form
	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON proposals (posting_id) WHERE status = '%s'",
		oneHiredPerPostingIndex,
		entities.ProposalStatusHired,
	)
	if err := r.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("create %s: %w", oneHiredPerPostingIndex, err)
	}
	return nil
}

func (r *Repository) GetPosting(ctx context.Context, postingID string) (entities.Posting, error) {
	posting, err := getPosting(r.db.WithContext(ctx), postingID, false)
	return posting, classifyError(err)
}

func (r *Repository) GetProposal(ctx context.Context, proposalID string) (entities.Proposal, error) {
	proposal, err := getProposal(r.db.WithContext(ctx), proposalID)
	return proposal, classifyError(err)
}

func (r *Repository) ListPostings(ctx context.Context, search string) ([]entities.Posting, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("posting_id ASC")
	if needle := strings.TrimSpace(search); needle != "" {
		query = query.Where("title ILIKE ? ESCAPE '\\'", "%"+escapeLike(needle)+"%")
	}
	var rows []postingModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, classifyError(err)
	}
	postings := make([]entities.Posting, 0, len(rows))
	for _, row := range rows {
		postings = append(postings, row.toEntity())
	}
	return postings, nil
}

func (r *Repository) ListProposalsByPosting(ctx context.Context, postingID string) ([]entities.Proposal, error) {
	var rows []proposalModel
	if err := r.db.WithContext(ctx).
		Where("posting_id = ?", postingID).
		Order("created_at ASC").
		Find(&rows).
		Error; err != nil {
		return nil, classifyError(err)
	}
	return proposalEntities(rows), nil
}

func (r *Repository) ListProposalsBySubmitter(ctx context.Context, submitterID string) ([]entities.Proposal, error) {
	var rows []proposalModel
	if err := r.db.WithContext(ctx).
		Where("submitter_id = ?", submitterID).
		Order("created_at ASC").
		Find(&rows).
		Error; err != nil {
		return nil, classifyError(err)
	}
	return proposalEntities(rows), nil
}

func (r *Repository) CreatePosting(ctx context.Context, posting entities.Posting) error {
	row := postingModelFromEntity(posting)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return classifyError(err)
	}
	return nil
}

// CreateProposal locks the posting row so an insert cannot race a hire that
// is rejecting the posting's pending proposals.
func (r *Repository) CreateProposal(ctx context.Context, proposal entities.Proposal) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := setLockTimeout(tx, r.lockTimeout); err != nil {
			return err
		}
		posting, err := getPosting(tx, proposal.PostingID, true)
		if err != nil {
			return err
		}
		if !posting.IsOpen() {
			return domainerrors.ErrPostingAssigned
		}
		row := proposalModelFromEntity(proposal)
		return tx.Create(&row).Error
	})
	return classifyError(err)
}

// Begin opens a transaction and takes the posting's row lock, waiting at most
// lockTimeout before Postgres cancels with lock_not_available.
func (r *Repository) Begin(ctx context.Context, postingID string) (ports.UnitOfWork, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, classifyError(tx.Error)
	}
	if err := setLockTimeout(tx, r.lockTimeout); err != nil {
		_ = tx.Rollback().Error
		return nil, classifyError(err)
	}
	posting, err := getPosting(tx, postingID, true)
	if err != nil {
		_ = tx.Rollback().Error
		return nil, classifyError(err)
	}
	return &unit{
		tx:          tx,
		postingID:   postingID,
		baseVersion: posting.Version,
		logger:      r.logger,
	}, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, classifyError(err)
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return classifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func getPosting(db *gorm.DB, postingID string, forUpdate bool) (entities.Posting, error) {
	var row postingModel
	query := db
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := query.
		Where("posting_id = ?", postingID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Posting{}, domainerrors.ErrPostingNotFound
		}
		return entities.Posting{}, err
	}
	return row.toEntity(), nil
}

func getProposal(db *gorm.DB, proposalID string) (entities.Proposal, error) {
	var row proposalModel
	err := db.
		Where("proposal_id = ?", proposalID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrProposalNotFound
		}
		return entities.Proposal{}, err
	}
	return row.toEntity(), nil
}

func setLockTimeout(tx *gorm.DB, timeout time.Duration) error {
	// gorm-postgres-enforcer: allow-raw-sql SET does not accept bind parameters
	return tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())).Error
}

func proposalEntities(rows []proposalModel) []entities.Proposal {
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func marshalOutbox(event ports.EventEnvelope) (outboxModel, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return outboxModel{}, err
	}
	return outboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    event.OccurredAt.UTC(),
	}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
