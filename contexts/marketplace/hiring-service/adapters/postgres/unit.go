package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"
	"gigflow/contexts/marketplace/hiring-service/ports"

	"gorm.io/gorm"
)

// unit wraps one transaction that already holds the posting's row lock.
// Writes execute immediately inside the transaction and stay invisible to
// other sessions until Commit.
type unit struct {
	tx          *gorm.DB
	postingID   string
	baseVersion int64
	bumped      bool
	dirty       bool
	done        bool
	logger      *slog.Logger
}

func (u *unit) GetPosting(ctx context.Context, postingID string) (entities.Posting, error) {
	if u.done {
		return entities.Posting{}, domainerrors.ErrUnitClosed
	}
	if postingID != u.postingID {
		return entities.Posting{}, domainerrors.ErrUnitScope
	}
	posting, err := getPosting(u.tx.WithContext(ctx), postingID, false)
	return posting, classifyError(err)
}

func (u *unit) GetProposal(ctx context.Context, proposalID string) (entities.Proposal, error) {
	if u.done {
		return entities.Proposal{}, domainerrors.ErrUnitClosed
	}
	proposal, err := getProposal(u.tx.WithContext(ctx), proposalID)
	if err != nil {
		return entities.Proposal{}, classifyError(err)
	}
	if proposal.PostingID != u.postingID {
		return entities.Proposal{}, domainerrors.ErrUnitScope
	}
	return proposal, nil
}

// UpdatePostingStatus writes the status together with the version CAS.
func (u *unit) UpdatePostingStatus(
	ctx context.Context,
	postingID string,
	status entities.PostingStatus,
	updatedAt time.Time,
) error {
	if u.done {
		return domainerrors.ErrUnitClosed
	}
	if postingID != u.postingID {
		return domainerrors.ErrUnitScope
	}
	updates := map[string]any{
		"status":     string(status),
		"updated_at": updatedAt.UTC(),
	}
	if err := u.casPosting(ctx, updates); err != nil {
		return err
	}
	u.dirty = true
	return nil
}

func (u *unit) UpdateProposalStatus(
	ctx context.Context,
	proposalID string,
	status entities.ProposalStatus,
	updatedAt time.Time,
) error {
	if u.done {
		return domainerrors.ErrUnitClosed
	}
	result := u.tx.WithContext(ctx).
		Model(&proposalModel{}).
		Where("proposal_id = ? AND posting_id = ?", proposalID, u.postingID).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return classifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrProposalNotFound
	}
	u.dirty = true
	return nil
}

func (u *unit) TransitionProposals(
	ctx context.Context,
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
	result := u.tx.WithContext(ctx).
		Model(&proposalModel{}).
		Where("posting_id = ? AND status = ? AND proposal_id <> ?", postingID, string(from), exceptProposalID).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return 0, classifyError(result.Error)
	}
	if result.RowsAffected > 0 {
		u.dirty = true
	}
	return int(result.RowsAffected), nil
}

func (u *unit) ReviseProposal(ctx context.Context, proposal entities.Proposal) error {
	if u.done {
		return domainerrors.ErrUnitClosed
	}
	result := u.tx.WithContext(ctx).
		Model(&proposalModel{}).
		Where("proposal_id = ? AND posting_id = ?", proposal.ProposalID, u.postingID).
		Updates(map[string]any{
			"message":    proposal.Message,
			"price":      proposal.Price,
			"updated_at": proposal.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return classifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrProposalNotFound
	}
	u.dirty = true
	return nil
}

func (u *unit) DeleteProposal(ctx context.Context, proposalID string) error {
	if u.done {
		return domainerrors.ErrUnitClosed
	}
	result := u.tx.WithContext(ctx).
		Where("proposal_id = ? AND posting_id = ?", proposalID, u.postingID).
		Delete(&proposalModel{})
	if result.Error != nil {
		return classifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrProposalNotFound
	}
	u.dirty = true
	return nil
}

func (u *unit) AppendOutbox(ctx context.Context, event ports.EventEnvelope) error {
	if u.done {
		return domainerrors.ErrUnitClosed
	}
	row, err := marshalOutbox(event)
	if err != nil {
		return err
	}
	if err := u.tx.WithContext(ctx).Create(&row).Error; err != nil {
		return classifyError(err)
	}
	return nil
}

// Commit bumps the aggregate version if only proposals changed, then commits.
// Any failure rolls the transaction back.
func (u *unit) Commit(ctx context.Context) error {
	if u.done {
		return domainerrors.ErrUnitClosed
	}
	if u.dirty && !u.bumped {
		if err := u.casPosting(ctx, map[string]any{}); err != nil {
			_ = u.Abort(ctx)
			return err
		}
	}
	u.done = true
	if err := u.tx.Commit().Error; err != nil {
		_ = u.tx.Rollback().Error
		u.logger.Error("posting unit commit failed",
			"event", "postgres_unit_commit_failed",
			"module", "marketplace/hiring-service",
			"layer", "adapter",
			"posting_id", u.postingID,
			"error", err.Error(),
		)
		return classifyError(err)
	}
	return nil
}

func (u *unit) Abort(_ context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback().Error; err != nil && !errors.Is(err, gorm.ErrInvalidTransaction) {
		return classifyError(err)
	}
	return nil
}

func (u *unit) casPosting(ctx context.Context, updates map[string]any) error {
	expected := u.baseVersion
	if u.bumped {
		expected = u.baseVersion + 1
	}
	updates["version"] = u.baseVersion + 1
	result := u.tx.WithContext(ctx).
		Model(&postingModel{}).
		Where("posting_id = ? AND version = ?", u.postingID, expected).
		Updates(updates)
	if err := u.checkCAS(result); err != nil {
		return err
	}
	u.bumped = true
	return nil
}

func (u *unit) checkCAS(result *gorm.DB) error {
	if result.Error != nil {
		return classifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrUnitContention
	}
	return nil
}
