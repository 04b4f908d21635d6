package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "gigflow/contexts/marketplace/hiring-service/application"
	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"
	"gigflow/contexts/marketplace/hiring-service/ports"
)

type CreatePostingCommand struct {
	OwnerID     string
	Title       string
	Description string
	Budget      float64
}

type CreatePostingUseCase struct {
	Postings    ports.PostingWriter
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u CreatePostingUseCase) Execute(ctx context.Context, cmd CreatePostingCommand) (entities.Posting, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.OwnerID) == "" {
		return entities.Posting{}, domainerrors.ErrMissingCaller
	}

	postingID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.Posting{}, err
	}
	now := time.Now().UTC()
	if u.Clock != nil {
		now = u.Clock.Now().UTC()
	}
	posting, err := entities.NewPosting(postingID, cmd.OwnerID, cmd.Title, cmd.Description, cmd.Budget, now)
	if err != nil {
		return entities.Posting{}, err
	}
	if err := u.Postings.CreatePosting(ctx, posting); err != nil {
		logger.Error("create posting failed",
			"event", "create_posting_failed",
			"module", hiringModuleName,
			"layer", "application",
			"owner_id", cmd.OwnerID,
			"error", err.Error(),
		)
		return entities.Posting{}, err
	}

	logger.Info("posting created",
		"event", "posting_created",
		"module", hiringModuleName,
		"layer", "application",
		"posting_id", posting.PostingID,
		"owner_id", posting.OwnerID,
	)
	return posting, nil
}
