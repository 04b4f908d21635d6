package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	application "gigflow/contexts/marketplace/hiring-service/application"
	"gigflow/contexts/marketplace/hiring-service/ports"
)

const defaultAuditConsumerGroup = "hiring-service-audit-cg"

// HiredAuditConsumer records every relayed proposal.hired event in the
// structured log.
type HiredAuditConsumer struct {
	Subscriber    ports.EventSubscriber
	Topic         string
	ConsumerGroup string
	Logger        *slog.Logger
}

type hiredPayload struct {
	PostingID     string  `json:"posting_id"`
	ProposalID    string  `json:"proposal_id"`
	OwnerID       string  `json:"owner_id"`
	SubmitterID   string  `json:"submitter_id"`
	Price         float64 `json:"price"`
	RejectedCount int     `json:"rejected_count"`
}

func (c HiredAuditConsumer) Start(ctx context.Context) error {
	topic := c.Topic
	if topic == "" {
		topic = "proposal.hired"
	}
	group := c.ConsumerGroup
	if group == "" {
		group = defaultAuditConsumerGroup
	}
	return c.Subscriber.Subscribe(ctx, topic, group, c.handle)
}

func (c HiredAuditConsumer) handle(_ context.Context, event ports.EventEnvelope) error {
	var payload hiredPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.EventType, err)
	}
	if payload.ProposalID == "" || payload.PostingID == "" {
		return fmt.Errorf("event %s missing posting or proposal id", event.EventID)
	}

	application.ResolveLogger(c.Logger).Info("proposal hired",
		"event", "hiring_proposal_hired_observed",
		"module", "marketplace/hiring-service",
		"layer", "worker",
		"event_id", event.EventID,
		"posting_id", payload.PostingID,
		"proposal_id", payload.ProposalID,
		"owner_id", payload.OwnerID,
		"submitter_id", payload.SubmitterID,
		"price", payload.Price,
		"rejected_count", payload.RejectedCount,
	)
	return nil
}
