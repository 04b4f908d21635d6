package workers_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"gigflow/contexts/marketplace/hiring-service/application/workers"
	"gigflow/contexts/marketplace/hiring-service/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loopbackBus struct {
	topic    string
	group    string
	handlers []func(context.Context, ports.EventEnvelope) error
}

func (b *loopbackBus) Subscribe(
	_ context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	b.topic = topic
	b.group = consumerGroup
	b.handlers = append(b.handlers, handler)
	return nil
}

func (b *loopbackBus) Publish(ctx context.Context, _ string, event ports.EventEnvelope) error {
	for _, handler := range b.handlers {
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func TestHiredAuditConsumerLogsRelayedEvent(t *testing.T) {
	store := hiredStore(t)
	bus := &loopbackBus{}
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	consumer := workers.HiredAuditConsumer{Subscriber: bus, Logger: logger}
	require.NoError(t, consumer.Start(context.Background()))
	assert.Equal(t, "proposal.hired", bus.topic)
	assert.Equal(t, "hiring-service-audit-cg", bus.group)

	relay := workers.OutboxRelay{Outbox: store, Publisher: bus, Clock: store}
	require.NoError(t, relay.RunOnce(context.Background()))

	assert.Contains(t, logs.String(), `"event":"hiring_proposal_hired_observed"`)
	assert.Contains(t, logs.String(), `"proposal_id":"proposal-1"`)
	assert.Contains(t, logs.String(), `"submitter_id":"bidder-1"`)
}

func TestHiredAuditConsumerRejectsMalformedPayload(t *testing.T) {
	bus := &loopbackBus{}
	require.NoError(t, workers.HiredAuditConsumer{Subscriber: bus}.Start(context.Background()))

	err := bus.Publish(context.Background(), "proposal.hired", ports.EventEnvelope{
		EventID:   "evt-1",
		EventType: "proposal.hired",
		Data:      []byte(`{"posting_id":"posting-1"}`),
	})
	assert.Error(t, err)

	err = bus.Publish(context.Background(), "proposal.hired", ports.EventEnvelope{
		EventID:   "evt-2",
		EventType: "proposal.hired",
		Data:      []byte(`not json`),
	})
	assert.Error(t, err)
}
