package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"gigflow/contexts/marketplace/hiring-service/ports"
)

const memberInboxSize = 128

// Bus delivers envelopes inside the process with consumer-group semantics:
// every group subscribed to a topic sees each event once, handed to one of
// its members in rotation. Brokers are kept for diagnostics only.
type Bus struct {
	mu       sync.Mutex
	topics   map[string]map[string]*consumerGroup
	brokers  []string
	logger   *slog.Logger
	memberID uint64
}

type consumerGroup struct {
	name    string
	members []*groupMember
	next    int
}

type groupMember struct {
	id    uint64
	inbox chan ports.EventEnvelope
}

func NewBus(brokers []string, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		topics:  make(map[string]map[string]*consumerGroup),
		brokers: brokers,
		logger:  logger,
	}
}

// Publish hands event to one member of every group subscribed to topic. A
// member with a full inbox is skipped in favour of the next one; the event is
// dropped for a group only when all of its members are backed up.
func (b *Bus) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	groups := b.topics[topic]
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	candidates := make([][]*groupMember, 0, len(names))
	for _, name := range names {
		candidates = append(candidates, groups[name].rotate())
	}
	b.mu.Unlock()

	delivered := 0
	for i, members := range candidates {
		if offer(members, event) {
			delivered++
			continue
		}
		b.logger.Warn("consumer group backed up, event dropped",
			"event", "bus_group_backlogged",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"consumer_group", names[i],
			"event_id", event.EventID,
		)
	}

	b.logger.Debug("event published",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"groups", len(names),
		"delivered", delivered,
		"brokers", strings.Join(b.brokers, ","),
	)
	return nil
}

// Subscribe joins consumerGroup on topic until ctx is done. An empty group
// name gets a private group, so the handler sees every event. Handler errors
// are logged and the event is not redelivered.
func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	if handler == nil {
		return fmt.Errorf("subscribe %s: nil handler", topic)
	}
	member := b.join(topic, strings.TrimSpace(consumerGroup))

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.leave(topic, consumerGroup, member)
				return
			case event := <-member.inbox:
				if err := handler(ctx, event); err != nil {
					b.logger.Error("consumer handler failed",
						"event", "bus_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (b *Bus) join(topic string, name string) *groupMember {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.memberID++
	member := &groupMember{id: b.memberID, inbox: make(chan ports.EventEnvelope, memberInboxSize)}
	if name == "" {
		name = fmt.Sprintf("private-%d", member.id)
	}
	groups := b.topics[topic]
	if groups == nil {
		groups = make(map[string]*consumerGroup)
		b.topics[topic] = groups
	}
	group := groups[name]
	if group == nil {
		group = &consumerGroup{name: name}
		groups[name] = group
	}
	group.members = append(group.members, member)
	return member
}

// leave removes member from its group and hands anything still queued for it
// to the remaining members.
func (b *Bus) leave(topic string, name string, member *groupMember) {
	b.mu.Lock()
	var remaining []*groupMember
	for groupName, group := range b.topics[topic] {
		if !group.remove(member) {
			continue
		}
		if len(group.members) == 0 {
			delete(b.topics[topic], groupName)
		} else {
			remaining = group.rotate()
		}
		break
	}
	if len(b.topics[topic]) == 0 {
		delete(b.topics, topic)
	}
	b.mu.Unlock()

	for {
		select {
		case event := <-member.inbox:
			if len(remaining) > 0 && offer(remaining, event) {
				continue
			}
			b.logger.Warn("event lost on consumer leave",
				"event", "bus_member_leave_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"consumer_group", name,
				"event_id", event.EventID,
			)
		default:
			return
		}
	}
}

func (b *Bus) groupSize(topic string, name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if group := b.topics[topic][name]; group != nil {
		return len(group.members)
	}
	return 0
}

// rotate returns the members starting at the group's cursor and advances it.
// Callers hold Bus.mu.
func (g *consumerGroup) rotate() []*groupMember {
	n := len(g.members)
	if n == 0 {
		return nil
	}
	start := g.next % n
	g.next = (start + 1) % n
	out := make([]*groupMember, 0, n)
	out = append(out, g.members[start:]...)
	return append(out, g.members[:start]...)
}

func (g *consumerGroup) remove(target *groupMember) bool {
	for i, member := range g.members {
		if member == target {
			g.members = append(g.members[:i], g.members[i+1:]...)
			if g.next > i {
				g.next--
			}
			return true
		}
	}
	return false
}

func offer(members []*groupMember, event ports.EventEnvelope) bool {
	for _, member := range members {
		select {
		case member.inbox <- event:
			return true
		default:
		}
	}
	return false
}
