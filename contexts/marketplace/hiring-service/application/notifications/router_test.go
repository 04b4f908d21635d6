package notifications

import (
	"context"
	"errors"
	"testing"

	"gigflow/contexts/marketplace/hiring-service/ports"

	"github.com/stretchr/testify/assert"
)

type mapRegistry map[string]string

func (m mapRegistry) Register(userID string, sessionID string) { m[userID] = sessionID }
func (m mapRegistry) Unregister(sessionID string) {
	for user, session := range m {
		if session == sessionID {
			delete(m, user)
		}
	}
}
func (m mapRegistry) Lookup(userID string) (string, bool) {
	sessionID, ok := m[userID]
	return sessionID, ok
}

type pushed struct {
	sessionID string
	event     ports.Notification
}

type stubPusher struct {
	calls []pushed
	err   error
}

func (p *stubPusher) Push(sessionID string, event ports.Notification) error {
	p.calls = append(p.calls, pushed{sessionID: sessionID, event: event})
	return p.err
}

func TestNotifyPushesToLiveSession(t *testing.T) {
	pusher := &stubPusher{}
	router := Router{Sessions: mapRegistry{"bidder-1": "session-9"}, Pusher: pusher}

	router.Notify(context.Background(), "bidder-1", ports.Notification{Type: "hired", ProposalID: "proposal-1"})

	assert.Equal(t, []pushed{{sessionID: "session-9", event: ports.Notification{Type: "hired", ProposalID: "proposal-1"}}}, pusher.calls)
}

func TestNotifyDropsOfflineUsers(t *testing.T) {
	pusher := &stubPusher{}
	router := Router{Sessions: mapRegistry{}, Pusher: pusher}

	router.Notify(context.Background(), "bidder-1", ports.Notification{Type: "hired"})

	assert.Empty(t, pusher.calls)
}

func TestNotifyDoesNotRetryFailedPush(t *testing.T) {
	pusher := &stubPusher{err: errors.New("queue full")}
	router := Router{Sessions: mapRegistry{"bidder-1": "session-9"}, Pusher: pusher}

	router.Notify(context.Background(), "bidder-1", ports.Notification{Type: "hired"})

	assert.Len(t, pusher.calls, 1)
}
