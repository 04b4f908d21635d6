package realtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryLastRegistrationWins(t *testing.T) {
	registry := NewRegistry()
	registry.Register("user-1", "session-a")
	registry.Register("user-1", "session-b")

	sessionID, ok := registry.Lookup("user-1")
	assert.True(t, ok)
	assert.Equal(t, "session-b", sessionID)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryStaleReleaseKeepsNewerSession(t *testing.T) {
	registry := NewRegistry()
	registry.Register("user-1", "session-a")
	registry.Register("user-1", "session-b")

	registry.Unregister("session-a")

	sessionID, ok := registry.Lookup("user-1")
	assert.True(t, ok)
	assert.Equal(t, "session-b", sessionID)

	registry.Unregister("session-b")
	_, ok = registry.Lookup("user-1")
	assert.False(t, ok)
	assert.Equal(t, 0, registry.Len())
}

func TestRegistrySessionRebindsToAnotherUser(t *testing.T) {
	registry := NewRegistry()
	registry.Register("user-1", "session-a")
	registry.Register("user-2", "session-a")

	_, ok := registry.Lookup("user-1")
	assert.False(t, ok)
	sessionID, ok := registry.Lookup("user-2")
	assert.True(t, ok)
	assert.Equal(t, "session-a", sessionID)
}

func TestRegistryIgnoresEmptyIdentifiers(t *testing.T) {
	registry := NewRegistry()
	registry.Register("", "session-a")
	registry.Register("user-1", "")
	registry.Unregister("unknown")
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryConcurrentChurn(t *testing.T) {
	registry := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session := fmt.Sprintf("session-%d", i)
			registry.Register("user-1", session)
			registry.Unregister(session)
		}()
	}
	wg.Wait()

	registry.Register("user-1", "final")
	sessionID, ok := registry.Lookup("user-1")
	assert.True(t, ok)
	assert.Equal(t, "final", sessionID)
	assert.Equal(t, 1, registry.Len())
}
