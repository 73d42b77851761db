package realtime

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"marketplace/internal/auth"
	"marketplace/internal/domain"
	"marketplace/internal/logger"
)

func newTestSession(id string, buffer int) *Session {
	return NewSession(auth.Principal{ID: id, Role: auth.RoleClient}, buffer)
}

func drain(s *Session) []domain.Message {
	var out []domain.Message
	for {
		select {
		case msg := <-s.Outbox():
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestRegistry_RegisterJoinsOwnChannel(t *testing.T) {
	r := NewRegistry(logger.Discard())
	s := newTestSession("A", 4)

	r.Register(s)

	assert.Equal(t, []string{"A"}, r.Channels(s))
	assert.Equal(t, 1, r.Publish("A", domain.Message{Event: "ping"}))
	assert.Equal(t, 0, r.Publish("B", domain.Message{Event: "ping"}))
}

func TestRegistry_JoinForeignChannelRefused(t *testing.T) {
	r := NewRegistry(logger.Discard())
	s := newTestSession("A", 4)
	r.Register(s)

	err := r.Join(s, "B")

	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, []string{"A"}, r.Channels(s))
	assert.Equal(t, 0, r.Publish("B", domain.Message{Event: "x"}))
}

func TestRegistry_LeaveThenRejoin(t *testing.T) {
	r := NewRegistry(logger.Discard())
	s := newTestSession("A", 4)
	r.Register(s)

	r.Leave(s, "A")
	assert.Empty(t, r.Channels(s))
	assert.Equal(t, 0, r.Publish("A", domain.Message{Event: "x"}))

	// leaving a channel never joined is harmless
	r.Leave(s, "Z")

	require.NoError(t, r.Join(s, "A"))
	assert.Equal(t, []string{"A"}, r.Channels(s))
}

func TestRegistry_IsolationBetweenStorefronts(t *testing.T) {
	r := NewRegistry(logger.Discard())
	a1 := newTestSession("A", 4)
	a2 := newTestSession("A", 4)
	b := newTestSession("B", 4)
	for _, s := range []*Session{a1, a2, b} {
		r.Register(s)
	}

	assert.Equal(t, 2, r.Publish("A", domain.Message{Event: "only-a"}))

	assert.Len(t, drain(a1), 1)
	assert.Len(t, drain(a2), 1)
	assert.Empty(t, drain(b))

	assert.Equal(t, 3, r.PublishAll(domain.Message{Event: "all"}))
	assert.Len(t, drain(b), 1)
}

func TestRegistry_DeregisterStopsDelivery(t *testing.T) {
	r := NewRegistry(logger.Discard())
	s := newTestSession("A", 4)
	r.Register(s)

	r.Deregister(s)

	select {
	case <-s.Done():
	default:
		t.Fatal("session not closed")
	}
	assert.Equal(t, 0, r.Publish("A", domain.Message{Event: "late"}))
	assert.Equal(t, 0, r.PublishAll(domain.Message{Event: "late"}))
	assert.Empty(t, r.Sessions())

	// second deregister is a no-op
	r.Deregister(s)
}

func TestRegistry_FullOutboxDropsWithoutBlocking(t *testing.T) {
	r := NewRegistry(logger.Discard())
	slow := newTestSession("A", 1)
	fast := newTestSession("A", 8)
	r.Register(slow)
	r.Register(fast)

	assert.Equal(t, 2, r.Publish("A", domain.Message{Event: "1"}))
	assert.Equal(t, 1, r.Publish("A", domain.Message{Event: "2"}))

	got := drain(fast)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Event)
	assert.Equal(t, "2", got[1].Event)
	assert.Len(t, drain(slow), 1)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(logger.Discard())

	var g errgroup.Group
	for i := range 50 {
		g.Go(func() error {
			s := newTestSession(fmt.Sprintf("store-%d", i%5), 64)
			r.Register(s)
			r.Publish(s.Principal().ID, domain.Message{Event: "x"})
			_ = r.Join(s, "store-0")
			r.Leave(s, s.Principal().ID)
			r.PublishAll(domain.Message{Event: "y"})
			r.Deregister(s)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Empty(t, r.Sessions())
}

func TestRegistry_SessionsSnapshot(t *testing.T) {
	r := NewRegistry(logger.Discard())
	s := NewSession(auth.Principal{ID: "A", Role: auth.RoleAdmin}, 1)
	r.Register(s)

	sessions := r.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, s.ID(), sessions[0].ID)
	assert.Equal(t, "A", sessions[0].PrincipalID)
	assert.Equal(t, "ADMIN", sessions[0].Role)
	assert.Equal(t, []string{"A"}, sessions[0].Channels)
}
