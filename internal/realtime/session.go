package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/auth"
	"marketplace/internal/domain"
)

// Session is one authenticated connection. Its channel set is owned by the
// Registry and only touched under the registry lock.
type Session struct {
	id          string
	principal   auth.Principal
	connectedAt time.Time
	channels    map[string]struct{}

	outbox    chan domain.Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a session whose outbox holds up to buffer pending events.
func NewSession(p auth.Principal, buffer int) *Session {
	if buffer <= 0 {
		buffer = 1
	}
	return &Session{
		id:          uuid.NewString(),
		principal:   p,
		connectedAt: time.Now().UTC(),
		channels:    make(map[string]struct{}),
		outbox:      make(chan domain.Message, buffer),
		done:        make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Principal() auth.Principal { return s.principal }

func (s *Session) Outbox() <-chan domain.Message { return s.outbox }

// Done is closed once the session has been removed from the registry.
func (s *Session) Done() <-chan struct{} { return s.done }

// enqueue queues msg without blocking. It reports false when the session is
// closed or its outbox is full.
func (s *Session) enqueue(msg domain.Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.outbox <- msg:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}
