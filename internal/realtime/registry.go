package realtime

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
	"marketplace/internal/logger"
)

// Registry tracks connected sessions and the channels they subscribe to.
// All mutation goes through its methods.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	channels map[string]map[string]*Session
	log      *logrus.Entry
}

func NewRegistry(log logrus.FieldLogger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		channels: make(map[string]map[string]*Session),
		log:      logger.Component(log, "registry"),
	}
}

// Register adds s and subscribes it to the channel named after its principal.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	r.sessions[s.id] = s
	r.subscribe(s, s.principal.ID)
	total := len(r.sessions)
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"session_id":   s.id,
		"principal_id": s.principal.ID,
		"sessions":     total,
	}).Info("session registered")
}

// Deregister removes s from every channel and closes it. Safe to call twice.
func (r *Registry) Deregister(s *Session) {
	r.mu.Lock()
	_, known := r.sessions[s.id]
	for ch := range s.channels {
		r.unsubscribe(s, ch)
	}
	delete(r.sessions, s.id)
	total := len(r.sessions)
	r.mu.Unlock()

	s.close()

	if known {
		r.log.WithFields(logrus.Fields{
			"session_id":   s.id,
			"principal_id": s.principal.ID,
			"sessions":     total,
		}).Info("session deregistered")
	}
}

// Join subscribes s to channel. A session may only join its own principal's
// channel; any other request fails with UNAUTHORIZED and changes nothing.
func (r *Registry) Join(s *Session, channel string) error {
	if channel != s.principal.ID {
		r.log.WithFields(logrus.Fields{
			"session_id":   s.id,
			"principal_id": s.principal.ID,
			"channel":      channel,
		}).Warn("join to foreign channel refused")
		return domain.Unauthorized("cannot join channel " + channel)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.id]; ok {
		r.subscribe(s, channel)
	}
	return nil
}

// Leave unsubscribes s from channel. It is a no-op when s was not subscribed.
func (r *Registry) Leave(s *Session, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribe(s, channel)
}

// Publish queues msg for every session subscribed to channel and returns how
// many accepted it. Sessions with a full outbox miss the event.
func (r *Registry) Publish(channel string, msg domain.Message) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, s := range r.channels[channel] {
		if r.deliver(s, msg) {
			delivered++
		}
	}
	return delivered
}

func (r *Registry) PublishAll(msg domain.Message) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, s := range r.sessions {
		if r.deliver(s, msg) {
			delivered++
		}
	}
	return delivered
}

// Sessions returns a snapshot sorted by connection time.
func (r *Registry) Sessions() []domain.SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, domain.SessionInfo{
			ID:          s.id,
			PrincipalID: s.principal.ID,
			Role:        string(s.principal.Role),
			Channels:    r.channelsOf(s),
			ConnectedAt: s.connectedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.Before(out[j].ConnectedAt) })
	return out
}

// Channels returns the channels s is subscribed to, sorted.
func (r *Registry) Channels(s *Session) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channelsOf(s)
}

// CloseAll deregisters every session.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	for _, s := range all {
		r.Deregister(s)
	}
}

func (r *Registry) deliver(s *Session, msg domain.Message) bool {
	if s.enqueue(msg) {
		return true
	}
	r.log.WithFields(logrus.Fields{
		"session_id": s.id,
		"event":      msg.Event,
	}).Warn("session outbox full, event dropped")
	return false
}

// callers hold r.mu for writing
func (r *Registry) subscribe(s *Session, channel string) {
	set, ok := r.channels[channel]
	if !ok {
		set = make(map[string]*Session)
		r.channels[channel] = set
	}
	set[s.id] = s
	s.channels[channel] = struct{}{}
}

func (r *Registry) unsubscribe(s *Session, channel string) {
	delete(s.channels, channel)
	set, ok := r.channels[channel]
	if !ok {
		return
	}
	delete(set, s.id)
	if len(set) == 0 {
		delete(r.channels, channel)
	}
}

func (r *Registry) channelsOf(s *Session) []string {
	out := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}
