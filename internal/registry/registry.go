package registry

import (
	"sync"

	"go.uber.org/zap"
)

// Session is one live caregiver connection. Send must be safe for
// concurrent use; the registry never serializes sends itself.
type Session interface {
	Send(v any) error
	Close() error
}

// Registry tracks connected sessions per caregiver. It holds a
// non-owning association: sessions are created and closed by the
// transport layer and only referenced here.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[Session]struct{}
	logger   *zap.Logger
}

// New creates an empty session registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]map[Session]struct{}),
		logger:   logger,
	}
}

// Register adds a session under the caregiver. Visible to Broadcast
// immediately.
func (r *Registry) Register(caregiverID string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[caregiverID]
	if !ok {
		set = make(map[Session]struct{})
		r.sessions[caregiverID] = set
	}
	set[s] = struct{}{}

	r.logger.Info("Caregiver session registered",
		zap.String("caregiver_id", caregiverID),
		zap.Int("session_count", len(set)),
	)
}

// Unregister removes a session. Removing an absent session is a no-op.
// The caregiver key is dropped once its set is empty.
func (r *Registry) Unregister(caregiverID string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[caregiverID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.sessions, caregiverID)
	}

	r.logger.Info("Caregiver session unregistered",
		zap.String("caregiver_id", caregiverID),
		zap.Int("session_count", len(set)),
	)
}

// Broadcast sends v to every session of the caregiver and returns the
// number of sessions it attempted. A failed send is logged and does not
// stop delivery to sibling sessions.
func (r *Registry) Broadcast(caregiverID string, v any) int {
	r.mu.RLock()
	targets := make([]Session, 0, len(r.sessions[caregiverID]))
	for s := range r.sessions[caregiverID] {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	for _, s := range targets {
		if err := s.Send(v); err != nil {
			r.logger.Warn("Failed to send to caregiver session",
				zap.String("caregiver_id", caregiverID),
				zap.Error(err),
			)
		}
	}

	return len(targets)
}

// Caregivers returns the ids of caregivers with at least one open session.
func (r *Registry) Caregivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Summarize returns connected session counts per caregiver.
func (r *Registry) Summarize() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(r.sessions))
	for id, set := range r.sessions {
		counts[id] = len(set)
	}
	return counts
}

// CloseAll closes every registered session and empties the registry.
// Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	var targets []Session
	for _, set := range r.sessions {
		for s := range set {
			targets = append(targets, s)
		}
	}
	r.sessions = make(map[string]map[Session]struct{})
	r.mu.Unlock()

	for _, s := range targets {
		if err := s.Close(); err != nil {
			r.logger.Debug("Failed to close session", zap.Error(err))
		}
	}
}
