package pending

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andhy-leong/MediboxApi/internal/models"
)

// queue holds one caregiver's unacknowledged alerts in insertion order.
type queue struct {
	order  []string
	alerts map[string]models.Alert
}

// Store is the in-memory pending-alert queue. An alert stays in the
// store until some session of its caregiver acknowledges its id. The
// store is not durable: a process restart drops the queue.
type Store struct {
	mu     sync.Mutex
	queues map[string]*queue
	logger *zap.Logger
}

// NewStore creates an empty pending-alert store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		queues: make(map[string]*queue),
		logger: logger,
	}
}

// Enqueue assigns a fresh AlertID and creation timestamp, stores the
// alert under the caregiver, and returns the completed alert.
func (s *Store) Enqueue(caregiverID string, alert models.Alert) models.Alert {
	alert.AlertID = uuid.NewString()
	alert.Timestamp = time.Now()

	s.mu.Lock()
	q, ok := s.queues[caregiverID]
	if !ok {
		q = &queue{alerts: make(map[string]models.Alert)}
		s.queues[caregiverID] = q
	}
	q.order = append(q.order, alert.AlertID)
	q.alerts[alert.AlertID] = alert
	pendingCount := len(q.alerts)
	s.mu.Unlock()

	s.logger.Info("Alert queued",
		zap.String("caregiver_id", caregiverID),
		zap.String("alert_id", alert.AlertID),
		zap.String("alert_type", alert.AlertType),
		zap.Int("pending_count", pendingCount),
	)

	return alert
}

// Acknowledge removes the alert if present. Duplicate or unknown ids
// are a harmless no-op.
func (s *Store) Acknowledge(caregiverID, alertID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[caregiverID]
	if !ok {
		return
	}
	if _, ok := q.alerts[alertID]; !ok {
		return
	}
	delete(q.alerts, alertID)
	for i, id := range q.order {
		if id == alertID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	if len(q.alerts) == 0 {
		delete(s.queues, caregiverID)
	}

	s.logger.Info("Alert acknowledged",
		zap.String("caregiver_id", caregiverID),
		zap.String("alert_id", alertID),
	)
}

// Drain returns a snapshot of the caregiver's pending alerts in
// insertion order. Acknowledgments landing after the snapshot is taken
// do not affect the returned slice.
func (s *Store) Drain(caregiverID string) []models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[caregiverID]
	if !ok {
		return nil
	}
	out := make([]models.Alert, 0, len(q.alerts))
	for _, id := range q.order {
		out = append(out, q.alerts[id])
	}
	return out
}

// Count returns the number of pending alerts for the caregiver.
func (s *Store) Count(caregiverID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[caregiverID]
	if !ok {
		return 0
	}
	return len(q.alerts)
}
