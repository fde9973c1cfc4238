package dispatcher

import (
	"go.uber.org/zap"

	"github.com/andhy-leong/MediboxApi/internal/models"
	"github.com/andhy-leong/MediboxApi/internal/pending"
	"github.com/andhy-leong/MediboxApi/internal/registry"
)

// Dispatcher queues an alert and attempts immediate delivery to every
// connected session of the target caregiver.
type Dispatcher struct {
	store    *pending.Store
	registry *registry.Registry
	logger   *zap.Logger
}

// New creates a dispatcher over the given store and session registry.
func New(store *pending.Store, reg *registry.Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		registry: reg,
		logger:   logger,
	}
}

// Dispatch enqueues the alert unconditionally, then fans it out to the
// caregiver's connected sessions. It returns false when no session was
// connected; the alert stays queued for flush-on-connect or the next
// sweep. True means a send was attempted on at least one open socket,
// not that the caregiver acknowledged.
func (d *Dispatcher) Dispatch(caregiverID string, alert models.Alert) bool {
	queued := d.store.Enqueue(caregiverID, alert)

	sent := d.registry.Broadcast(caregiverID, queued)
	if sent == 0 {
		d.logger.Info("No session connected, alert held pending",
			zap.String("caregiver_id", caregiverID),
			zap.String("alert_id", queued.AlertID),
		)
		return false
	}

	d.logger.Info("Alert delivered",
		zap.String("caregiver_id", caregiverID),
		zap.String("alert_id", queued.AlertID),
		zap.Int("session_count", sent),
	)
	return true
}
