package dispatcher

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andhy-leong/MediboxApi/internal/pending"
	"github.com/andhy-leong/MediboxApi/internal/registry"
)

// Sweeper periodically re-sends every pending alert to every connected
// session of its caregiver. Re-sends carry the original AlertID and
// timestamp; clients deduplicate by id. There is deliberately no
// backoff: the sweep repeats unchanged until the alert is acknowledged.
type Sweeper struct {
	store    *pending.Store
	registry *registry.Registry
	interval time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper creates a sweeper with the given re-send interval.
func NewSweeper(store *pending.Store, reg *registry.Registry, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		registry: reg,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.
func (s *Sweeper) Start() {
	go s.run()
}

// Stop halts the sweep loop and waits for it to exit. Independent of
// server shutdown; safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one re-delivery pass over every caregiver with at least
// one open session. One caregiver's delivery trouble never aborts the
// pass for the others.
func (s *Sweeper) Sweep() {
	for _, caregiverID := range s.registry.Caregivers() {
		alerts := s.store.Drain(caregiverID)
		if len(alerts) == 0 {
			continue
		}
		for _, alert := range alerts {
			s.registry.Broadcast(caregiverID, alert)
		}
		s.logger.Debug("Re-sent pending alerts",
			zap.String("caregiver_id", caregiverID),
			zap.Int("alert_count", len(alerts)),
		)
	}
}
