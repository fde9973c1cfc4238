package directory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cache holds the patient → caregiver mapping with a fixed TTL. A
// lookup past the TTL refetches synchronously before answering; if the
// refetch fails and a previous mapping exists, the stale mapping is
// served instead of failing the caller.
type Cache struct {
	client *Client
	ttl    time.Duration
	logger *zap.Logger

	mu          sync.Mutex
	assignments map[string]string
	fetchedAt   time.Time
}

// NewCache creates an empty cache; the first lookup populates it.
func NewCache(client *Client, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// CaregiverFor resolves the caregiver responsible for a patient. The
// second return is false when the patient is unknown, including when
// the very first directory fetch fails.
func (c *Cache) CaregiverFor(ctx context.Context, patientID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.assignments == nil || time.Since(c.fetchedAt) > c.ttl {
		assignments, err := c.client.FetchPatientAssignments(ctx)
		if err != nil {
			// Stale data beats no answer; the next lookup retries.
			c.logger.Warn("Directory refetch failed, serving stale mapping",
				zap.Error(err),
				zap.Time("fetched_at", c.fetchedAt),
			)
		} else {
			c.assignments = assignments
			c.fetchedAt = time.Now()
		}
	}

	caregiverID, ok := c.assignments[patientID]
	return caregiverID, ok
}
