// internal/event/nats.go
// Package event provides NATS JetStream implementation for event publishing.
// It streams collectible lifecycle events so downstream displays and audit
// consumers can react to booth activity in real time.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/badaiwinata/Proof-of-Vibes/internal/model"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Publisher interface defines the event publishing operations required by the
// Proof of Vibes service.
type Publisher interface {
	// Collectible lifecycle events
	PublishCollectibleCreated(ctx context.Context, c model.Collectible) error
	PublishCollectibleClaimed(ctx context.Context, c model.Collectible) error

	// Edition fanout events (one per batch, not per edition)
	PublishEditionsCreated(ctx context.Context, collectionID string, editions []model.Collectible) error

	// Close closes the publisher connection
	Close() error
}

// noop is a no-op implementation of Publisher for when NATS is not configured.
// It implements all Publisher methods but does nothing, allowing the service
// to function without event streaming when NATS is not available.
type noop struct{}

// Close implements Publisher
func (n *noop) Close() error { return nil }

// PublishCollectibleCreated implements Publisher
func (n *noop) PublishCollectibleCreated(ctx context.Context, c model.Collectible) error {
	return nil
}

// PublishCollectibleClaimed implements Publisher
func (n *noop) PublishCollectibleClaimed(ctx context.Context, c model.Collectible) error {
	return nil
}

// PublishEditionsCreated implements Publisher
func (n *noop) PublishEditionsCreated(ctx context.Context, collectionID string, editions []model.Collectible) error {
	return nil
}

// NewNoopPublisher returns a publisher that drops all events. Used in tests
// and when event streaming is disabled.
func NewNoopPublisher() Publisher { return &noop{} }

// natsPub is the NATS JetStream implementation of Publisher.
// It connects to a NATS server and publishes events to JetStream streams.
type natsPub struct {
	nc *nats.Conn            // NATS connection
	js nats.JetStreamContext // JetStream context for stream operations

	// Deduplication fields
	dedup map[string]time.Time // Map of dedup keys to last publish time
	mutex sync.RWMutex         // Mutex for thread-safe access to the dedup map
}

// NewPublisherFromEnv creates a new publisher based on environment configuration.
// It reads the POV_NATS_URL environment variable to determine if NATS should be
// used. If NATS is not configured or connection fails, it returns a no-op
// publisher so the booth keeps working without event streaming.
// Returns:
//   - Publisher: Either a NATS publisher or a no-op publisher
func NewPublisherFromEnv() Publisher {
	url := os.Getenv("POV_NATS_URL")
	if url == "" {
		return &noop{}
	}

	nc, err := nats.Connect(url)
	if err != nil {
		slog.Warn("NATS connect failed, using noop publisher", "error", err)
		return &noop{}
	}

	js, err := nc.JetStream()
	if err != nil {
		slog.Warn("NATS JetStream context creation failed, using noop publisher", "error", err)
		nc.Close()
		return &noop{}
	}

	if err := initStreams(js); err != nil {
		slog.Warn("NATS stream initialization failed, using noop publisher", "error", err)
		nc.Close()
		return &noop{}
	}

	return &natsPub{
		nc:    nc,
		js:    js,
		dedup: make(map[string]time.Time),
	}
}

// initStreams initializes the required NATS streams.
// A single POV_COLLECTIBLES stream carries all collectible lifecycle events.
func initStreams(js nats.JetStreamContext) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:      "POV_COLLECTIBLES",                // Stream name
		Subjects:  []string{"pov.collectibles.*"},    // Subjects pattern for collectible events
		Retention: nats.LimitsPolicy,                 // Retention policy
		MaxAge:    24 * time.Hour,                    // Keep events for 24 hours
		Discard:   nats.DiscardOld,                   // Discard old messages when limits reached
		Storage:   nats.FileStorage,                  // Use file storage for persistence
	})
	if err != nil {
		return fmt.Errorf("failed to create POV_COLLECTIBLES stream: %w", err)
	}

	return nil
}

// EventEnvelope represents the standard event envelope structure.
// All events published to NATS are wrapped in this envelope for consistency.
type EventEnvelope struct {
	Type          string      `json:"type"`          // Event type identifier
	Version       string      `json:"version"`       // Event schema version
	OccurredAt    time.Time   `json:"occurredAt"`    // When the event occurred
	CorrelationID string      `json:"correlationId"` // Correlation ID for tracing
	Payload       interface{} `json:"payload"`       // Event-specific data
}

// Close closes the NATS connection.
func (p *natsPub) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// shouldDedup checks if an event should be deduplicated based on the 2-minute window.
func (p *natsPub) shouldDedup(key string) bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if lastTime, exists := p.dedup[key]; exists {
		return time.Since(lastTime) < 2*time.Minute
	}

	return false
}

// updateDedup updates the deduplication map with the current time for a given key.
// This should be called after successfully publishing an event.
func (p *natsPub) updateDedup(key string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	// Clean up old entries to prevent memory leaks
	cutoff := time.Now().Add(-5 * time.Minute)
	for k, t := range p.dedup {
		if t.Before(cutoff) {
			delete(p.dedup, k)
		}
	}

	p.dedup[key] = time.Now()
}

// publish wraps the payload in an envelope and sends it to JetStream.
func (p *natsPub) publish(subject string, eventType string, payload interface{}) error {
	envelope := EventEnvelope{
		Type:          eventType,
		Version:       "1.0.0",
		OccurredAt:    time.Now().UTC(),
		CorrelationID: uuid.New().String(),
		Payload:       payload,
	}

	b, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(subject, b)
	return err
}

// PublishCollectibleCreated publishes a collectible created event.
// Parameters:
//   - ctx: Context for the operation
//   - c: The collectible that was created
// Returns:
//   - error: Any error that occurred during publishing
func (p *natsPub) PublishCollectibleCreated(ctx context.Context, c model.Collectible) error {
	key := fmt.Sprintf("created-%d", c.ID)
	if p.shouldDedup(key) {
		return nil
	}

	if err := p.publish("pov.collectibles.created", "pov.collectibles.created", c); err != nil {
		return err
	}

	p.updateDedup(key)
	return nil
}

// PublishCollectibleClaimed publishes a collectible claimed event.
// Parameters:
//   - ctx: Context for the operation
//   - c: The collectible that was claimed
// Returns:
//   - error: Any error that occurred during publishing
func (p *natsPub) PublishCollectibleClaimed(ctx context.Context, c model.Collectible) error {
	key := fmt.Sprintf("claimed-%d", c.ID)
	if p.shouldDedup(key) {
		return nil
	}

	if err := p.publish("pov.collectibles.claimed", "pov.collectibles.claimed", c); err != nil {
		return err
	}

	p.updateDedup(key)
	return nil
}

// editionsPayload is the payload for edition fanout events.
type editionsPayload struct {
	CollectionID string              `json:"collectionId"` // Batch grouping identifier
	Editions     []model.Collectible `json:"editions"`     // Editions in ascending order
}

// PublishEditionsCreated publishes one event per fanout batch.
// Parameters:
//   - ctx: Context for the operation
//   - collectionID: The collection identifier minted for the batch
//   - editions: All editions in the batch, master first
// Returns:
//   - error: Any error that occurred during publishing
func (p *natsPub) PublishEditionsCreated(ctx context.Context, collectionID string, editions []model.Collectible) error {
	if p.shouldDedup(collectionID) {
		return nil
	}

	payload := editionsPayload{CollectionID: collectionID, Editions: editions}
	if err := p.publish("pov.collectibles.editions", "pov.collectibles.editions.created", payload); err != nil {
		return err
	}

	p.updateDedup(collectionID)
	return nil
}
