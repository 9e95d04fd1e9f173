// internal/collectible/service.go
// Package collectible implements the core domain logic of the Proof of Vibes
// service: fabrication of collectible records, edition fanout, claim
// resolution, and gallery queries. HTTP concerns stay in the server package;
// this layer only talks to the store and the event publisher.
package collectible

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/badaiwinata/Proof-of-Vibes/internal/event"
	"github.com/badaiwinata/Proof-of-Vibes/internal/metrics"
	"github.com/badaiwinata/Proof-of-Vibes/internal/model"
	"github.com/badaiwinata/Proof-of-Vibes/internal/storage"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Domain errors returned by the service. The server maps these to HTTP statuses.
var (
	ErrNotFound       = storage.ErrNotFound                                // Unknown id or claim token
	ErrAlreadyClaimed = errors.New("collectible already claimed")          // Claim attempted on a claimed record
	ErrNoMasters      = errors.New("at least one master id is required")   // Empty fanout input
	ErrEditionCount   = errors.New("edition count must be between 1 and 50") // Out-of-range fanout size
)

// ValidationError reports which fabrication item failed and why. The batch is
// rejected as a whole before any record is written.
type ValidationError struct {
	Index int    // Position of the offending item in the request
	Field string // Name of the missing or invalid field
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("item %d: missing or invalid %s", e.Index, e.Field)
}

// RecipientName default applied when a claim or fanout binding carries an
// email but no name.
const defaultRecipientName = "Event Attendee"

// Service implements fabrication, edition fanout, claim resolution, and
// gallery queries on top of a Store.
type Service struct {
	store   storage.Store
	pub     event.Publisher
	metrics *metrics.Metrics

	eventName string // Stamped on records at fabrication and fanout

	// Fanout performs a read-then-write sequence per master. Serializing the
	// whole operation keeps edition numbering consistent when two fanout
	// calls touch the same master.
	fanoutMu sync.Mutex
}

// NewService creates the domain service.
// Parameters:
//   - store: Storage backend for collectibles and photos
//   - pub: Event publisher (may be a noop)
//   - m: Metrics instance
//   - eventName: Event name stamped on new records (empty uses the default)
func NewService(store storage.Store, pub event.Publisher, m *metrics.Metrics, eventName string) *Service {
	if eventName == "" {
		eventName = "Proof of Vibes"
	}
	return &Service{
		store:     store,
		pub:       pub,
		metrics:   m,
		eventName: eventName,
	}
}

// Fabricate creates one collectible per input item, in input order.
// Every item is validated before the first write, so a bad item rejects the
// whole batch without side effects. Each record gets a fresh claim token and a
// persisted certificate id.
func (s *Service) Fabricate(ctx context.Context, req model.FabricateRequest) ([]model.Collectible, error) {
	if len(req.Items) == 0 {
		return nil, &ValidationError{Index: 0, Field: "items"}
	}

	// Fail fast: validate everything up front, write nothing on failure
	for i, item := range req.Items {
		switch {
		case item.ImageURL == "":
			return nil, &ValidationError{Index: i, Field: "imageUrl"}
		case item.Template == "":
			return nil, &ValidationError{Index: i, Field: "template"}
		case len(item.Vibes) == 0:
			return nil, &ValidationError{Index: i, Field: "vibes"}
		}
	}

	now := time.Now().UTC()
	created := make([]model.Collectible, 0, len(req.Items))
	for _, item := range req.Items {
		c := model.Collectible{
			ImageURL:      item.ImageURL,
			Message:       item.Message,
			Template:      item.Template,
			Vibes:         item.Vibes,
			ClaimToken:    uuid.New().String(),
			ClaimEmail:    item.ClaimEmail,
			CertificateID: newCertificateID(now),
			EventName:     s.eventName,
			EventDate:     now.Format("2006-01-02"),
			MintStatus:    item.MintStatus,
			CreatedAt:     now,
		}

		stored, err := s.store.CreateCollectible(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("failed to fabricate collectible: %w", err)
		}
		created = append(created, *stored)

		s.metrics.CollectiblesCreatedTotal.WithLabelValues("fabricate").Inc()
		if err := s.pub.PublishCollectibleCreated(ctx, *stored); err != nil {
			slog.Warn("failed to publish collectible created event", "id", stored.ID, "error", err)
		}
	}

	return created, nil
}

// FanoutResult carries the records produced by one fanout call plus the
// human-readable outcome shown in the booth UI.
type FanoutResult struct {
	CollectionID string
	Items        []model.Collectible
	Message      string
}

// Fanout turns the given master collectibles into numbered editions.
// One collection id is minted per call and shared by every record produced,
// including the mutated masters. Recipient binding is positional: the
// recipient at index i-1 binds to edition i, with index 0 mapping to the
// master. Missing masters are skipped with a warning, not fatal.
func (s *Service) Fanout(ctx context.Context, req model.FanoutRequest) (*FanoutResult, error) {
	if len(req.MasterIDs) == 0 {
		return nil, ErrNoMasters
	}
	if req.EditionCount < 1 || req.EditionCount > 50 {
		return nil, ErrEditionCount
	}

	s.fanoutMu.Lock()
	defer s.fanoutMu.Unlock()

	now := time.Now().UTC()
	collectionID := "edition-" + ulid.Make().String()
	eventDate := now.Format("2006-01-02")
	editionCount := req.EditionCount

	all := make([]model.Collectible, 0, len(req.MasterIDs)*editionCount)
	for _, masterID := range req.MasterIDs {
		master, err := s.store.GetCollectible(ctx, masterID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				slog.Warn("fanout master not found, skipping", "id", masterID)
				continue
			}
			return nil, fmt.Errorf("failed to fetch fanout master: %w", err)
		}

		// The master becomes edition 1 of N, pointing at itself
		certificateID := master.CertificateID
		if certificateID == "" {
			certificateID = claimCertificateID(master.ID)
		}
		one := 1
		upd := model.CollectibleUpdate{
			CollectionID:  &collectionID,
			EditionNumber: &one,
			EditionCount:  &editionCount,
			MasterNftID:   &master.ID,
			CertificateID: &certificateID,
			EventName:     &s.eventName,
			EventDate:     &eventDate,
		}
		if len(req.Recipients) > 0 && req.Recipients[0].Email != "" {
			email := req.Recipients[0].Email
			name := req.Recipients[0].Name
			if name == "" {
				name = defaultRecipientName
			}
			upd.ClaimEmail = &email
			upd.RecipientName = &name
		}

		updated, err := s.store.UpdateCollectible(ctx, master.ID, upd)
		if err != nil {
			return nil, fmt.Errorf("failed to update fanout master: %w", err)
		}
		all = append(all, *updated)

		// Editions 2..N are new records cloning the master's presentation
		// fields, each with its own claim token
		for i := 2; i <= editionCount; i++ {
			edition := model.Collectible{
				ImageURL:      master.ImageURL,
				Message:       master.Message,
				Template:      master.Template,
				Vibes:         master.Vibes,
				ClaimToken:    uuid.New().String(),
				CollectionID:  collectionID,
				MasterNftID:   &master.ID,
				EditionNumber: intPtr(i),
				EditionCount:  &editionCount,
				CertificateID: editionCertificateID(i, now),
				EventName:     s.eventName,
				EventDate:     eventDate,
				CreatedAt:     now,
			}
			if len(req.Recipients) >= i && req.Recipients[i-1].Email != "" {
				edition.ClaimEmail = req.Recipients[i-1].Email
				edition.RecipientName = req.Recipients[i-1].Name
				if edition.RecipientName == "" {
					edition.RecipientName = defaultRecipientName
				}
			}

			stored, err := s.store.CreateCollectible(ctx, edition)
			if err != nil {
				return nil, fmt.Errorf("failed to create edition %d: %w", i, err)
			}
			all = append(all, *stored)
			s.metrics.CollectiblesCreatedTotal.WithLabelValues("fanout").Inc()
		}
	}

	s.metrics.FanoutEditionCount.Observe(float64(editionCount))
	if len(all) > 0 {
		if err := s.pub.PublishEditionsCreated(ctx, collectionID, all); err != nil {
			slog.Warn("failed to publish editions created event", "collectionId", collectionID, "error", err)
		}
	}

	return &FanoutResult{
		CollectionID: collectionID,
		Items:        all,
		Message:      fanoutMessage(req.Recipients, editionCount),
	}, nil
}

// fanoutMessage builds the booth-facing outcome line for a fanout call.
func fanoutMessage(recipients []model.Recipient, editionCount int) string {
	emails := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r.Email != "" {
			emails = append(emails, r.Email)
		}
	}
	if len(emails) > 0 {
		return "Your Proof of Vibes editions have been sent to " + strings.Join(emails, ", ")
	}
	return fmt.Sprintf("Your limited edition of %d Proof of Vibes collectibles has been created", editionCount)
}

// Claim resolves a claim token and transitions the record to claimed.
// The transition is one-way: a second claim returns ErrAlreadyClaimed and
// leaves the first claimer's data untouched.
func (s *Service) Claim(ctx context.Context, req model.ClaimRequest) (*model.Collectible, error) {
	c, err := s.store.GetCollectibleByClaimToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.ClaimsTotal.WithLabelValues("not_found").Inc()
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up claim token: %w", err)
	}

	if c.Claimed {
		s.metrics.ClaimsTotal.WithLabelValues("conflict").Inc()
		return nil, ErrAlreadyClaimed
	}

	now := time.Now().UTC()
	claimed := true
	upd := model.CollectibleUpdate{
		Claimed:   &claimed,
		ClaimedAt: &now,
	}

	if req.Email != "" {
		upd.ClaimEmail = &req.Email
	}
	name := req.RecipientName
	if name == "" {
		name = c.RecipientName
	}
	if name == "" {
		name = defaultRecipientName
	}
	upd.RecipientName = &name

	if c.CertificateID == "" {
		cert := claimCertificateID(c.ID)
		upd.CertificateID = &cert
	}

	updated, err := s.store.UpdateCollectible(ctx, c.ID, upd)
	if err != nil {
		return nil, fmt.Errorf("failed to claim collectible: %w", err)
	}

	s.metrics.ClaimsTotal.WithLabelValues("claimed").Inc()
	if err := s.pub.PublishCollectibleClaimed(ctx, *updated); err != nil {
		slog.Warn("failed to publish collectible claimed event", "id", updated.ID, "error", err)
	}

	return updated, nil
}

// Get returns a single collectible with presentation fields enriched.
func (s *Service) Get(ctx context.Context, id int) (*model.Collectible, error) {
	c, err := s.store.GetCollectible(ctx, id)
	if err != nil {
		return nil, err
	}
	enrich(c)
	return c, nil
}

// List returns collectibles newest-first with presentation fields enriched.
// Enrichment is derived only from stored fields and is never written back, so
// repeated reads return identical results.
func (s *Service) List(ctx context.Context, q model.ListQuery) ([]model.Collectible, error) {
	items, err := s.store.ListCollectibles(ctx, q)
	if err != nil {
		return nil, err
	}
	for i := range items {
		enrich(&items[i])
	}
	return items, nil
}

// enrich fills presentation-only fields on records that lack them.
func enrich(c *model.Collectible) {
	if c.CollectionID == "" {
		c.CollectionID = synthCollectionID(c.CreatedAt)
	}
	if c.CertificateID == "" {
		c.CertificateID = synthCertificateID(c.ID, c.CreatedAt)
	}
}

func intPtr(v int) *int { return &v }
