// internal/storage/memory.go
// Package storage provides implementations of the Store interface
// for both in-memory and PostgreSQL storage backends.
package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/badaiwinata/Proof-of-Vibes/internal/model"
)

// Standard errors returned by the storage layer
var (
	ErrNotFound = errors.New("not found") // Returned when a record is not found
	ErrConflict = errors.New("conflict")  // Returned when a unique constraint is violated
)

// Store interface defines the storage operations required by the Proof of Vibes service.
// This interface is implemented by both in-memory and PostgreSQL storage backends.
type Store interface {
	// Collectible operations
	CreateCollectible(ctx context.Context, c model.Collectible) (*model.Collectible, error)              // Create a new collectible, assigning its id
	GetCollectible(ctx context.Context, id int) (*model.Collectible, error)                              // Get a collectible by id
	GetCollectibleByClaimToken(ctx context.Context, token string) (*model.Collectible, error)            // Get a collectible by claim token
	UpdateCollectible(ctx context.Context, id int, upd model.CollectibleUpdate) (*model.Collectible, error) // Shallow-merge fields into a collectible
	ListCollectibles(ctx context.Context, q model.ListQuery) ([]model.Collectible, error)                // List collectibles, newest first

	// Photo operations, scoped by booth session
	CreatePhoto(ctx context.Context, p model.Photo) (*model.Photo, error)         // Store a session photo, assigning its id
	ListPhotosBySession(ctx context.Context, sessionID string) ([]model.Photo, error) // List photos for a session
	DeletePhotosBySession(ctx context.Context, sessionID string) error            // Delete all photos for a session

	// ResetUserData deletes user-generated collectibles and all photos while
	// preserving the seed records injected at construction. Id counters are
	// never rewound below values already handed out.
	ResetUserData(ctx context.Context) error
}

// memory implements the Store interface using in-memory maps.
// All access is guarded by a single RWMutex so each operation is atomic with
// respect to concurrent request handlers.
type memory struct {
	mu               sync.RWMutex                  // Protects all fields below
	collectibles     map[int]*model.Collectible    // Map of id to collectible
	byClaimToken     map[string]int                // Index of claim token to collectible id
	photos           map[int]*model.Photo          // Map of id to photo
	nextCollectibleID int                          // Monotonic id counter for collectibles
	nextPhotoID      int                           // Monotonic id counter for photos
	seedHighWater    int                           // Highest id belonging to seed data
}

// NewMemory creates a new in-memory storage implementation.
// Seed records (if any) are inserted first and survive ResetUserData; their
// claim tokens are registered so token uniqueness holds across the whole store.
func NewMemory(seeds []model.Collectible) Store {
	m := &memory{
		collectibles:      make(map[int]*model.Collectible),
		byClaimToken:      make(map[string]int),
		photos:            make(map[int]*model.Photo),
		nextCollectibleID: 1,
		nextPhotoID:       1,
	}

	for _, seed := range seeds {
		id := m.nextCollectibleID
		m.nextCollectibleID++

		c := seed
		c.ID = id
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		m.collectibles[id] = &c
		if c.ClaimToken != "" {
			m.byClaimToken[c.ClaimToken] = id
		}
	}
	m.seedHighWater = m.nextCollectibleID - 1

	return m
}

func (m *memory) CreateCollectible(ctx context.Context, c model.Collectible) (*model.Collectible, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Claim tokens are unique by construction; reject duplicates outright
	if c.ClaimToken != "" {
		if _, exists := m.byClaimToken[c.ClaimToken]; exists {
			return nil, ErrConflict
		}
	}

	id := m.nextCollectibleID
	m.nextCollectibleID++

	c.ID = id
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	stored := c
	m.collectibles[id] = &stored
	if stored.ClaimToken != "" {
		m.byClaimToken[stored.ClaimToken] = id
	}

	result := stored
	return &result, nil
}

func (m *memory) GetCollectible(ctx context.Context, id int) (*model.Collectible, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, exists := m.collectibles[id]
	if !exists {
		return nil, ErrNotFound
	}

	result := *c
	return &result, nil
}

func (m *memory) GetCollectibleByClaimToken(ctx context.Context, token string) (*model.Collectible, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.byClaimToken[token]
	if !exists {
		return nil, ErrNotFound
	}

	result := *m.collectibles[id]
	return &result, nil
}

func (m *memory) UpdateCollectible(ctx context.Context, id int, upd model.CollectibleUpdate) (*model.Collectible, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, exists := m.collectibles[id]
	if !exists {
		return nil, ErrNotFound
	}

	// Shallow merge: only provided fields overwrite, everything else is preserved
	if upd.Claimed != nil {
		c.Claimed = *upd.Claimed
	}
	if upd.ClaimEmail != nil {
		c.ClaimEmail = *upd.ClaimEmail
	}
	if upd.RecipientName != nil {
		c.RecipientName = *upd.RecipientName
	}
	if upd.ClaimedAt != nil {
		t := *upd.ClaimedAt
		c.ClaimedAt = &t
	}
	if upd.CollectionID != nil {
		c.CollectionID = *upd.CollectionID
	}
	if upd.MasterNftID != nil {
		v := *upd.MasterNftID
		c.MasterNftID = &v
	}
	if upd.EditionNumber != nil {
		v := *upd.EditionNumber
		c.EditionNumber = &v
	}
	if upd.EditionCount != nil {
		v := *upd.EditionCount
		c.EditionCount = &v
	}
	if upd.CertificateID != nil {
		c.CertificateID = *upd.CertificateID
	}
	if upd.EventName != nil {
		c.EventName = *upd.EventName
	}
	if upd.EventDate != nil {
		c.EventDate = *upd.EventDate
	}
	if upd.MintStatus != nil {
		ms := *upd.MintStatus
		c.MintStatus = &ms
	}

	result := *c
	return &result, nil
}

func (m *memory) ListCollectibles(ctx context.Context, q model.ListQuery) ([]model.Collectible, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*model.Collectible, 0, len(m.collectibles))
	for _, c := range m.collectibles {
		all = append(all, c)
	}

	// Sort by createdAt descending, then by id descending for stable ordering
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	if offset >= len(all) {
		return []model.Collectible{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	page := make([]model.Collectible, 0, end-offset)
	for _, c := range all[offset:end] {
		page = append(page, *c)
	}
	return page, nil
}

func (m *memory) CreatePhoto(ctx context.Context, p model.Photo) (*model.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextPhotoID
	m.nextPhotoID++

	p.ID = id
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	stored := p
	m.photos[id] = &stored

	result := stored
	return &result, nil
}

func (m *memory) ListPhotosBySession(ctx context.Context, sessionID string) ([]model.Photo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	photos := make([]model.Photo, 0)
	for _, p := range m.photos {
		if p.SessionID == sessionID {
			photos = append(photos, *p)
		}
	}

	// Oldest first so the booth can replay the capture order
	sort.Slice(photos, func(i, j int) bool {
		if photos[i].CreatedAt.Equal(photos[j].CreatedAt) {
			return photos[i].ID < photos[j].ID
		}
		return photos[i].CreatedAt.Before(photos[j].CreatedAt)
	})

	return photos, nil
}

func (m *memory) DeletePhotosBySession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, p := range m.photos {
		if p.SessionID == sessionID {
			delete(m.photos, id)
		}
	}
	return nil
}

func (m *memory) ResetUserData(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Drop user-generated collectibles (everything above the seed high-water mark)
	for id, c := range m.collectibles {
		if id > m.seedHighWater {
			delete(m.byClaimToken, c.ClaimToken)
			delete(m.collectibles, id)
		}
	}

	// Clear all session photos. Counters are left where they are so ids are
	// never reused, even after a reset.
	m.photos = make(map[int]*model.Photo)

	return nil
}
