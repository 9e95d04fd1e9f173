// internal/storage/postgres.go
// Package storage provides the PostgreSQL implementation of the Store interface.
// This implementation is intended for deployments that must survive restarts.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/badaiwinata/Proof-of-Vibes/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgres provides persistent storage for collectibles and session photos.
type postgres struct {
	db *pgxpool.Pool // Connection pool to PostgreSQL database
}

// NewPostgres creates a new PostgreSQL storage implementation.
// It establishes a connection pool, initializes the schema, and inserts the
// provided seed records if the collectibles table is empty.
// Parameters:
//   - dsn: Database connection string in PostgreSQL format
//   - seeds: Seed records to insert on first boot (may be empty)
// Returns:
//   - Store: Implementation of the storage interface
//   - error: Any error that occurred during initialization
func NewPostgres(dsn string, seeds []model.Collectible) (Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 20
	config.MinConns = 5
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	p := &postgres{db: pool}
	if err := p.insertSeeds(ctx, seeds); err != nil {
		return nil, fmt.Errorf("failed to insert seed data: %w", err)
	}

	return p, nil
}

// initSchema initializes the database schema.
// It creates all required tables and indexes if they don't already exist.
func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	schema := `
		-- Collectibles table for digital collectible records
		CREATE TABLE IF NOT EXISTS collectibles (
		    id BIGSERIAL PRIMARY KEY,                -- Unique collectible identifier (never reused)
		    image_url TEXT NOT NULL,                 -- Source image reference
		    message TEXT NOT NULL DEFAULT '',        -- Booth caption
		    template TEXT NOT NULL,                  -- Frame/style template
		    vibes TEXT[] NOT NULL,                   -- Mood tags
		    claimed BOOLEAN NOT NULL DEFAULT FALSE,  -- Claim state
		    claim_token TEXT NOT NULL UNIQUE,        -- Opaque claim credential
		    claim_email TEXT NOT NULL DEFAULT '',    -- Recipient email
		    recipient_name TEXT NOT NULL DEFAULT '', -- Recipient name
		    claimed_at TIMESTAMP WITH TIME ZONE,     -- When the record was claimed
		    collection_id TEXT NOT NULL DEFAULT '',  -- Fanout batch grouping
		    master_nft_id BIGINT,                    -- Back-reference to the batch master
		    edition_number INTEGER,                  -- 1-based edition position
		    edition_count INTEGER,                   -- Total editions in the batch
		    certificate_id TEXT NOT NULL DEFAULT '', -- Display certificate identifier
		    event_name TEXT NOT NULL DEFAULT '',     -- Event the photo was taken at
		    event_date TEXT NOT NULL DEFAULT '',     -- Calendar date of the event
		    mint_status JSONB,                       -- Optional simulated-mint display data
		    seed BOOLEAN NOT NULL DEFAULT FALSE,     -- Seed rows survive the admin reset
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()  -- Creation time
		);

		-- Indexes for the gallery listing and claim lookup
		CREATE INDEX IF NOT EXISTS idx_collectibles_created_at ON collectibles(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_collectibles_collection_id ON collectibles(collection_id);

		-- Session photos table (ephemeral captures)
		CREATE TABLE IF NOT EXISTS photos (
		    id BIGSERIAL PRIMARY KEY,                -- Unique photo identifier
		    session_id TEXT NOT NULL,                -- Booth session
		    image_data TEXT NOT NULL,                -- Inline encoded image
		    archive_uri TEXT NOT NULL DEFAULT '',    -- Object-store location when archived
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()  -- Capture time
		);

		-- Index for session-scoped photo operations
		CREATE INDEX IF NOT EXISTS idx_photos_session_id ON photos(session_id);
	`

	_, err := db.Exec(ctx, schema)
	return err
}

// insertSeeds inserts the seed records on first boot only.
func (p *postgres) insertSeeds(ctx context.Context, seeds []model.Collectible) error {
	if len(seeds) == 0 {
		return nil
	}

	var count int
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM collectibles`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count collectibles: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, c := range seeds {
		msJSON, err := marshalMintStatus(c.MintStatus)
		if err != nil {
			return err
		}
		_, err = p.db.Exec(ctx, `
			INSERT INTO collectibles (image_url, message, template, vibes, claimed, claim_token,
			                          claim_email, recipient_name, claimed_at, collection_id,
			                          master_nft_id, edition_number, edition_count, certificate_id,
			                          event_name, event_date, mint_status, seed, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,TRUE,$18)`,
			c.ImageURL, c.Message, c.Template, c.Vibes, c.Claimed, c.ClaimToken,
			c.ClaimEmail, c.RecipientName, c.ClaimedAt, c.CollectionID,
			c.MasterNftID, c.EditionNumber, c.EditionCount, c.CertificateID,
			c.EventName, c.EventDate, msJSON, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert seed collectible: %w", err)
		}
	}
	return nil
}

// Close closes the database connection pool
func (p *postgres) Close() {
	p.db.Close()
}

// marshalMintStatus converts the optional mint status to JSON for storage.
func marshalMintStatus(ms *model.MintStatus) ([]byte, error) {
	if ms == nil {
		return nil, nil
	}
	b, err := json.Marshal(ms)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mint status: %w", err)
	}
	return b, nil
}

// collectibleColumns is the column list shared by every collectible query.
const collectibleColumns = `id, image_url, message, template, vibes, claimed, claim_token,
	claim_email, recipient_name, claimed_at, collection_id, master_nft_id,
	edition_number, edition_count, certificate_id, event_name, event_date,
	mint_status, created_at`

// scanCollectible scans one collectible row.
func scanCollectible(row pgx.Row) (*model.Collectible, error) {
	var c model.Collectible
	var msJSON []byte

	err := row.Scan(
		&c.ID, &c.ImageURL, &c.Message, &c.Template, &c.Vibes, &c.Claimed, &c.ClaimToken,
		&c.ClaimEmail, &c.RecipientName, &c.ClaimedAt, &c.CollectionID, &c.MasterNftID,
		&c.EditionNumber, &c.EditionCount, &c.CertificateID, &c.EventName, &c.EventDate,
		&msJSON, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(msJSON) > 0 {
		var ms model.MintStatus
		if err := json.Unmarshal(msJSON, &ms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal mint status: %w", err)
		}
		c.MintStatus = &ms
	}

	return &c, nil
}

func (p *postgres) CreateCollectible(ctx context.Context, c model.Collectible) (*model.Collectible, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	msJSON, err := marshalMintStatus(c.MintStatus)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO collectibles (image_url, message, template, vibes, claimed, claim_token,
		                          claim_email, recipient_name, claimed_at, collection_id,
		                          master_nft_id, edition_number, edition_count, certificate_id,
		                          event_name, event_date, mint_status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING ` + collectibleColumns

	row := p.db.QueryRow(ctx, query,
		c.ImageURL, c.Message, c.Template, c.Vibes, c.Claimed, c.ClaimToken,
		c.ClaimEmail, c.RecipientName, c.ClaimedAt, c.CollectionID,
		c.MasterNftID, c.EditionNumber, c.EditionCount, c.CertificateID,
		c.EventName, c.EventDate, msJSON, c.CreatedAt)

	created, err := scanCollectible(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create collectible: %w", err)
	}
	return created, nil
}

func (p *postgres) GetCollectible(ctx context.Context, id int) (*model.Collectible, error) {
	query := `SELECT ` + collectibleColumns + ` FROM collectibles WHERE id = $1`
	c, err := scanCollectible(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get collectible: %w", err)
	}
	return c, nil
}

func (p *postgres) GetCollectibleByClaimToken(ctx context.Context, token string) (*model.Collectible, error) {
	query := `SELECT ` + collectibleColumns + ` FROM collectibles WHERE claim_token = $1`
	c, err := scanCollectible(p.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get collectible by claim token: %w", err)
	}
	return c, nil
}

func (p *postgres) UpdateCollectible(ctx context.Context, id int, upd model.CollectibleUpdate) (*model.Collectible, error) {
	// Build the SET clause from the provided fields only (shallow merge)
	sets := []string{}
	args := []interface{}{}
	argIndex := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if upd.Claimed != nil {
		add("claimed", *upd.Claimed)
	}
	if upd.ClaimEmail != nil {
		add("claim_email", *upd.ClaimEmail)
	}
	if upd.RecipientName != nil {
		add("recipient_name", *upd.RecipientName)
	}
	if upd.ClaimedAt != nil {
		add("claimed_at", *upd.ClaimedAt)
	}
	if upd.CollectionID != nil {
		add("collection_id", *upd.CollectionID)
	}
	if upd.MasterNftID != nil {
		add("master_nft_id", *upd.MasterNftID)
	}
	if upd.EditionNumber != nil {
		add("edition_number", *upd.EditionNumber)
	}
	if upd.EditionCount != nil {
		add("edition_count", *upd.EditionCount)
	}
	if upd.CertificateID != nil {
		add("certificate_id", *upd.CertificateID)
	}
	if upd.EventName != nil {
		add("event_name", *upd.EventName)
	}
	if upd.EventDate != nil {
		add("event_date", *upd.EventDate)
	}
	if upd.MintStatus != nil {
		msJSON, err := marshalMintStatus(upd.MintStatus)
		if err != nil {
			return nil, err
		}
		add("mint_status", msJSON)
	}

	if len(sets) == 0 {
		// Nothing to merge; return the current row
		return p.GetCollectible(ctx, id)
	}

	query := "UPDATE collectibles SET "
	for i, s := range sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += fmt.Sprintf(" WHERE id = $%d RETURNING ", argIndex) + collectibleColumns
	args = append(args, id)

	c, err := scanCollectible(p.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update collectible: %w", err)
	}
	return c, nil
}

func (p *postgres) ListCollectibles(ctx context.Context, q model.ListQuery) ([]model.Collectible, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + collectibleColumns + ` FROM collectibles
	          ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

	rows, err := p.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list collectibles: %w", err)
	}
	defer rows.Close()

	collectibles := []model.Collectible{}
	for rows.Next() {
		c, err := scanCollectible(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collectible: %w", err)
		}
		collectibles = append(collectibles, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collectibles: %w", err)
	}

	return collectibles, nil
}

func (p *postgres) CreatePhoto(ctx context.Context, photo model.Photo) (*model.Photo, error) {
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO photos (session_id, image_data, archive_uri, created_at)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, session_id, image_data, archive_uri, created_at`

	var stored model.Photo
	err := p.db.QueryRow(ctx, query, photo.SessionID, photo.ImageData, photo.ArchiveURI, photo.CreatedAt).
		Scan(&stored.ID, &stored.SessionID, &stored.ImageData, &stored.ArchiveURI, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}

	return &stored, nil
}

func (p *postgres) ListPhotosBySession(ctx context.Context, sessionID string) ([]model.Photo, error) {
	query := `SELECT id, session_id, image_data, archive_uri, created_at FROM photos
	          WHERE session_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := p.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	photos := []model.Photo{}
	for rows.Next() {
		var photo model.Photo
		if err := rows.Scan(&photo.ID, &photo.SessionID, &photo.ImageData, &photo.ArchiveURI, &photo.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}

	return photos, nil
}

func (p *postgres) DeletePhotosBySession(ctx context.Context, sessionID string) error {
	_, err := p.db.Exec(ctx, `DELETE FROM photos WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete photos: %w", err)
	}
	return nil
}

func (p *postgres) ResetUserData(ctx context.Context) error {
	// Seed rows survive; everything user-generated goes. BIGSERIAL sequences
	// are not rewound, so ids are never reused after a reset.
	if _, err := p.db.Exec(ctx, `DELETE FROM collectibles WHERE seed = FALSE`); err != nil {
		return fmt.Errorf("failed to reset collectibles: %w", err)
	}
	if _, err := p.db.Exec(ctx, `DELETE FROM photos`); err != nil {
		return fmt.Errorf("failed to reset photos: %w", err)
	}
	return nil
}
