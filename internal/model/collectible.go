// internal/model/collectible.go
// Package model defines the data structures used throughout the Proof of Vibes service.
// These structures represent the core domain objects for collectibles and session photos.
package model

import (
	"time"
)

// MintStatus captures the optional blockchain-status display data attached to a
// collectible. The minting flow itself is simulated; this struct only exists so
// the gallery can render a status badge.
type MintStatus struct {
	Status          string     `json:"status" db:"status"`                              // Display status (e.g. simulated, pending)
	MintedAt        *time.Time `json:"mintedAt,omitempty" db:"minted_at"`               // When the simulated mint completed
	RecipientWallet string     `json:"recipientWallet,omitempty" db:"recipient_wallet"` // Wallet address shown to the recipient
}

// Collectible represents one digital collectible record.
// It is created by fabrication or edition fanout, mutated only by claiming,
// and listed by the gallery. This corresponds to the collectibles table in storage.
type Collectible struct {
	ID            int         `json:"id" db:"id"`                                    // Unique integer identifier, assigned at creation
	ImageURL      string      `json:"imageUrl" db:"image_url"`                       // Reference to the source image
	Message       string      `json:"message,omitempty" db:"message"`                // Caption chosen in the booth
	Template      string      `json:"template" db:"template"`                        // Frame/style template name
	Vibes         []string    `json:"vibes" db:"vibes"`                              // Mood tags chosen in the booth
	Claimed       bool        `json:"claimed" db:"claimed"`                          // Whether the record has been claimed
	ClaimToken    string      `json:"claimToken" db:"claim_token"`                   // Opaque unique token used to claim
	ClaimEmail    string      `json:"claimEmail,omitempty" db:"claim_email"`         // Recipient email, bound at fanout or claim
	RecipientName string      `json:"recipientName,omitempty" db:"recipient_name"`   // Recipient name, bound at fanout or claim
	ClaimedAt     *time.Time  `json:"claimedAt,omitempty" db:"claimed_at"`           // When the record was claimed
	CollectionID  string      `json:"collectionId,omitempty" db:"collection_id"`     // Groups records created in one fanout batch
	MasterNftID   *int        `json:"masterNftId,omitempty" db:"master_nft_id"`      // Back-reference to the batch master (self on the master)
	EditionNumber *int        `json:"editionNumber,omitempty" db:"edition_number"`   // 1-based position within a fanout batch
	EditionCount  *int        `json:"editionCount,omitempty" db:"edition_count"`     // Total size of the fanout batch
	CertificateID string      `json:"certificateId,omitempty" db:"certificate_id"`   // Display certificate identifier
	EventName     string      `json:"eventName,omitempty" db:"event_name"`           // Event the photo was taken at
	EventDate     string      `json:"eventDate,omitempty" db:"event_date"`           // Calendar date of the event
	MintStatus    *MintStatus `json:"mintStatus,omitempty" db:"mint_status"`         // Optional simulated-mint display data
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`                     // Creation time, default sort key
}

// CollectibleUpdate holds the fields that may be merged into an existing
// collectible. Nil fields are left untouched (shallow merge).
type CollectibleUpdate struct {
	Claimed       *bool       `json:"claimed,omitempty"`
	ClaimEmail    *string     `json:"claimEmail,omitempty"`
	RecipientName *string     `json:"recipientName,omitempty"`
	ClaimedAt     *time.Time  `json:"claimedAt,omitempty"`
	CollectionID  *string     `json:"collectionId,omitempty"`
	MasterNftID   *int        `json:"masterNftId,omitempty"`
	EditionNumber *int        `json:"editionNumber,omitempty"`
	EditionCount  *int        `json:"editionCount,omitempty"`
	CertificateID *string     `json:"certificateId,omitempty"`
	EventName     *string     `json:"eventName,omitempty"`
	EventDate     *string     `json:"eventDate,omitempty"`
	MintStatus    *MintStatus `json:"mintStatus,omitempty"`
}

// Photo represents a session-scoped photobooth capture.
// Photos are ephemeral: they are deleted in bulk by session and are not linked
// to collectible records directly. This corresponds to the photos table in storage.
type Photo struct {
	ID         int       `json:"id" db:"id"`                            // Unique integer identifier
	SessionID  string    `json:"sessionId" db:"session_id"`             // Booth session the photo belongs to
	ImageData  string    `json:"imageData" db:"image_data"`             // Inline encoded image (data URL)
	ArchiveURI string    `json:"archiveUri,omitempty" db:"archive_uri"` // Object-store location when archival is enabled
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`             // When the photo was captured
}

// ListQuery represents the query parameters for listing collectibles.
type ListQuery struct {
	Limit  int `json:"limit"`  // Maximum number of records to return
	Offset int `json:"offset"` // Number of records to skip
}

// FabricateItem is one input tuple for collectible fabrication.
type FabricateItem struct {
	ImageURL   string      `json:"imageUrl"`             // Required source image reference
	Message    string      `json:"message,omitempty"`    // Optional caption
	Template   string      `json:"template"`             // Required template name
	Vibes      []string    `json:"vibes"`                // Required mood tags
	ClaimEmail string      `json:"claimEmail,omitempty"` // Optional pre-bound recipient email
	MintStatus *MintStatus `json:"mintStatus,omitempty"` // Optional simulated-mint display data
}

// FabricateRequest represents the request body for creating a batch of collectibles.
type FabricateRequest struct {
	Items []FabricateItem `json:"items"` // Tuples to fabricate, in order
}

// ClaimRequest represents the request body for claiming a collectible by token.
type ClaimRequest struct {
	Token         string `json:"token"`                   // Claim token (sole credential)
	Email         string `json:"email,omitempty"`         // Optional claimer email
	RecipientName string `json:"recipientName,omitempty"` // Optional claimer name
}

// Recipient is one entry in a fanout recipient list. Binding to editions is
// positional: recipients[0] maps to edition 1 (the master).
type Recipient struct {
	Name  string `json:"name,omitempty"` // Optional display name
	Email string `json:"email"`          // Email the claim link is sent to
}

// FanoutRequest represents the request body for creating numbered editions.
type FanoutRequest struct {
	MasterIDs    []int       `json:"masterIds"`            // Collectibles to fan out (typically one)
	EditionCount int         `json:"editionCount"`         // Total editions per master, 1..50
	Recipients   []Recipient `json:"recipients,omitempty"` // Positional recipient bindings
}

// CreatePhotoRequest represents the request body for saving a session photo.
type CreatePhotoRequest struct {
	SessionID string `json:"sessionId,omitempty"` // Generated server-side when absent
	ImageData string `json:"imageData"`           // Required inline encoded image
}

// ItemResponse wraps a single collectible in the standard response envelope.
type ItemResponse struct {
	Item    *Collectible `json:"item"`              // The affected record
	Message string       `json:"message,omitempty"` // Human-readable outcome
}

// ItemsResponse wraps a list of collectibles in the standard response envelope.
type ItemsResponse struct {
	Items   []Collectible `json:"items"`             // The affected records
	Message string        `json:"message,omitempty"` // Human-readable outcome
}

// PhotoResponse wraps a single photo plus its session identifier.
type PhotoResponse struct {
	Item      *Photo `json:"item"`      // The stored photo
	SessionID string `json:"sessionId"` // Session the photo was stored under
}

// PhotosResponse wraps a list of session photos.
type PhotosResponse struct {
	Items []Photo `json:"items"` // Photos in the session
}
