// internal/collectible/certificate.go
package collectible

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// newCertificateID generates the certificate identifier persisted at
// fabrication time. Format: POV prefix, six creation-time digits, and a short
// random suffix so two collectibles fabricated in the same second differ.
func newCertificateID(createdAt time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:4])
	return fmt.Sprintf("POV-%06d-%s", createdAt.Unix()%1000000, suffix)
}

// editionCertificateID generates a certificate identifier for a fanout edition.
// The edition number is part of the identifier so editions in a batch are
// visibly distinct on their certificates.
func editionCertificateID(edition int, createdAt time.Time) string {
	return fmt.Sprintf("POV-E%d-%06d", edition, createdAt.Unix()%1000000)
}

// claimCertificateID generates the certificate backfilled for legacy records
// that reach the claim path without one.
func claimCertificateID(id int) string {
	return fmt.Sprintf("POV-%d-%06d", id, time.Now().UTC().Unix()%1000000)
}

// synthCertificateID derives a read-time certificate for records that have none
// persisted. It depends only on stored fields, so repeated reads of the same
// record always produce the same identifier.
func synthCertificateID(id int, createdAt time.Time) string {
	return fmt.Sprintf("POV-%d-%06d", id, createdAt.Unix()%1000000)
}

// synthCollectionID derives a day-granularity collection for ungrouped records;
// records created on the same calendar day collapse into one synthetic
// collection. Purely presentational.
func synthCollectionID(createdAt time.Time) string {
	return "POV-" + createdAt.UTC().Format("20060102")
}
