// internal/notify/client.go
// Package notify provides a client for the outbound mail relay that delivers
// claim links after an edition fanout. Delivery is best-effort: a relay
// failure never fails the fanout itself.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Client for the mail relay service.
type Client struct {
	base string       // Base URL of the mail relay
	hc   *http.Client // HTTP client with custom configuration
}

// ClaimLink is one claim notification for a recipient.
type ClaimLink struct {
	Email         string `json:"email"`          // Recipient address
	RecipientName string `json:"recipientName"`  // Display name used in the mail
	ClaimToken    string `json:"claimToken"`     // Token embedded in the claim link
	EditionNumber int    `json:"editionNumber"`  // Which edition the link claims
	EventName     string `json:"eventName"`      // Event branding for the mail template
}

// New creates a new mail relay client with the specified base URL.
// It configures appropriate timeouts so a slow relay cannot stall a fanout
// response.
// Parameters:
//   - baseURL: Base URL of the mail relay
// Returns:
//   - *Client: Initialized relay client, or nil if no relay is configured
func New(baseURL string) *Client {
	if baseURL == "" {
		return nil
	}

	// Configure HTTP transport with connection timeouts
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 2 * time.Second}).DialContext,
	}

	return &Client{
		base: baseURL,
		hc:   &http.Client{Transport: transport, Timeout: 3 * time.Second},
	}
}

// SendClaimLinks posts a batch of claim links to the relay.
// Parameters:
//   - ctx: Context for the request
//   - links: Claim notifications to deliver
// Returns:
//   - error: Any error from encoding or the relay
func (c *Client) SendClaimLinks(ctx context.Context, links []ClaimLink) error {
	if len(links) == 0 {
		return nil
	}

	body, err := json.Marshal(map[string]interface{}{"links": links})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.base+"/v1/claim-links", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail relay returned %s", resp.Status)
	}

	return nil
}
