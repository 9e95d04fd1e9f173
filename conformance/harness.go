// Package conformance provides a test harness that drives the Proof of Vibes
// HTTP surface the way the booth UI does, verifying the externally visible
// contract end to end.
package conformance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/badaiwinata/Proof-of-Vibes/internal/collectible"
	"github.com/badaiwinata/Proof-of-Vibes/internal/event"
	"github.com/badaiwinata/Proof-of-Vibes/internal/metrics"
	"github.com/badaiwinata/Proof-of-Vibes/internal/model"
	"github.com/badaiwinata/Proof-of-Vibes/internal/server"
	"github.com/badaiwinata/Proof-of-Vibes/internal/storage"
)

// Harness provides a test harness for conformance testing.
type Harness struct {
	server *httptest.Server
	store  storage.Store
	pub    event.Publisher
}

// Config holds configuration for the conformance test harness.
type Config struct {
	// Seed determines whether the sample gallery records are injected
	Seed bool
}

// NewHarness creates a new conformance test harness backed by the in-memory
// store and a no-op publisher.
func NewHarness(cfg Config) (*Harness, error) {
	var seeds []model.Collectible
	if cfg.Seed {
		seeds = storage.SampleCollectibles()
	}

	store := storage.NewMemory(seeds)
	pub := event.NewNoopPublisher()
	svc := collectible.NewService(store, pub, metrics.NewMetrics(), "Proof of Vibes")

	mux, err := server.NewMux(svc, store, server.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mux: %w", err)
	}

	return &Harness{
		server: httptest.NewServer(mux),
		store:  store,
		pub:    pub,
	}, nil
}

// URL returns the base URL of the test server.
func (h *Harness) URL() string {
	return h.server.URL
}

// Close shuts down the test server and cleans up resources.
func (h *Harness) Close() {
	h.server.Close()
	h.pub.Close()
}

// postJSON sends a JSON body and decodes the JSON response into out.
func (h *Harness) postJSON(t *testing.T, path string, body interface{}, out interface{}) int {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(h.URL()+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode POST %s response (%d): %v: %s", path, resp.StatusCode, err, data)
		}
	}
	return resp.StatusCode
}

// getJSON fetches a path and decodes the JSON response into out.
func (h *Harness) getJSON(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(h.URL() + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode GET %s response (%d): %v: %s", path, resp.StatusCode, err, data)
		}
	}
	return resp.StatusCode
}

// RunConformanceTests runs all conformance tests against the implementation.
func (h *Harness) RunConformanceTests(t *testing.T) {
	t.Run("HealthEndpoints", h.testHealthEndpoints)
	t.Run("BoothFlow", h.testBoothFlow)
	t.Run("ClaimContract", h.testClaimContract)
	t.Run("Pagination", h.testPagination)
}

// testHealthEndpoints tests the health check endpoints.
func (h *Harness) testHealthEndpoints(t *testing.T) {
	for _, endpoint := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(h.URL() + endpoint)
		if err != nil {
			t.Fatalf("failed to GET %s: %v", endpoint, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200 for %s, got %d", endpoint, resp.StatusCode)
		}
	}
}

// testBoothFlow drives the full booth session: capture a photo, fabricate a
// collectible, fan it out into editions, and check the gallery.
func (h *Harness) testBoothFlow(t *testing.T) {
	// Capture a photo
	var photo model.PhotoResponse
	status := h.postJSON(t, "/api/photos", model.CreatePhotoRequest{
		SessionID: "conformance-session",
		ImageData: "data:image/png;base64,aGVsbG8=",
	}, &photo)
	if status != http.StatusCreated {
		t.Fatalf("photo create status %d, want 201", status)
	}

	// Fabricate a collectible from the session
	var created model.ItemsResponse
	status = h.postJSON(t, "/api/collectibles", model.FabricateRequest{
		Items: []model.FabricateItem{
			{ImageURL: "https://example.com/booth.jpg", Message: "great night", Template: "neon", Vibes: []string{"glow"}},
		},
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("fabricate status %d, want 201", status)
	}
	master := created.Items[0]

	// Fan out into 4 editions
	var fanout model.ItemsResponse
	status = h.postJSON(t, "/api/collectibles/fanout", model.FanoutRequest{
		MasterIDs:    []int{master.ID},
		EditionCount: 4,
	}, &fanout)
	if status != http.StatusOK {
		t.Fatalf("fanout status %d, want 200", status)
	}
	if len(fanout.Items) != 4 {
		t.Fatalf("expected 4 editions, got %d", len(fanout.Items))
	}
	collectionID := fanout.Items[0].CollectionID
	for _, c := range fanout.Items {
		if c.CollectionID != collectionID {
			t.Fatalf("editions split across collections: %q vs %q", c.CollectionID, collectionID)
		}
	}

	// Gallery shows the whole batch
	var gallery model.ItemsResponse
	status = h.getJSON(t, "/api/collectibles?limit=100", &gallery)
	if status != http.StatusOK {
		t.Fatalf("gallery status %d, want 200", status)
	}
	inCollection := 0
	for _, c := range gallery.Items {
		if c.CollectionID == collectionID {
			inCollection++
		}
	}
	if inCollection != 4 {
		t.Fatalf("gallery shows %d records for the batch, want 4", inCollection)
	}

	// Session cleanup
	req, _ := http.NewRequest("DELETE", h.URL()+"/api/photos/session/conformance-session", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete session photos: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session delete status %d, want 200", resp.StatusCode)
	}
}

// testClaimContract verifies the claim status mapping: 404 unknown, 200
// success, 409 conflict.
func (h *Harness) testClaimContract(t *testing.T) {
	var created model.ItemsResponse
	h.postJSON(t, "/api/collectibles", model.FabricateRequest{
		Items: []model.FabricateItem{
			{ImageURL: "https://example.com/claim.jpg", Template: "classic", Vibes: []string{"fun"}},
		},
	}, &created)
	token := created.Items[0].ClaimToken

	if status := h.postJSON(t, "/api/collectibles/claim", model.ClaimRequest{Token: "bogus"}, nil); status != http.StatusNotFound {
		t.Errorf("unknown token status %d, want 404", status)
	}

	var claimed model.ItemResponse
	if status := h.postJSON(t, "/api/collectibles/claim", model.ClaimRequest{Token: token, Email: "guest@x.com"}, &claimed); status != http.StatusOK {
		t.Fatalf("claim status %d, want 200", status)
	}
	if claimed.Item.RecipientName != "Event Attendee" {
		t.Errorf("recipient name %q, want default placeholder", claimed.Item.RecipientName)
	}

	if status := h.postJSON(t, "/api/collectibles/claim", model.ClaimRequest{Token: token}, nil); status != http.StatusConflict {
		t.Errorf("second claim status %d, want 409", status)
	}
}

// testPagination verifies limit/offset paging over the gallery.
func (h *Harness) testPagination(t *testing.T) {
	items := make([]model.FabricateItem, 5)
	for i := range items {
		items[i] = model.FabricateItem{
			ImageURL: fmt.Sprintf("https://example.com/page-%d.jpg", i),
			Template: "classic",
			Vibes:    []string{"fun"},
		}
	}
	h.postJSON(t, "/api/collectibles", model.FabricateRequest{Items: items}, nil)

	var pageOne, pageTwo model.ItemsResponse
	h.getJSON(t, "/api/collectibles?limit=2", &pageOne)
	h.getJSON(t, "/api/collectibles?limit=2&offset=2", &pageTwo)

	if len(pageOne.Items) != 2 || len(pageTwo.Items) != 2 {
		t.Fatalf("page sizes %d/%d, want 2/2", len(pageOne.Items), len(pageTwo.Items))
	}
	if pageOne.Items[0].ID == pageTwo.Items[0].ID {
		t.Fatal("offset did not advance the page")
	}
}
