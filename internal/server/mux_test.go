// internal/server/mux_test.go
// Package server provides unit tests for the HTTP handlers and routing.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/badaiwinata/Proof-of-Vibes/internal/auth"
	"github.com/badaiwinata/Proof-of-Vibes/internal/collectible"
	"github.com/badaiwinata/Proof-of-Vibes/internal/event"
	"github.com/badaiwinata/Proof-of-Vibes/internal/metrics"
	"github.com/badaiwinata/Proof-of-Vibes/internal/model"
	"github.com/badaiwinata/Proof-of-Vibes/internal/storage"
	"github.com/golang-jwt/jwt/v5"
)

// newTestMux builds a mux over a fresh in-memory store.
func newTestMux(t *testing.T, seeds []model.Collectible, opts Options) (*http.ServeMux, storage.Store) {
	t.Helper()
	store := storage.NewMemory(seeds)
	svc := collectible.NewService(store, event.NewNoopPublisher(), metrics.NewMetrics(), "Proof of Vibes")
	mux, err := NewMux(svc, store, opts)
	if err != nil {
		t.Fatalf("NewMux: %v", err)
	}
	return mux, store
}

// doJSON performs a request with a JSON body and decodes the JSON response.
func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if out != nil && rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response (%d): %v: %s", rr.Code, err, rr.Body.String())
		}
	}
	return rr
}

// TestHealthzEndpoint tests the healthz endpoint.
func TestHealthzEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, nil, Options{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), "ok")
	}
}

// TestReadyzEndpoint tests the readyz endpoint.
func TestReadyzEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, nil, Options{})

	req := httptest.NewRequest("GET", "/readyz", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
}

// TestListCollectiblesReturnsSeeds tests the gallery listing over seed data.
func TestListCollectiblesReturnsSeeds(t *testing.T) {
	mux, _ := newTestMux(t, storage.SampleCollectibles(), Options{})

	var resp model.ItemsResponse
	rr := doJSON(t, mux, "GET", "/api/collectibles", nil, &resp)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if len(resp.Items) != 9 {
		t.Fatalf("expected 9 seed records, got %d", len(resp.Items))
	}
	// Newest first
	for i := 1; i < len(resp.Items); i++ {
		if resp.Items[i].CreatedAt.After(resp.Items[i-1].CreatedAt) {
			t.Fatalf("listing not newest-first at index %d", i)
		}
	}
	if rr.Header().Get("X-Correlation-Id") == "" {
		t.Error("expected X-Correlation-Id response header")
	}
}

// TestFabricateEndpoint tests batch fabrication over HTTP.
func TestFabricateEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, nil, Options{})

	var resp model.ItemsResponse
	rr := doJSON(t, mux, "POST", "/api/collectibles", model.FabricateRequest{
		Items: []model.FabricateItem{
			{ImageURL: "https://example.com/a.jpg", Message: "hi", Template: "classic", Vibes: []string{"fun"}},
			{ImageURL: "https://example.com/b.jpg", Template: "neon", Vibes: []string{"glow", "party"}},
		},
	}, &resp)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status %d, want 201: %s", rr.Code, rr.Body.String())
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 created records, got %d", len(resp.Items))
	}
	if resp.Items[0].ImageURL != "https://example.com/a.jpg" {
		t.Fatalf("records not in input order: %q first", resp.Items[0].ImageURL)
	}
	if resp.Items[0].ClaimToken == resp.Items[1].ClaimToken {
		t.Fatal("claim tokens must be distinct")
	}
	if resp.Message == "" {
		t.Fatal("expected a success message")
	}
}

// TestFabricateValidationDetail tests field-level validation errors.
func TestFabricateValidationDetail(t *testing.T) {
	mux, _ := newTestMux(t, nil, Options{})

	var resp struct {
		Error struct {
			Code    string      `json:"code"`
			Details interface{} `json:"details"`
		} `json:"error"`
	}
	rr := doJSON(t, mux, "POST", "/api/collectibles", map[string]interface{}{
		"items": []map[string]interface{}{
			{"imageUrl": "https://example.com/a.jpg", "template": "classic", "vibes": []string{}},
		},
	}, &resp)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400: %s", rr.Code, rr.Body.String())
	}
	if resp.Error.Code != "POV_VALIDATION" {
		t.Fatalf("error code %q, want POV_VALIDATION", resp.Error.Code)
	}
	if resp.Error.Details == nil {
		t.Fatal("expected field-level details on validation failure")
	}
}

// TestGetCollectible tests single-record fetch and 404 handling.
func TestGetCollectible(t *testing.T) {
	mux, _ := newTestMux(t, nil, Options{})

	var created model.ItemsResponse
	doJSON(t, mux, "POST", "/api/collectibles", model.FabricateRequest{
		Items: []model.FabricateItem{
			{ImageURL: "https://example.com/a.jpg", Template: "classic", Vibes: []string{"fun"}},
		},
	}, &created)

	var got model.ItemResponse
	rr := doJSON(t, mux, "GET", fmt.Sprintf("/api/collectibles/%d", created.Items[0].ID), nil, &got)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rr.Code)
	}
	if got.Item == nil || got.Item.ID != created.Items[0].ID {
		t.Fatalf("fetched wrong record: %+v", got.Item)
	}

	rr = doJSON(t, mux, "GET", "/api/collectibles/99999", nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d for unknown id, want 404", rr.Code)
	}
}

// TestClaimEndpoint tests the claim flow including the conflict path.
func TestClaimEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, nil, Options{})

	var created model.ItemsResponse
	doJSON(t, mux, "POST", "/api/collectibles", model.FabricateRequest{
		Items: []model.FabricateItem{
			{ImageURL: "https://example.com/a.jpg", Template: "classic", Vibes: []string{"fun"}},
		},
	}, &created)
	token := created.Items[0].ClaimToken

	// Unknown token
	rr := doJSON(t, mux, "POST", "/api/collectibles/claim", model.ClaimRequest{Token: "nope"}, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d for unknown token, want 404", rr.Code)
	}

	// Successful claim
	var claimed model.ItemResponse
	rr = doJSON(t, mux, "POST", "/api/collectibles/claim", model.ClaimRequest{
		Token: token, Email: "me@x.com", RecipientName: "Mel",
	}, &claimed)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if !claimed.Item.Claimed || claimed.Item.ClaimedAt == nil {
		t.Fatal("expected claimed record with timestamp")
	}

	// Second claim conflicts and preserves the first claimer
	var conflict struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	rr = doJSON(t, mux, "POST", "/api/collectibles/claim", model.ClaimRequest{
		Token: token, Email: "thief@x.com",
	}, &conflict)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status %d for second claim, want 409", rr.Code)
	}
	if conflict.Error.Code != "POV_CONFLICT" {
		t.Fatalf("error code %q, want POV_CONFLICT", conflict.Error.Code)
	}

	var after model.ItemResponse
	doJSON(t, mux, "GET", fmt.Sprintf("/api/collectibles/%d", claimed.Item.ID), nil, &after)
	if after.Item.ClaimEmail != "me@x.com" {
		t.Fatalf("first claim overwritten: %q", after.Item.ClaimEmail)
	}
}

// TestFanoutEndpoint tests edition fanout over HTTP.
func TestFanoutEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, nil, Options{})

	var created model.ItemsResponse
	doJSON(t, mux, "POST", "/api/collectibles", model.FabricateRequest{
		Items: []model.FabricateItem{
			{ImageURL: "https://example.com/a.jpg", Template: "classic", Vibes: []string{"fun"}},
		},
	}, &created)

	var fanout model.ItemsResponse
	rr := doJSON(t, mux, "POST", "/api/collectibles/fanout", model.FanoutRequest{
		MasterIDs:    []int{created.Items[0].ID},
		EditionCount: 3,
		Recipients: []model.Recipient{
			{Email: "a@x.com"},
			{Name: "Bee", Email: "b@x.com"},
		},
	}, &fanout)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if len(fanout.Items) != 3 {
		t.Fatalf("expected 3 editions, got %d", len(fanout.Items))
	}
	if fanout.Items[0].ClaimEmail != "a@x.com" || fanout.Items[1].ClaimEmail != "b@x.com" || fanout.Items[2].ClaimEmail != "" {
		t.Fatal("positional recipient binding broken over HTTP")
	}
	if fanout.Message == "" {
		t.Fatal("expected a fanout outcome message")
	}

	// Out-of-range edition count rejected by payload validation
	rr = doJSON(t, mux, "POST", "/api/collectibles/fanout", model.FanoutRequest{
		MasterIDs:    []int{created.Items[0].ID},
		EditionCount: 51,
	}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d for editionCount=51, want 400", rr.Code)
	}
}

// TestPhotoSessionEndpoints tests photo create, list, and bulk delete.
func TestPhotoSessionEndpoints(t *testing.T) {
	mux, _ := newTestMux(t, nil, Options{})

	var createdPhoto model.PhotoResponse
	rr := doJSON(t, mux, "POST", "/api/photos", model.CreatePhotoRequest{
		SessionID: "booth-1",
		ImageData: "data:image/png;base64,aGVsbG8=",
	}, &createdPhoto)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status %d, want 201: %s", rr.Code, rr.Body.String())
	}
	if createdPhoto.SessionID != "booth-1" {
		t.Fatalf("session id %q, want booth-1", createdPhoto.SessionID)
	}

	// Server generates a session id when the client omits one
	var generated model.PhotoResponse
	doJSON(t, mux, "POST", "/api/photos", model.CreatePhotoRequest{
		ImageData: "data:image/png;base64,aGVsbG8=",
	}, &generated)
	if generated.SessionID == "" {
		t.Fatal("expected generated session id")
	}

	var photos model.PhotosResponse
	rr = doJSON(t, mux, "GET", "/api/photos/session/booth-1", nil, &photos)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rr.Code)
	}
	if len(photos.Items) != 1 {
		t.Fatalf("expected 1 photo, got %d", len(photos.Items))
	}

	rr = doJSON(t, mux, "DELETE", "/api/photos/session/booth-1", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d for delete, want 200", rr.Code)
	}

	doJSON(t, mux, "GET", "/api/photos/session/booth-1", nil, &photos)
	if len(photos.Items) != 0 {
		t.Fatalf("expected session cleared, got %d photos", len(photos.Items))
	}
}

// TestPhotoSizeLimit tests that oversized photo uploads are rejected.
func TestPhotoSizeLimit(t *testing.T) {
	mux, _ := newTestMux(t, nil, Options{MaxPhotoSize: 256})

	big := make([]byte, 1024)
	for i := range big {
		big[i] = 'a'
	}
	rr := doJSON(t, mux, "POST", "/api/photos", model.CreatePhotoRequest{
		SessionID: "booth-1",
		ImageData: string(big),
	}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d for oversized photo, want 400", rr.Code)
	}
}

// adminToken mints an HS256 admin token for tests.
func adminToken(t *testing.T, secret, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  "test-operator",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// TestAdminResetEndpoint tests the guarded reset flow.
func TestAdminResetEndpoint(t *testing.T) {
	const secret = "test-secret"
	mux, _ := newTestMux(t, storage.SampleCollectibles(), Options{
		Admin: auth.NewAdminVerifier(secret),
	})

	var created model.ItemsResponse
	doJSON(t, mux, "POST", "/api/collectibles", model.FabricateRequest{
		Items: []model.FabricateItem{
			{ImageURL: "https://example.com/u.jpg", Template: "classic", Vibes: []string{"fun"}},
		},
	}, &created)

	// Missing token
	req := httptest.NewRequest("POST", "/api/admin/reset", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status %d without token, want 401", rr.Code)
	}

	// Wrong role
	req = httptest.NewRequest("POST", "/api/admin/reset", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, secret, "viewer"))
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status %d with non-admin role, want 403", rr.Code)
	}

	// Valid admin token
	req = httptest.NewRequest("POST", "/api/admin/reset", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, secret, "admin"))
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d with admin token, want 200: %s", rr.Code, rr.Body.String())
	}

	// Seeds survive, user record is gone
	var after model.ItemsResponse
	doJSON(t, mux, "GET", "/api/collectibles", nil, &after)
	if len(after.Items) != 9 {
		t.Fatalf("expected 9 seed records after reset, got %d", len(after.Items))
	}
}

// TestAdminResetDisabled tests that the endpoint refuses when unconfigured.
func TestAdminResetDisabled(t *testing.T) {
	mux, _ := newTestMux(t, nil, Options{})

	req := httptest.NewRequest("POST", "/api/admin/reset", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d with no verifier, want 503", rr.Code)
	}
}

// TestMethodNotAllowed tests the method guard on exact-method routes.
func TestMethodNotAllowed(t *testing.T) {
	mux, _ := newTestMux(t, nil, Options{})

	rr := doJSON(t, mux, "GET", "/api/collectibles/claim", nil, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d for GET on claim, want 400", rr.Code)
	}
}

// TestCORSHeaders tests origin allow-listing.
func TestCORSHeaders(t *testing.T) {
	mux, _ := newTestMux(t, nil, Options{CORSOrigins: []string{"https://booth.example.com"}})

	req := httptest.NewRequest("OPTIONS", "/api/collectibles", nil)
	req.Header.Set("Origin", "https://booth.example.com")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://booth.example.com" {
		t.Fatalf("allow-origin %q, want the booth origin", got)
	}

	req = httptest.NewRequest("OPTIONS", "/api/collectibles", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin %q for disallowed origin", got)
	}
}
