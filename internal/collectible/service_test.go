// internal/collectible/service_test.go
package collectible

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/badaiwinata/Proof-of-Vibes/internal/event"
	"github.com/badaiwinata/Proof-of-Vibes/internal/metrics"
	"github.com/badaiwinata/Proof-of-Vibes/internal/model"
	"github.com/badaiwinata/Proof-of-Vibes/internal/storage"
)

func newTestService() *Service {
	return NewService(storage.NewMemory(nil), event.NewNoopPublisher(), metrics.NewMetrics(), "Proof of Vibes")
}

func fabricateOne(t *testing.T, svc *Service, imageURL string) model.Collectible {
	t.Helper()
	items, err := svc.Fabricate(context.Background(), model.FabricateRequest{
		Items: []model.FabricateItem{
			{ImageURL: imageURL, Message: "hello", Template: "classic", Vibes: []string{"fun"}},
		},
	})
	if err != nil {
		t.Fatalf("fabricate: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	return items[0]
}

func TestFabricateAssignsTokenAndCertificate(t *testing.T) {
	svc := newTestService()
	c := fabricateOne(t, svc, "https://example.com/a.jpg")

	if c.ClaimToken == "" {
		t.Fatal("expected claim token")
	}
	if c.CertificateID == "" {
		t.Fatal("expected certificate id persisted at creation")
	}
	if c.Claimed {
		t.Fatal("new collectibles start unclaimed")
	}
	if c.EditionNumber != nil || c.EditionCount != nil {
		t.Fatal("new collectibles are not editioned")
	}
	if c.EventName != "Proof of Vibes" {
		t.Fatalf("expected event name stamped, got %q", c.EventName)
	}
}

func TestFabricateRejectsBatchBeforeAnyWrite(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Fabricate(ctx, model.FabricateRequest{
		Items: []model.FabricateItem{
			{ImageURL: "https://example.com/ok.jpg", Template: "classic", Vibes: []string{"fun"}},
			{ImageURL: "", Template: "classic", Vibes: []string{"fun"}}, // invalid
		},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Index != 1 || verr.Field != "imageUrl" {
		t.Fatalf("expected item 1 imageUrl, got item %d field %q", verr.Index, verr.Field)
	}

	// All-or-nothing: the valid first item must not have been written
	items, err := svc.List(ctx, model.ListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty store after rejected batch, got %d records", len(items))
	}
}

func TestClaimTokensUniqueAcrossStore(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Fabricate(ctx, model.FabricateRequest{
		Items: []model.FabricateItem{
			{ImageURL: "https://example.com/a.jpg", Template: "classic", Vibes: []string{"fun"}},
			{ImageURL: "https://example.com/b.jpg", Template: "neon", Vibes: []string{"glow"}},
			{ImageURL: "https://example.com/c.jpg", Template: "retro", Vibes: []string{"cool"}},
		},
	})
	if err != nil {
		t.Fatalf("fabricate: %v", err)
	}
	master := fabricateOne(t, svc, "https://example.com/d.jpg")
	if _, err := svc.Fanout(ctx, model.FanoutRequest{MasterIDs: []int{master.ID}, EditionCount: 5}); err != nil {
		t.Fatalf("fanout: %v", err)
	}

	items, err := svc.List(ctx, model.ListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	seen := map[string]bool{}
	for _, c := range items {
		if c.ClaimToken == "" {
			t.Fatalf("record %d has no claim token", c.ID)
		}
		if seen[c.ClaimToken] {
			t.Fatalf("duplicate claim token %q", c.ClaimToken)
		}
		seen[c.ClaimToken] = true
	}
}

func TestFanoutEditionInvariant(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	master := fabricateOne(t, svc, "https://example.com/a.jpg")

	result, err := svc.Fanout(ctx, model.FanoutRequest{MasterIDs: []int{master.ID}, EditionCount: 5})
	if err != nil {
		t.Fatalf("fanout: %v", err)
	}
	if len(result.Items) != 5 {
		t.Fatalf("expected 5 records, got %d", len(result.Items))
	}

	numbers := map[int]bool{}
	for _, c := range result.Items {
		if c.CollectionID != result.CollectionID {
			t.Fatalf("record %d has collection %q, want %q", c.ID, c.CollectionID, result.CollectionID)
		}
		if c.EditionNumber == nil || c.EditionCount == nil {
			t.Fatalf("record %d missing edition fields", c.ID)
		}
		if *c.EditionCount != 5 {
			t.Fatalf("record %d has editionCount %d, want 5", c.ID, *c.EditionCount)
		}
		if numbers[*c.EditionNumber] {
			t.Fatalf("edition number %d appears twice", *c.EditionNumber)
		}
		numbers[*c.EditionNumber] = true
		if c.MasterNftID == nil || *c.MasterNftID != master.ID {
			t.Fatalf("record %d does not reference master %d", c.ID, master.ID)
		}
		if c.Claimed {
			t.Fatalf("record %d created claimed", c.ID)
		}
	}
	for i := 1; i <= 5; i++ {
		if !numbers[i] {
			t.Fatalf("edition number %d missing", i)
		}
	}

	// Ascending edition order in the response
	for i, c := range result.Items {
		if *c.EditionNumber != i+1 {
			t.Fatalf("expected edition %d at index %d, got %d", i+1, i, *c.EditionNumber)
		}
	}
}

func TestFanoutRecipientBindingByPosition(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	master := fabricateOne(t, svc, "https://example.com/a.jpg")

	result, err := svc.Fanout(ctx, model.FanoutRequest{
		MasterIDs:    []int{master.ID},
		EditionCount: 3,
		Recipients: []model.Recipient{
			{Email: "a@x.com"},
			{Name: "Bee", Email: "b@x.com"},
		},
	})
	if err != nil {
		t.Fatalf("fanout: %v", err)
	}
	if len(result.Items) != 3 {
		t.Fatalf("expected 3 records, got %d", len(result.Items))
	}

	if result.Items[0].ClaimEmail != "a@x.com" {
		t.Fatalf("edition 1 email %q, want a@x.com", result.Items[0].ClaimEmail)
	}
	if result.Items[0].RecipientName != "Event Attendee" {
		t.Fatalf("edition 1 name %q, want default placeholder", result.Items[0].RecipientName)
	}
	if result.Items[1].ClaimEmail != "b@x.com" || result.Items[1].RecipientName != "Bee" {
		t.Fatalf("edition 2 binding %q/%q, want b@x.com/Bee", result.Items[1].ClaimEmail, result.Items[1].RecipientName)
	}
	if result.Items[2].ClaimEmail != "" {
		t.Fatalf("edition 3 should have no claim email, got %q", result.Items[2].ClaimEmail)
	}
}

func TestFanoutCountOneCreatesNoRecords(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	master := fabricateOne(t, svc, "https://example.com/a.jpg")

	before, _ := svc.List(ctx, model.ListQuery{})

	result, err := svc.Fanout(ctx, model.FanoutRequest{MasterIDs: []int{master.ID}, EditionCount: 1})
	if err != nil {
		t.Fatalf("fanout: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected only the master, got %d records", len(result.Items))
	}
	got := result.Items[0]
	if got.ID != master.ID {
		t.Fatalf("expected master id %d, got %d", master.ID, got.ID)
	}
	if got.EditionNumber == nil || *got.EditionNumber != 1 || got.EditionCount == nil || *got.EditionCount != 1 {
		t.Fatal("expected master tagged edition 1 of 1")
	}
	if got.CollectionID == "" {
		t.Fatal("expected collection id on master")
	}

	after, _ := svc.List(ctx, model.ListQuery{})
	if len(after) != len(before) {
		t.Fatalf("list size changed from %d to %d", len(before), len(after))
	}
}

func TestFanoutValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	master := fabricateOne(t, svc, "https://example.com/a.jpg")

	if _, err := svc.Fanout(ctx, model.FanoutRequest{MasterIDs: []int{master.ID}, EditionCount: 0}); !errors.Is(err, ErrEditionCount) {
		t.Fatalf("expected ErrEditionCount for 0, got %v", err)
	}
	if _, err := svc.Fanout(ctx, model.FanoutRequest{MasterIDs: []int{master.ID}, EditionCount: 51}); !errors.Is(err, ErrEditionCount) {
		t.Fatalf("expected ErrEditionCount for 51, got %v", err)
	}
	if _, err := svc.Fanout(ctx, model.FanoutRequest{EditionCount: 3}); !errors.Is(err, ErrNoMasters) {
		t.Fatalf("expected ErrNoMasters, got %v", err)
	}
}

func TestFanoutSkipsMissingMasters(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	master := fabricateOne(t, svc, "https://example.com/a.jpg")

	result, err := svc.Fanout(ctx, model.FanoutRequest{
		MasterIDs:    []int{9999, master.ID},
		EditionCount: 2,
	})
	if err != nil {
		t.Fatalf("fanout: %v", err)
	}
	// The missing master contributes nothing; the real one fans out normally
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 records from the surviving master, got %d", len(result.Items))
	}
}

func TestFanoutPreservesExistingCertificate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	master := fabricateOne(t, svc, "https://example.com/a.jpg")
	originalCert := master.CertificateID

	result, err := svc.Fanout(ctx, model.FanoutRequest{MasterIDs: []int{master.ID}, EditionCount: 2})
	if err != nil {
		t.Fatalf("fanout: %v", err)
	}
	if result.Items[0].CertificateID != originalCert {
		t.Fatalf("master certificate changed from %q to %q", originalCert, result.Items[0].CertificateID)
	}
	if result.Items[1].CertificateID == originalCert || result.Items[1].CertificateID == "" {
		t.Fatalf("edition 2 needs its own certificate, got %q", result.Items[1].CertificateID)
	}
}

func TestClaimUnknownTokenNotFound(t *testing.T) {
	svc := newTestService()
	_, err := svc.Claim(context.Background(), model.ClaimRequest{Token: "no-such-token"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimTransitionsRecord(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	c := fabricateOne(t, svc, "https://example.com/a.jpg")
	before := time.Now().UTC()

	claimed, err := svc.Claim(ctx, model.ClaimRequest{Token: c.ClaimToken, Email: "me@x.com", RecipientName: "Mel"})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claimed.Claimed {
		t.Fatal("expected claimed=true")
	}
	if claimed.ClaimedAt == nil || claimed.ClaimedAt.Before(before.Add(-time.Second)) {
		t.Fatalf("expected claimedAt at call time, got %v", claimed.ClaimedAt)
	}
	if claimed.ClaimEmail != "me@x.com" || claimed.RecipientName != "Mel" {
		t.Fatalf("binding %q/%q, want me@x.com/Mel", claimed.ClaimEmail, claimed.RecipientName)
	}
	if claimed.CertificateID == "" {
		t.Fatal("expected certificate id after claim")
	}
}

func TestClaimDefaultsRecipientName(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	c := fabricateOne(t, svc, "https://example.com/a.jpg")

	claimed, err := svc.Claim(ctx, model.ClaimRequest{Token: c.ClaimToken})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.RecipientName != "Event Attendee" {
		t.Fatalf("expected placeholder recipient name, got %q", claimed.RecipientName)
	}
}

func TestClaimMonotonicity(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	c := fabricateOne(t, svc, "https://example.com/a.jpg")

	first, err := svc.Claim(ctx, model.ClaimRequest{Token: c.ClaimToken, Email: "first@x.com", RecipientName: "First"})
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}

	_, err = svc.Claim(ctx, model.ClaimRequest{Token: c.ClaimToken, Email: "second@x.com", RecipientName: "Second"})
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}

	// First claimer's data must survive the rejected second attempt
	got, err := svc.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ClaimEmail != "first@x.com" || got.RecipientName != "First" {
		t.Fatalf("first claim overwritten: %q/%q", got.ClaimEmail, got.RecipientName)
	}
}

func TestListEnrichmentIsIdempotent(t *testing.T) {
	svc := NewService(storage.NewMemory([]model.Collectible{
		// A legacy record with no collection or certificate persisted
		{
			ImageURL: "https://example.com/legacy.jpg", Template: "classic",
			Vibes: []string{"old"}, ClaimToken: "legacy-token",
			CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}), event.NewNoopPublisher(), metrics.NewMetrics(), "")
	ctx := context.Background()

	first, err := svc.List(ctx, model.ListQuery{})
	if err != nil {
		t.Fatalf("first list: %v", err)
	}
	second, err := svc.List(ctx, model.ListQuery{})
	if err != nil {
		t.Fatalf("second list: %v", err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 record, got %d and %d", len(first), len(second))
	}
	if first[0].CollectionID != "POV-20250601" {
		t.Fatalf("expected day-granularity collection, got %q", first[0].CollectionID)
	}
	if first[0].CertificateID == "" {
		t.Fatal("expected synthesized certificate")
	}
	if first[0].CollectionID != second[0].CollectionID || first[0].CertificateID != second[0].CertificateID {
		t.Fatal("enrichment not stable across reads")
	}

	// Derived fields must not leak back into storage
	raw, err := svc.store.GetCollectible(ctx, first[0].ID)
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if raw.CollectionID != "" || raw.CertificateID != "" {
		t.Fatalf("derived fields persisted: %q/%q", raw.CollectionID, raw.CertificateID)
	}
}
