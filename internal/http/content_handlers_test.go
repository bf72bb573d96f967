package http

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"merfie/app/internal/content"
	"merfie/app/internal/db"
	applog "merfie/app/internal/log"
	"merfie/app/internal/search"
)

func newRepositoryServer(t *testing.T) *Server {
	t.Helper()

	gormDB, err := db.Open(db.Options{Path: filepath.Join(t.TempDir(), "content.db")})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	ctx := context.Background()
	logger := applog.Discard()
	if err := content.Migrate(ctx, gormDB, logger); err != nil {
		t.Fatalf("content.Migrate returned error: %v", err)
	}
	if err := search.Migrate(ctx, gormDB, logger); err != nil {
		t.Fatalf("search.Migrate returned error: %v", err)
	}

	index, err := search.NewIndex(gormDB, logger)
	if err != nil {
		t.Fatalf("search.NewIndex returned error: %v", err)
	}
	repo, err := content.NewRepository(gormDB, index, logger)
	if err != nil {
		t.Fatalf("content.NewRepository returned error: %v", err)
	}

	return newTestServer(t, &stubSearcher{}, repo, defaultLimits())
}

func TestCampaignDetailsRoundTrip(t *testing.T) {
	t.Parallel()

	srv := newRepositoryServer(t)

	rec := serve(srv, "POST", "/api/systems", `{"name":"Pathfinder"}`)
	if rec.Code != 200 && rec.Code != 201 {
		t.Fatalf("expected success creating system, got %d: %s", rec.Code, rec.Body.String())
	}
	var system systemView
	if err := json.Unmarshal(rec.Body.Bytes(), &system); err != nil {
		t.Fatalf("decoding system: %v", err)
	}

	body := fmt.Sprintf(`{"contentType":"campaign","title":"Iron Gods","campaign":{"systemId":%d,"status":"paused"}}`, system.ID)
	rec = serve(srv, "POST", "/api/content", body)
	if rec.Code != 201 {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created contentView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding created content: %v", err)
	}
	if created.Campaign == nil || created.Campaign.SystemID != system.ID || created.Campaign.Status != "paused" {
		t.Fatalf("expected campaign details in create response, got %#v", created.Campaign)
	}

	rec = serve(srv, "GET", fmt.Sprintf("/api/content/%d", created.ID), "")
	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var fetched contentView
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decoding fetched content: %v", err)
	}
	if fetched.Campaign == nil || fetched.Campaign.SystemID != system.ID || fetched.Campaign.Status != "paused" {
		t.Fatalf("expected campaign details on read, got %#v", fetched.Campaign)
	}

	rec = serve(srv, "GET", "/api/slugs/iron-gods", "")
	if rec.Code != 200 {
		t.Fatalf("expected status 200 by slug, got %d: %s", rec.Code, rec.Body.String())
	}
	var bySlug contentView
	if err := json.Unmarshal(rec.Body.Bytes(), &bySlug); err != nil {
		t.Fatalf("decoding content by slug: %v", err)
	}
	if bySlug.Campaign == nil || bySlug.Campaign.Status != "paused" {
		t.Fatalf("expected campaign details by slug, got %#v", bySlug.Campaign)
	}
}

func TestNonCampaignOmitsCampaignDetails(t *testing.T) {
	t.Parallel()

	srv := newRepositoryServer(t)

	rec := serve(srv, "POST", "/api/content", `{"contentType":"note","title":"Harbour"}`)
	if rec.Code != 201 {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if _, ok := raw["campaign"]; ok {
		t.Fatalf("expected no campaign field for notes, got %v", raw["campaign"])
	}
}
