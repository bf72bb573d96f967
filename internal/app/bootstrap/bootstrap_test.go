package bootstrap

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"merfie/app/internal/config"
	"merfie/app/internal/content"
	"merfie/app/internal/search"
)

func TestBuildWiresSearchEndToEnd(t *testing.T) {
	t.Parallel()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := config.Config{
		DBPath:         filepath.Join(t.TempDir(), "merfie.db"),
		SearchPageSize: 5,
		RateLimit: config.RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             50,
			ClientTTL:         time.Minute,
		},
	}

	result, err := Build(context.Background(), Dependencies{Config: cfg, Logger: logger})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := result.Cleanup(); err != nil {
			t.Fatalf("Cleanup returned error: %v", err)
		}
	})

	ctx := context.Background()
	for i := 0; i < 7; i++ {
		if _, err := result.Repository.Create(ctx, content.Draft{
			ContentType: content.TypeSession,
			Title:       "Crypt Session " + strings.Repeat("I", i+1),
		}); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	page, err := result.Engine.Search(ctx, search.Request{Term: "crypt"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(page.Results) != 5 || page.TotalCount != 7 || page.TotalPages != 2 {
		t.Fatalf("expected configured page size 5 of 7 results, got %d/%d/%d",
			len(page.Results), page.TotalCount, page.TotalPages)
	}

	rec := httptest.NewRecorder()
	result.HTTPServer.ServeHTTP(rec, httptest.NewRequest("GET", "/api/search?q=crypt&pageSize=10", nil))
	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"totalCount":7`) {
		t.Fatalf("expected total count in response, got %s", rec.Body.String())
	}
}

func TestOpenFailsWithoutPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Dependencies{}); err == nil {
		t.Fatalf("expected error for empty database path")
	}
}
