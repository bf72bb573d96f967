package content

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"merfie/app/internal/db"
)

func TestNewRepositoryRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(nil, &recordingIndexer{}, nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}

	gormDB := openDatabase(t)
	if _, err := NewRepository(gormDB, nil, nil); err == nil {
		t.Fatalf("expected error when indexer is nil")
	}
}

func TestCreateDerivesSlugAndIndexes(t *testing.T) {
	t.Parallel()

	repo, indexer := setupRepository(t)
	ctx := context.Background()

	item, err := repo.Create(ctx, Draft{
		ContentType: TypeSession,
		Title:       "  Session 12: The Dragon's Lair ",
		Body:        stringPtr("Into the cave"),
		Tags:        []string{"dragons", " ", "dragons", "caves"},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if item.Slug != "session-12-the-dragons-lair" {
		t.Fatalf("expected slug session-12-the-dragons-lair, got %q", item.Slug)
	}
	if item.Title != "Session 12: The Dragon's Lair" {
		t.Fatalf("expected trimmed title, got %q", item.Title)
	}
	if item.PublishedAt != nil {
		t.Fatalf("expected unpublished item to have no published_at")
	}

	if got := indexer.calls("insert"); got != 1 {
		t.Fatalf("expected one index insert, got %d", got)
	}
	if got := indexer.calls("refresh"); got != 1 {
		t.Fatalf("expected one tag refresh, got %d", got)
	}

	tags, err := repo.TagsFor(ctx, item.ID)
	if err != nil {
		t.Fatalf("TagsFor returned error: %v", err)
	}
	expected := []string{"caves", "dragons"}
	if len(tags) != len(expected) {
		t.Fatalf("expected tags %v, got %v", expected, tags)
	}
	for idx := range expected {
		if tags[idx] != expected[idx] {
			t.Fatalf("expected tag %q at %d, got %q", expected[idx], idx, tags[idx])
		}
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, Draft{ContentType: "poem", Title: "Ode"}); !errors.Is(err, ErrInvalidContentType) {
		t.Fatalf("expected ErrInvalidContentType, got %v", err)
	}
	if _, err := repo.Create(ctx, Draft{ContentType: TypeNote, Title: "   "}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := repo.Create(ctx, Draft{ContentType: TypeNote, Title: "!!!"}); !errors.Is(err, ErrInvalidSlug) {
		t.Fatalf("expected ErrInvalidSlug, got %v", err)
	}
}

func TestCreateRejectsDuplicateSlug(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, Draft{ContentType: TypeNote, Title: "Harbour Notes"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	_, err := repo.Create(ctx, Draft{ContentType: TypeSession, Title: "harbour notes"})
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestCreateRollsBackWhenIndexFails(t *testing.T) {
	t.Parallel()

	repo, indexer := setupRepository(t)
	ctx := context.Background()
	indexer.failOn = "insert"

	_, err := repo.Create(ctx, Draft{ContentType: TypeNote, Title: "Lost Note"})
	if err == nil {
		t.Fatalf("expected error when index insert fails")
	}
	if !IsIndexError(err) {
		t.Fatalf("expected IndexError, got %v", err)
	}

	item, err := repo.GetBySlug(ctx, "lost-note")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if item != nil {
		t.Fatalf("expected content row to be rolled back, got %#v", item)
	}
}

func TestUpdateRecordsAliasAndPublishes(t *testing.T) {
	t.Parallel()

	repo, indexer := setupRepository(t)
	ctx := context.Background()

	item, err := repo.Create(ctx, Draft{ContentType: TypeCampaign, Title: "Old Name"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated, err := repo.Update(ctx, item.ID, Draft{ContentType: TypeNote, Title: "New Name", Published: true})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.Slug != "new-name" {
		t.Fatalf("expected slug new-name, got %q", updated.Slug)
	}
	if updated.ContentType != TypeCampaign {
		t.Fatalf("expected content type to stay campaign, got %q", updated.ContentType)
	}
	if updated.PublishedAt == nil {
		t.Fatalf("expected published_at to be set on first publish")
	}
	if got := indexer.calls("update"); got != 1 {
		t.Fatalf("expected one index update, got %d", got)
	}
	if got := indexer.calls("refresh"); got != 0 {
		t.Fatalf("expected nil tags to leave associations alone, got %d refreshes", got)
	}

	viaAlias, err := repo.GetBySlug(ctx, "old-name")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if viaAlias == nil || viaAlias.ID != item.ID {
		t.Fatalf("expected old slug to resolve to item %d, got %#v", item.ID, viaAlias)
	}

	firstPublished := *updated.PublishedAt
	again, err := repo.Update(ctx, item.ID, Draft{Title: "New Name", Published: true})
	if err != nil {
		t.Fatalf("second Update returned error: %v", err)
	}
	if !again.PublishedAt.Equal(firstPublished) {
		t.Fatalf("expected published_at to stay %s, got %s", firstPublished, again.PublishedAt)
	}
}

func TestUpdateUnpublishClearsPublishedAt(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	item, err := repo.Create(ctx, Draft{ContentType: TypeNote, Title: "Ledger", Published: true})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if item.PublishedAt == nil {
		t.Fatalf("expected published_at on published create")
	}

	hidden, err := repo.Update(ctx, item.ID, Draft{Title: "Ledger"})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if hidden.Published || hidden.PublishedAt != nil {
		t.Fatalf("expected unpublished item without published_at, got %v / %v", hidden.Published, hidden.PublishedAt)
	}

	stored, err := repo.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if stored.PublishedAt != nil {
		t.Fatalf("expected stored published_at to be cleared, got %s", stored.PublishedAt)
	}

	republished, err := repo.Update(ctx, item.ID, Draft{Title: "Ledger", Published: true})
	if err != nil {
		t.Fatalf("republish Update returned error: %v", err)
	}
	if republished.PublishedAt == nil {
		t.Fatalf("expected published_at to be set again on republish")
	}
}

func TestUpdateMissingItem(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)

	_, err := repo.Update(context.Background(), 404, Draft{Title: "Ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRemovesItemAndAssociations(t *testing.T) {
	t.Parallel()

	repo, indexer := setupRepository(t)
	ctx := context.Background()

	item, err := repo.Create(ctx, Draft{ContentType: TypeMiniature, Title: "Owlbear", Tags: []string{"beasts"}})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := repo.AddImages(ctx, item.ID, samplePaths(), ImageMetadata{}); err != nil {
		t.Fatalf("AddImages returned error: %v", err)
	}

	if err := repo.Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if got := indexer.calls("delete"); got != 1 {
		t.Fatalf("expected one index delete, got %d", got)
	}

	stored, err := repo.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if stored != nil {
		t.Fatalf("expected item to be deleted")
	}

	images, err := repo.ImagesFor(ctx, item.ID)
	if err != nil {
		t.Fatalf("ImagesFor returned error: %v", err)
	}
	if len(images) != 0 {
		t.Fatalf("expected images to be deleted, got %d groups", len(images))
	}

	if err := repo.Delete(ctx, item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestDeleteKeepsRowWhenIndexFails(t *testing.T) {
	t.Parallel()

	repo, indexer := setupRepository(t)
	ctx := context.Background()

	item, err := repo.Create(ctx, Draft{ContentType: TypeNote, Title: "Sticky"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	indexer.failOn = "delete"
	if err := repo.Delete(ctx, item.ID); !IsIndexError(err) {
		t.Fatalf("expected IndexError, got %v", err)
	}

	stored, err := repo.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if stored == nil {
		t.Fatalf("expected item to survive a failed index delete")
	}
}

func TestCampaignDetails(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	system, err := repo.GetOrCreateSystem(ctx, "Pathfinder 2e")
	if err != nil {
		t.Fatalf("GetOrCreateSystem returned error: %v", err)
	}

	campaign, err := repo.Create(ctx, Draft{
		ContentType: TypeCampaign,
		Title:       "Abomination Vaults",
		Campaign:    &CampaignDraft{SystemID: system.ID},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	details, err := repo.CampaignDetailsFor(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("CampaignDetailsFor returned error: %v", err)
	}
	if details == nil || details.SystemID != system.ID || details.Status != DefaultCampaignStatus {
		t.Fatalf("expected details for system %d with default status, got %#v", system.ID, details)
	}

	if _, err := repo.Update(ctx, campaign.ID, Draft{
		Title:    "Abomination Vaults",
		Campaign: &CampaignDraft{SystemID: system.ID, Status: "finished"},
	}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	details, err = repo.CampaignDetailsFor(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("CampaignDetailsFor returned error: %v", err)
	}
	if details.Status != "finished" {
		t.Fatalf("expected status finished, got %q", details.Status)
	}

	_, err = repo.Create(ctx, Draft{
		ContentType: TypeNote,
		Title:       "Not A Campaign",
		Campaign:    &CampaignDraft{SystemID: system.ID},
	})
	if !errors.Is(err, ErrCampaignOnly) {
		t.Fatalf("expected ErrCampaignOnly, got %v", err)
	}
}

func TestGetBySlugMissing(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)

	item, err := repo.GetBySlug(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil item for missing slug, got %#v", item)
	}
}

type recordingIndexer struct {
	mu     sync.Mutex
	counts map[string]int
	failOn string
}

func (r *recordingIndexer) record(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[op]++
	if r.failOn == op {
		return eris.Errorf("index %s failed", op)
	}
	return nil
}

func (r *recordingIndexer) calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[op]
}

func (r *recordingIndexer) Insert(*gorm.DB, *Item) error { return r.record("insert") }
func (r *recordingIndexer) Update(*gorm.DB, *Item) error { return r.record("update") }
func (r *recordingIndexer) Delete(*gorm.DB, uint) error  { return r.record("delete") }
func (r *recordingIndexer) RefreshTags(*gorm.DB, uint) error {
	return r.record("refresh")
}

func openDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "content.db")
	gormDB, err := db.Open(db.Options{Path: path})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	return gormDB
}

func setupRepository(t *testing.T) (*GormRepository, *recordingIndexer) {
	t.Helper()

	gormDB := openDatabase(t)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if err := Migrate(context.Background(), gormDB, logger); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	indexer := &recordingIndexer{}
	repo, err := NewRepository(gormDB, indexer, logger)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo, indexer
}

func stringPtr(value string) *string {
	return &value
}

func samplePaths() ImagePaths {
	return ImagePaths{
		Full:      "/media/full.webp",
		Content:   "/media/content.webp",
		Thumbnail: "/media/thumb.webp",
	}
}
