package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/contentpilot/backend/internal/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db error: %v", err)
	}
	err = db.AutoMigrate(
		&model.Project{},
		&model.ContentRequest{},
		&model.ContentItem{},
		&model.RegenerateLog{},
	)
	if err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return db
}

func TestContentItemLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentItemRepository(db)

	item := &model.ContentItem{
		ContentRequestID: 1,
		PostDate:         "2026-01-12",
		Subject:          "launch teaser",
		Status:           model.ItemStatusPlanned,
	}
	if err := repo.Create(item); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := repo.UpdateText(item.ID, "studio shot of the product", "Coming soon.", 350, model.ItemStatusTextDone); err != nil {
		t.Fatalf("UpdateText error: %v", err)
	}
	got, err := repo.Get(item.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Status != model.ItemStatusTextDone || got.AIPrompt == nil || got.TextTokens != 350 {
		t.Fatalf("text update not persisted: %+v", got)
	}

	if err := repo.UpdateImage(item.ID, "1/content/abc.png", 80, model.ItemStatusImageDone); err != nil {
		t.Fatalf("UpdateImage error: %v", err)
	}
	got, _ = repo.Get(item.ID)
	if !got.Complete() || got.ImageTokens != 80 {
		t.Fatalf("image update not persisted: %+v", got)
	}

	if err := repo.ClearImage(item.ID, model.ItemStatusTextDone); err != nil {
		t.Fatalf("ClearImage error: %v", err)
	}
	got, _ = repo.Get(item.ID)
	if got.Complete() || got.Status != model.ItemStatusTextDone {
		t.Fatalf("ClearImage should null the key and reset status: %+v", got)
	}

	if err := repo.RecordFailure(item.ID, "429 limit exceeded after 2 attempts", model.ItemStatusImageFailed); err != nil {
		t.Fatalf("RecordFailure error: %v", err)
	}
	got, _ = repo.Get(item.ID)
	if got.GenerationLog != "429 limit exceeded after 2 attempts" || got.Status != model.ItemStatusImageFailed {
		t.Fatalf("failure not persisted: %+v", got)
	}
}

// UpdateText writes raw column names, so the migrated schema must expose the
// brief under ai_prompt rather than a name derived from the Go field.
func TestUpdateTextColumnMapping(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentItemRepository(db)

	item := &model.ContentItem{ContentRequestID: 1, PostDate: "2026-01-12", Status: model.ItemStatusPlanned}
	if err := repo.Create(item); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := repo.UpdateText(item.ID, "flat lay on linen", "New drop.", 120, model.ItemStatusTextDone); err != nil {
		t.Fatalf("UpdateText error: %v", err)
	}

	var prompt string
	err := db.Raw("SELECT ai_prompt FROM content_items WHERE id = ?", item.ID).Scan(&prompt).Error
	if err != nil {
		t.Fatalf("raw select error: %v", err)
	}
	if prompt != "flat lay on linen" {
		t.Fatalf("expected prompt in ai_prompt column, got %q", prompt)
	}
}

func TestContentItemGetMissing(t *testing.T) {
	repo := NewContentItemRepository(openTestDB(t))
	if _, err := repo.Get(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailStuck(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentItemRepository(db)

	stale := &model.ContentItem{ContentRequestID: 1, PostDate: "2026-01-12", Status: model.ItemStatusTextPending}
	fresh := &model.ContentItem{ContentRequestID: 1, PostDate: "2026-01-14", Status: model.ItemStatusTextPending}
	if err := repo.Create(stale); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := repo.Create(fresh); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	db.Model(stale).UpdateColumn("updated_at", time.Now().Add(-time.Hour))

	n, err := repo.FailStuck(model.ItemStatusTextPending, 10*time.Minute)
	if err != nil {
		t.Fatalf("FailStuck error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 stuck item, got %d", n)
	}

	got, _ := repo.Get(stale.ID)
	if got.Status != model.ItemStatusTextFailed || got.GenerationLog == "" {
		t.Fatalf("stale item should be failed with a note: %+v", got)
	}
	got, _ = repo.Get(fresh.ID)
	if got.Status != model.ItemStatusTextPending {
		t.Fatalf("fresh item should be untouched, got %s", got.Status)
	}
}
