package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/contentpilot/backend/config"
	"github.com/contentpilot/backend/internal/model"
	"github.com/contentpilot/backend/internal/pkg/imagen"
	"github.com/contentpilot/backend/internal/pkg/llm"
	"github.com/contentpilot/backend/internal/repository"
	"github.com/contentpilot/backend/internal/service/orchestrator"
)

func newTestDB(t *testing.T) *gorm.DB {
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

// newTestConfig shrinks the pipeline delays so tests run in milliseconds.
func newTestConfig() *config.Config {
	cfg := config.Default()
	cfg.Pipeline.BatchCooldown = time.Millisecond
	cfg.Pipeline.ImageRetryDelay = time.Millisecond
	cfg.Pipeline.Timezone = "UTC"
	return cfg
}

type repos struct {
	project repository.ProjectRepository
	request repository.ContentRequestRepository
	item    repository.ContentItemRepository
	regen   repository.RegenerateLogRepository
}

func newRepos(db *gorm.DB) repos {
	return repos{
		project: repository.NewProjectRepository(db),
		request: repository.NewContentRequestRepository(db),
		item:    repository.NewContentItemRepository(db),
		regen:   repository.NewRegenerateLogRepository(db),
	}
}

type fakeLLM struct {
	mu           sync.Mutex
	completeFunc func(req llm.CompletionRequest) (*llm.CompletionResult, error)
	requests     []llm.CompletionRequest
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.completeFunc(req)
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeImage struct {
	mu         sync.Mutex
	createFunc func(prompt, size string) (*imagen.ImageResult, error)
	editFunc   func(prompt string, reference []byte, size string) (*imagen.ImageResult, error)
	creates    int
	edits      int
}

func (f *fakeImage) Create(ctx context.Context, prompt, size string) (*imagen.ImageResult, error) {
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	return f.createFunc(prompt, size)
}

func (f *fakeImage) Edit(ctx context.Context, prompt string, reference []byte, size string) (*imagen.ImageResult, error) {
	f.mu.Lock()
	f.edits++
	f.mu.Unlock()
	if f.editFunc != nil {
		return f.editFunc(prompt, reference, size)
	}
	return f.createFunc(prompt, size)
}

func (f *fakeImage) createCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

type fakeAssets struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{objects: make(map[string][]byte)}
}

func (f *fakeAssets) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeAssets) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return data, nil
}

func (f *fakeAssets) Delete(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if _, ok := f.objects[key]; !ok {
		return false, nil
	}
	delete(f.objects, key)
	return true, nil
}

func (f *fakeAssets) PresignDownload(ctx context.Context, key, fileName string, expires time.Duration) (string, error) {
	return "https://assets.test/" + key, nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []*orchestrator.Job
}

func (f *fakeDispatcher) Enqueue(job *orchestrator.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func seedProject(t *testing.T, r repos, userID uint, imageKeys string) *model.Project {
	t.Helper()
	project := &model.Project{
		UserID:      userID,
		Name:        "Morning Roast",
		Category:    "coffee",
		URL:         "https://morningroast.test",
		ImageList:   imageKeys,
		Description: "small batch coffee roastery",
	}
	if err := r.project.Create(project); err != nil {
		t.Fatalf("seed project error: %v", err)
	}
	return project
}

func seedRequest(t *testing.T, r repos, projectID uint, ratio string) *model.ContentRequest {
	t.Helper()
	request := &model.ContentRequest{
		ProjectID:        projectID,
		UploadCycle:      2,
		EssentialKeyword: "single origin",
		ImageRatio:       ratio,
		SearchResult:     "coffee trends summary",
	}
	if err := r.request.Create(request); err != nil {
		t.Fatalf("seed request error: %v", err)
	}
	return request
}

func seedItem(t *testing.T, r repos, requestID uint, status string) *model.ContentItem {
	t.Helper()
	item := &model.ContentItem{
		ContentRequestID: requestID,
		PostDate:         "2026-01-12",
		Subject:          "why single origin beans taste different",
		Direction:        DefaultDirection,
		Status:           status,
	}
	switch status {
	case model.ItemStatusTextDone, model.ItemStatusImageDone, model.ItemStatusImageFailed:
		prompt := "a pour-over setup on a wooden counter"
		caption := "There is a reason your cup tastes different."
		item.AIPrompt = &prompt
		item.Caption = &caption
	}
	if status == model.ItemStatusImageDone {
		key := "1/content/existing.png"
		item.ImageKey = &key
	}
	if err := r.item.Create(item); err != nil {
		t.Fatalf("seed item error: %v", err)
	}
	return item
}
