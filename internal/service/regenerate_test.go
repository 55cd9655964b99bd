package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/contentpilot/backend/internal/model"
	"github.com/contentpilot/backend/internal/pkg/imagen"
	"github.com/contentpilot/backend/internal/pkg/llm"
	"github.com/contentpilot/backend/internal/repository"
)

func newRegenerator(r repos, llmClient *fakeLLM, imageClient *fakeImage, assets *fakeAssets) *RegenerateService {
	cfg := newTestConfig()
	quota := NewQuotaService(cfg, r.request, r.regen)
	pipeline := NewPipelineService(cfg, llmClient, imageClient, assets, r.project, r.request, r.item)
	return NewRegenerateService(pipeline, llmClient, assets, quota, r.project, r.request, r.item)
}

func TestRegenerateCaption(t *testing.T) {
	r := newRepos(newTestDB(t))
	project := seedProject(t, r, 1, "")
	request := seedRequest(t, r, project.ID, "1:1")
	item := seedItem(t, r, request.ID, model.ItemStatusImageDone)

	llmClient := &fakeLLM{completeFunc: func(req llm.CompletionRequest) (*llm.CompletionResult, error) {
		if !strings.Contains(req.Prompt, "make it funnier") {
			t.Errorf("caption prompt should carry the feedback, got %q", req.Prompt)
		}
		return &llm.CompletionResult{Message: `{"caption":"A funnier cup of coffee."}`, TotalTokens: 50}, nil
	}}

	svc := newRegenerator(r, llmClient, &fakeImage{}, newFakeAssets())
	got, err := svc.Regenerate(context.Background(), 1, item.ID, QuotaCaption, "make it funnier")
	if err != nil {
		t.Fatalf("Regenerate error: %v", err)
	}

	if got.Caption == nil || *got.Caption != "A funnier cup of coffee." {
		t.Fatalf("caption not replaced: %+v", got.Caption)
	}
	if got.ImageKey == nil || *got.ImageKey != *item.ImageKey {
		t.Fatalf("caption regeneration must not touch the image")
	}
}

func TestRegenerateImage(t *testing.T) {
	r := newRepos(newTestDB(t))
	project := seedProject(t, r, 1, "")
	request := seedRequest(t, r, project.ID, "1:1")
	item := seedItem(t, r, request.ID, model.ItemStatusImageDone)
	oldKey := *item.ImageKey

	assets := newFakeAssets()
	assets.objects[oldKey] = []byte("old")
	imageClient := &fakeImage{createFunc: func(prompt, size string) (*imagen.ImageResult, error) {
		return &imagen.ImageResult{Data: []byte("new"), Tokens: 10}, nil
	}}

	svc := newRegenerator(r, &fakeLLM{}, imageClient, assets)
	got, err := svc.Regenerate(context.Background(), 1, item.ID, QuotaImage, "")
	if err != nil {
		t.Fatalf("Regenerate error: %v", err)
	}

	if got.Status != model.ItemStatusImageDone {
		t.Fatalf("item should end image_done, got %s", got.Status)
	}
	if got.ImageKey == nil || *got.ImageKey == oldKey {
		t.Fatalf("image key should be replaced, got %v", got.ImageKey)
	}
	if _, ok := assets.objects[oldKey]; ok {
		t.Fatalf("old image should be deleted from storage")
	}
	if len(assets.deleted) != 1 || assets.deleted[0] != oldKey {
		t.Fatalf("expected exactly one delete of %s, got %v", oldKey, assets.deleted)
	}
}

func TestRegenerateAll(t *testing.T) {
	r := newRepos(newTestDB(t))
	project := seedProject(t, r, 1, "")
	request := seedRequest(t, r, project.ID, "1:1")
	item := seedItem(t, r, request.ID, model.ItemStatusImageDone)
	oldKey := *item.ImageKey

	assets := newFakeAssets()
	assets.objects[oldKey] = []byte("old")

	llmClient := &fakeLLM{completeFunc: func(req llm.CompletionRequest) (*llm.CompletionResult, error) {
		if !strings.Contains(req.Prompt, "less text in the image") {
			t.Errorf("brief prompt should carry the feedback, got %q", req.Prompt)
		}
		return &llm.CompletionResult{Message: `{"aiPrompt":"minimal latte art, no text","caption":"Less is more."}`, TotalTokens: 70}, nil
	}}
	imageClient := &fakeImage{createFunc: func(prompt, size string) (*imagen.ImageResult, error) {
		return &imagen.ImageResult{Data: []byte("new"), Tokens: 10}, nil
	}}

	svc := newRegenerator(r, llmClient, imageClient, assets)
	got, err := svc.Regenerate(context.Background(), 1, item.ID, QuotaAll, "less text in the image")
	if err != nil {
		t.Fatalf("Regenerate error: %v", err)
	}

	if got.Status != model.ItemStatusImageDone {
		t.Fatalf("item should end image_done, got %s", got.Status)
	}
	if got.Caption == nil || *got.Caption != "Less is more." {
		t.Fatalf("caption should be regenerated, got %v", got.Caption)
	}
	if got.ImageKey == nil || *got.ImageKey == oldKey {
		t.Fatalf("image should be regenerated, got %v", got.ImageKey)
	}
	if len(assets.deleted) != 1 || assets.deleted[0] != oldKey {
		t.Fatalf("old image should be deleted exactly once, got %v", assets.deleted)
	}
}

func TestRegenerateAllKeepsImageOnTextFailure(t *testing.T) {
	r := newRepos(newTestDB(t))
	project := seedProject(t, r, 1, "")
	request := seedRequest(t, r, project.ID, "1:1")
	item := seedItem(t, r, request.ID, model.ItemStatusImageDone)
	oldKey := *item.ImageKey

	assets := newFakeAssets()
	assets.objects[oldKey] = []byte("old")

	llmClient := &fakeLLM{completeFunc: func(req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return nil, errors.New("model overloaded")
	}}

	svc := newRegenerator(r, llmClient, &fakeImage{}, assets)
	if _, err := svc.Regenerate(context.Background(), 1, item.ID, QuotaAll, "feedback"); err == nil {
		t.Fatalf("expected regeneration to fail")
	}

	// The old image survives a failed rewrite.
	if _, ok := assets.objects[oldKey]; !ok {
		t.Fatalf("old image must not be deleted when the text stage fails")
	}
	got, _ := r.item.Get(item.ID)
	if got.ImageKey == nil || *got.ImageKey != oldKey {
		t.Fatalf("item should keep its image key, got %v", got.ImageKey)
	}
	if got.GenerationLog == "" {
		t.Fatalf("a failure note should be recorded")
	}
}

func TestRegenerateImageFailureReturnsItem(t *testing.T) {
	r := newRepos(newTestDB(t))
	project := seedProject(t, r, 1, "")
	request := seedRequest(t, r, project.ID, "1:1")
	item := seedItem(t, r, request.ID, model.ItemStatusImageDone)

	imageClient := &fakeImage{createFunc: func(prompt, size string) (*imagen.ImageResult, error) {
		return nil, errors.New("provider exploded")
	}}

	svc := newRegenerator(r, &fakeLLM{}, imageClient, newFakeAssets())
	got, err := svc.Regenerate(context.Background(), 1, item.ID, QuotaImage, "")
	if err != nil {
		t.Fatalf("a failed image sub-step should not error the call: %v", err)
	}
	if got.ImageKey != nil {
		t.Fatalf("item should come back with a null image, got %v", *got.ImageKey)
	}
	if got.Status != model.ItemStatusImageFailed || got.GenerationLog == "" {
		t.Fatalf("failure should be recorded on the item: %+v", got)
	}
}

func TestRegenerateQuotaExceeded(t *testing.T) {
	r := newRepos(newTestDB(t))
	project := seedProject(t, r, 1, "")
	request := seedRequest(t, r, project.ID, "1:1")
	item := seedItem(t, r, request.ID, model.ItemStatusImageDone)

	llmClient := &fakeLLM{completeFunc: func(req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Message: `{"caption":"new"}`}, nil
	}}
	svc := newRegenerator(r, llmClient, &fakeImage{}, newFakeAssets())

	cfg := newTestConfig()
	for i := 0; i < cfg.Quota.DailyRegenerateLimit; i++ {
		if _, err := svc.Regenerate(context.Background(), 1, item.ID, QuotaCaption, ""); err != nil {
			t.Fatalf("regeneration %d error: %v", i+1, err)
		}
	}

	calls := llmClient.callCount()
	_, err := svc.Regenerate(context.Background(), 1, item.ID, QuotaCaption, "")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if llmClient.callCount() != calls {
		t.Fatalf("a rejected regeneration must not call the model")
	}
}

func TestRegenerateForeignItem(t *testing.T) {
	r := newRepos(newTestDB(t))
	project := seedProject(t, r, 2, "")
	request := seedRequest(t, r, project.ID, "1:1")
	item := seedItem(t, r, request.ID, model.ItemStatusImageDone)

	svc := newRegenerator(r, &fakeLLM{}, &fakeImage{}, newFakeAssets())
	if _, err := svc.Regenerate(context.Background(), 1, item.ID, QuotaCaption, ""); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user's item, got %v", err)
	}
}

func TestRegenerateUnknownKind(t *testing.T) {
	r := newRepos(newTestDB(t))
	project := seedProject(t, r, 1, "")
	request := seedRequest(t, r, project.ID, "1:1")
	item := seedItem(t, r, request.ID, model.ItemStatusImageDone)

	svc := newRegenerator(r, &fakeLLM{}, &fakeImage{}, newFakeAssets())
	if _, err := svc.Regenerate(context.Background(), 1, item.ID, "everything", ""); err == nil {
		t.Fatalf("unknown kind should be rejected")
	}
}
