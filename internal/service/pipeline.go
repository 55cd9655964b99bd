package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/contentpilot/backend/config"
	"github.com/contentpilot/backend/internal/model"
	"github.com/contentpilot/backend/internal/pkg/imagen"
	"github.com/contentpilot/backend/internal/pkg/llm"
	"github.com/contentpilot/backend/internal/repository"
	"github.com/contentpilot/backend/internal/service/statemachine"
	"github.com/contentpilot/backend/internal/utils"
)

// PipelineService generates text briefs and images for the items of a
// content request. It runs on the orchestrator workers and is safe to re-run
// on the same request: items that already completed a stage are skipped, so a
// crashed or retried job resumes where it stopped.
type PipelineService struct {
	cfg          *config.Config
	llm          CompletionClient
	image        ImageClient
	assets       AssetStore
	stateMachine *statemachine.ItemStateMachine
	projectRepo  repository.ProjectRepository
	requestRepo  repository.ContentRequestRepository
	itemRepo     repository.ContentItemRepository
}

func NewPipelineService(
	cfg *config.Config,
	llmClient CompletionClient,
	imageClient ImageClient,
	assets AssetStore,
	projectRepo repository.ProjectRepository,
	requestRepo repository.ContentRequestRepository,
	itemRepo repository.ContentItemRepository,
) *PipelineService {
	return &PipelineService{
		cfg:          cfg,
		llm:          llmClient,
		image:        imageClient,
		assets:       assets,
		stateMachine: statemachine.NewItemStateMachine(),
		projectRepo:  projectRepo,
		requestRepo:  requestRepo,
		itemRepo:     itemRepo,
	}
}

// ExecuteRequest processes every item of a request in batches. Items inside a
// batch run concurrently; batches are separated by a cooldown so the upstream
// APIs are not hammered. One failed item never stops the others.
func (s *PipelineService) ExecuteRequest(ctx context.Context, contentRequestID uint) error {
	request, err := s.requestRepo.Get(contentRequestID)
	if err != nil {
		return fmt.Errorf("load content request %d: %w", contentRequestID, err)
	}
	project, err := s.projectRepo.Get(request.ProjectID)
	if err != nil {
		return fmt.Errorf("load project %d: %w", request.ProjectID, err)
	}
	items, err := s.itemRepo.GetByRequest(contentRequestID)
	if err != nil {
		return fmt.Errorf("load items of request %d: %w", contentRequestID, err)
	}

	batchSize := s.cfg.Pipeline.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		klog.V(6).Infof("processing batch: contentRequestID=%d, items %d-%d of %d",
			contentRequestID, start+1, end, len(items))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			item := &items[i]
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.processItem(ctx, project, request, item)
			}()
		}
		wg.Wait()

		if end < len(items) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.Pipeline.BatchCooldown):
			}
		}
	}
	return nil
}

// processItem runs the remaining stages for one item. Failures are recorded
// on the item itself, never returned: partial failure is the normal mode.
func (s *PipelineService) processItem(ctx context.Context, project *model.Project, request *model.ContentRequest, item *model.ContentItem) {
	if item.Complete() {
		klog.V(6).Infof("item already complete, skipping: itemID=%d", item.ID)
		return
	}

	if !item.TextReady() {
		if err := s.textStage(ctx, request, item, ""); err != nil {
			klog.Errorf("text stage failed: itemID=%d, err=%v", item.ID, err)
			return
		}
	}

	if err := s.imageStage(ctx, project, request, item); err != nil {
		klog.Errorf("image stage failed: itemID=%d, err=%v", item.ID, err)
	}
}

// textStage generates the image prompt and caption for an item. On failure
// the item is marked text_failed with a log note and the error is returned so
// the caller skips the image stage.
func (s *PipelineService) textStage(ctx context.Context, request *model.ContentRequest, item *model.ContentItem, feedback string) error {
	if err := s.moveStatus(item, model.ItemStatusTextPending); err != nil {
		return err
	}

	result, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Role:      briefRole,
		Prompt:    briefPrompt(request, item.Subject, feedback),
		MaxTokens: briefMaxTokens,
		JSONMode:  true,
	})
	if err != nil {
		s.recordFailure(item, utils.Truncate(err.Error(), maxErrorNoteLen), model.ItemStatusTextFailed)
		return err
	}

	var brief briefResponse
	if err := json.Unmarshal([]byte(utils.ExtractJSON(result.Message)), &brief); err != nil {
		s.recordFailure(item, "malformed text response", model.ItemStatusTextFailed)
		return fmt.Errorf("malformed text response: %w", err)
	}
	if brief.AIPrompt == "" {
		s.recordFailure(item, "empty image prompt in text response", model.ItemStatusTextFailed)
		return errors.New("empty image prompt in text response")
	}

	prompt := utils.Truncate(brief.AIPrompt, maxAIPromptLen)
	caption := utils.Truncate(brief.Caption, maxCaptionLen)
	if err := s.itemRepo.UpdateText(item.ID, prompt, caption, result.TotalTokens, model.ItemStatusTextDone); err != nil {
		return err
	}
	item.AIPrompt = &prompt
	item.Caption = &caption
	item.Status = model.ItemStatusTextDone
	item.TextTokens = result.TotalTokens
	return nil
}

// imageStage generates and stores the item's image. A rate-limited call is
// retried after a fixed delay; any other error fails the item immediately.
func (s *PipelineService) imageStage(ctx context.Context, project *model.Project, request *model.ContentRequest, item *model.ContentItem) error {
	if item.AIPrompt == nil || *item.AIPrompt == "" {
		return errors.New("image stage requires a generated prompt")
	}
	prompt := *item.AIPrompt

	reference := s.referenceImage(ctx, project, item)
	size := imageSize(request.ImageRatio, reference != nil)

	result, attempts, err := s.generateWithRetry(ctx, prompt, reference, size)
	if err != nil {
		note := utils.Truncate(err.Error(), maxErrorNoteLen)
		if errors.Is(err, imagen.ErrRateLimited) {
			note = fmt.Sprintf("429 limit exceeded after %d attempts", attempts)
		}
		s.recordFailure(item, note, model.ItemStatusImageFailed)
		return err
	}

	key := fmt.Sprintf("%d/content/%s.png", project.UserID, uuid.NewString())
	if err := s.assets.Upload(ctx, key, result.Data, "image/png"); err != nil {
		s.recordFailure(item, utils.Truncate(err.Error(), maxErrorNoteLen), model.ItemStatusImageFailed)
		return fmt.Errorf("upload image: %w", err)
	}
	if err := s.itemRepo.UpdateImage(item.ID, key, result.Tokens, model.ItemStatusImageDone); err != nil {
		return err
	}
	item.ImageKey = &key
	item.Status = model.ItemStatusImageDone
	item.ImageTokens = result.Tokens
	klog.V(6).Infof("image stored: itemID=%d, key=%s, attempts=%d", item.ID, key, attempts)
	return nil
}

// generateWithRetry calls the image API, retrying only on rate limiting and
// only up to the configured count. Returns how many attempts were made.
func (s *PipelineService) generateWithRetry(ctx context.Context, prompt string, reference []byte, size string) (*imagen.ImageResult, int, error) {
	maxAttempts := s.cfg.Pipeline.ImageMaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var result *imagen.ImageResult
		var err error
		if reference != nil {
			result, err = s.image.Edit(ctx, prompt, reference, size)
		} else {
			result, err = s.image.Create(ctx, prompt, size)
		}
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err
		if !errors.Is(err, imagen.ErrRateLimited) || attempt == maxAttempts {
			return nil, attempt, err
		}
		klog.Warningf("image API rate limited, retrying after %s (attempt %d/%d)",
			s.cfg.Pipeline.ImageRetryDelay, attempt, maxAttempts)
		select {
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		case <-time.After(s.cfg.Pipeline.ImageRetryDelay):
		}
	}
	return nil, maxAttempts, lastErr
}

// referenceImage picks the reference image for an item, rotating through the
// project's stored references by item ID. A fetch failure degrades to
// generating without a reference.
func (s *PipelineService) referenceImage(ctx context.Context, project *model.Project, item *model.ContentItem) []byte {
	refs := project.ReferenceImages()
	if len(refs) == 0 {
		return nil
	}
	key := refs[int(item.ID-1)%len(refs)]
	data, err := s.assets.Get(ctx, key)
	if err != nil {
		klog.Warningf("reference image unavailable, generating without it: key=%s, err=%v", key, err)
		return nil
	}
	return data
}

// imageSize maps the requested aspect ratio to an API size string. Edits with
// a reference image only support square and portrait output.
func imageSize(ratio string, hasReference bool) string {
	if hasReference {
		if ratio == "1:1" {
			return imagen.SizeSquare
		}
		return imagen.SizePortrait
	}
	switch ratio {
	case "2:3":
		return imagen.SizePortrait
	case "3:2":
		return imagen.SizeLandscape
	default:
		return imagen.SizeSquare
	}
}

func (s *PipelineService) moveStatus(item *model.ContentItem, to string) error {
	newStatus, err := s.stateMachine.Transition(item.Status, to)
	if err != nil {
		return err
	}
	if err := s.itemRepo.UpdateStatus(item.ID, newStatus); err != nil {
		return err
	}
	item.Status = newStatus
	return nil
}

func (s *PipelineService) recordFailure(item *model.ContentItem, note, status string) {
	if err := s.itemRepo.RecordFailure(item.ID, note, status); err != nil {
		klog.Errorf("failed to record item failure: itemID=%d, err=%v", item.ID, err)
	}
	item.GenerationLog = note
	item.Status = status
}
