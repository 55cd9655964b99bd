package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/contentpilot/backend/internal/model"
	"github.com/contentpilot/backend/internal/pkg/llm"
	"github.com/contentpilot/backend/internal/repository"
	"github.com/contentpilot/backend/internal/utils"
)

// RegenerateService redoes parts of a finished item on user request: the
// caption text, the image, or the whole item. Each kind draws from its own
// daily quota, consumed before any work starts.
type RegenerateService struct {
	pipeline    *PipelineService
	llm         CompletionClient
	assets      AssetStore
	quota       *QuotaService
	projectRepo repository.ProjectRepository
	requestRepo repository.ContentRequestRepository
	itemRepo    repository.ContentItemRepository
}

func NewRegenerateService(
	pipeline *PipelineService,
	llmClient CompletionClient,
	assets AssetStore,
	quota *QuotaService,
	projectRepo repository.ProjectRepository,
	requestRepo repository.ContentRequestRepository,
	itemRepo repository.ContentItemRepository,
) *RegenerateService {
	return &RegenerateService{
		pipeline:    pipeline,
		llm:         llmClient,
		assets:      assets,
		quota:       quota,
		projectRepo: projectRepo,
		requestRepo: requestRepo,
		itemRepo:    itemRepo,
	}
}

// Regenerate runs one regeneration of the given kind synchronously and
// returns the refreshed item. The quota unit is spent even when the
// regeneration itself fails afterwards.
func (s *RegenerateService) Regenerate(ctx context.Context, userID, itemID uint, kind, feedback string) (*model.ContentItem, error) {
	switch kind {
	case QuotaCaption, QuotaImage, QuotaAll:
	default:
		return nil, fmt.Errorf("unknown regeneration kind: %s", kind)
	}

	item, err := s.itemRepo.Get(itemID)
	if err != nil {
		return nil, err
	}
	request, err := s.requestRepo.Get(item.ContentRequestID)
	if err != nil {
		return nil, err
	}
	project, err := s.projectRepo.Get(request.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.UserID != userID {
		return nil, repository.ErrNotFound
	}

	if err := s.quota.CheckAndConsume(userID, kind); err != nil {
		return nil, err
	}

	switch kind {
	case QuotaCaption:
		err = s.regenerateCaption(ctx, request, item, feedback)
	case QuotaImage:
		err = s.regenerateImage(ctx, project, request, item)
	case QuotaAll:
		err = s.regenerateAll(ctx, project, request, item, feedback)
	}
	if err != nil {
		return nil, err
	}
	return s.itemRepo.Get(itemID)
}

func (s *RegenerateService) regenerateCaption(ctx context.Context, request *model.ContentRequest, item *model.ContentItem, feedback string) error {
	result, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Role:      captionRole,
		Prompt:    captionPrompt(request, item, feedback),
		MaxTokens: captionMaxTokens,
		JSONMode:  true,
	})
	if err != nil {
		return fmt.Errorf("caption regeneration: %w", err)
	}

	var resp captionResponse
	if err := json.Unmarshal([]byte(utils.ExtractJSON(result.Message)), &resp); err != nil {
		return fmt.Errorf("malformed caption response: %w", err)
	}
	if resp.Caption == "" {
		return errors.New("empty caption in response")
	}
	return s.itemRepo.UpdateCaption(item.ID, utils.Truncate(resp.Caption, maxCaptionLen), result.TotalTokens)
}

// regenerateImage discards the stored image and reruns the image stage with
// the existing prompt.
func (s *RegenerateService) regenerateImage(ctx context.Context, project *model.Project, request *model.ContentRequest, item *model.ContentItem) error {
	if !item.TextReady() {
		return errors.New("item has no generated prompt to regenerate an image from")
	}
	if err := s.discardImage(ctx, item); err != nil {
		return err
	}
	// An image failure is recorded on the item, not surfaced: the caller gets
	// the item back with a null image and the failure note.
	if err := s.pipeline.imageStage(ctx, project, request, item); err != nil {
		klog.Warningf("image regeneration failed: itemID=%d, err=%v", item.ID, err)
	}
	return nil
}

// regenerateAll redoes the text stage with the user's feedback and then the
// image. The old image is only discarded once the new text exists, so a text
// failure leaves the item intact apart from the spent quota and the log note.
func (s *RegenerateService) regenerateAll(ctx context.Context, project *model.Project, request *model.ContentRequest, item *model.ContentItem, feedback string) error {
	if err := s.pipeline.textStage(ctx, request, item, feedback); err != nil {
		return err
	}
	if err := s.discardImage(ctx, item); err != nil {
		return err
	}
	if err := s.pipeline.imageStage(ctx, project, request, item); err != nil {
		klog.Warningf("image regeneration failed: itemID=%d, err=%v", item.ID, err)
	}
	return nil
}

// discardImage deletes the stored asset (if any) and resets the item to
// text_done so the image stage can run again.
func (s *RegenerateService) discardImage(ctx context.Context, item *model.ContentItem) error {
	if item.ImageKey != nil && *item.ImageKey != "" {
		if _, err := s.assets.Delete(ctx, *item.ImageKey); err != nil {
			klog.Warningf("failed to delete replaced image, continuing: key=%s, err=%v", *item.ImageKey, err)
		}
	}
	if err := s.itemRepo.ClearImage(item.ID, model.ItemStatusTextDone); err != nil {
		return err
	}
	item.ImageKey = nil
	item.Status = model.ItemStatusTextDone
	return nil
}
