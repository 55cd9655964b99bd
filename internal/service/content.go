package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/contentpilot/backend/internal/model"
	"github.com/contentpilot/backend/internal/repository"
	"github.com/contentpilot/backend/internal/utils"
)

// presignExpiry bounds how long a handed-out image download link stays valid.
const presignExpiry = 15 * time.Minute

// RequestDetail is a content request with its items and progress counters.
type RequestDetail struct {
	Request   *model.ContentRequest `json:"request"`
	Items     []model.ContentItem   `json:"items"`
	Total     int                   `json:"total"`
	Completed int                   `json:"completed"`
	Failed    int                   `json:"failed"`
}

// ContentService serves the read and edit operations on existing requests
// and items.
type ContentService struct {
	assets      AssetStore
	projectRepo repository.ProjectRepository
	requestRepo repository.ContentRequestRepository
	itemRepo    repository.ContentItemRepository
}

func NewContentService(
	assets AssetStore,
	projectRepo repository.ProjectRepository,
	requestRepo repository.ContentRequestRepository,
	itemRepo repository.ContentItemRepository,
) *ContentService {
	return &ContentService{
		assets:      assets,
		projectRepo: projectRepo,
		requestRepo: requestRepo,
		itemRepo:    itemRepo,
	}
}

// GetRequestDetail loads a request with its items and derives the progress
// counters the calendar view shows.
func (s *ContentService) GetRequestDetail(userID, requestID uint) (*RequestDetail, error) {
	request, err := s.ownedRequest(userID, requestID)
	if err != nil {
		return nil, err
	}
	items, err := s.itemRepo.GetByRequest(requestID)
	if err != nil {
		return nil, err
	}

	detail := &RequestDetail{Request: request, Items: items, Total: len(items)}
	for i := range items {
		switch items[i].Status {
		case model.ItemStatusImageDone:
			detail.Completed++
		case model.ItemStatusTextFailed, model.ItemStatusImageFailed:
			detail.Failed++
		}
	}
	return detail, nil
}

// ListRequests returns the user's requests for a project, newest first.
func (s *ContentService) ListRequests(userID, projectID uint) ([]model.ContentRequest, error) {
	if err := s.checkProjectOwner(userID, projectID); err != nil {
		return nil, err
	}
	return s.requestRepo.ListByProject(projectID)
}

// LatestRequest returns the most recent request of the user's project.
func (s *ContentService) LatestRequest(userID, projectID uint) (*model.ContentRequest, error) {
	if err := s.checkProjectOwner(userID, projectID); err != nil {
		return nil, err
	}
	return s.requestRepo.GetLatestByProject(projectID)
}

// UpdateCaption applies a manual caption edit. Unlike regeneration this costs
// no quota and no tokens.
func (s *ContentService) UpdateCaption(userID, itemID uint, caption string) (*model.ContentItem, error) {
	item, err := s.ownedItem(userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.itemRepo.UpdateCaption(item.ID, utils.Truncate(caption, maxCaptionLen), 0); err != nil {
		return nil, err
	}
	return s.itemRepo.Get(itemID)
}

// ImageDownloadURL hands out a short-lived presigned link for the item's
// stored image.
func (s *ContentService) ImageDownloadURL(ctx context.Context, userID, itemID uint) (string, error) {
	item, err := s.ownedItem(userID, itemID)
	if err != nil {
		return "", err
	}
	if item.ImageKey == nil || *item.ImageKey == "" {
		return "", errors.New("item has no image")
	}
	fileName := fmt.Sprintf("%s_%s.png", item.PostDate, utils.Truncate(item.Subject, 30))
	return s.assets.PresignDownload(ctx, *item.ImageKey, fileName, presignExpiry)
}

func (s *ContentService) checkProjectOwner(userID, projectID uint) error {
	project, err := s.projectRepo.Get(projectID)
	if err != nil {
		return err
	}
	if project.UserID != userID {
		return repository.ErrNotFound
	}
	return nil
}

func (s *ContentService) ownedRequest(userID, requestID uint) (*model.ContentRequest, error) {
	request, err := s.requestRepo.Get(requestID)
	if err != nil {
		return nil, err
	}
	if err := s.checkProjectOwner(userID, request.ProjectID); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *ContentService) ownedItem(userID, itemID uint) (*model.ContentItem, error) {
	item, err := s.itemRepo.Get(itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedRequest(userID, item.ContentRequestID); err != nil {
		return nil, err
	}
	return item, nil
}
