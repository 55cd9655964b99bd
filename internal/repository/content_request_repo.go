package repository

import (
	"errors"
	"time"

	"github.com/contentpilot/backend/internal/model"
	"gorm.io/gorm"
)

type contentRequestRepository struct {
	db *gorm.DB
}

func NewContentRequestRepository(db *gorm.DB) ContentRequestRepository {
	return &contentRequestRepository{db: db}
}

func (r *contentRequestRepository) Create(request *model.ContentRequest) error {
	return r.db.Create(request).Error
}

func (r *contentRequestRepository) Get(id uint) (*model.ContentRequest, error) {
	var request model.ContentRequest
	err := r.db.First(&request, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *contentRequestRepository) GetLatestByProject(projectID uint) (*model.ContentRequest, error) {
	var request model.ContentRequest
	err := r.db.Where("project_id = ?", projectID).Order("id DESC").First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *contentRequestRepository) ListByProject(projectID uint) ([]model.ContentRequest, error) {
	var requests []model.ContentRequest
	err := r.db.Where("project_id = ?", projectID).Order("id DESC").Find(&requests).Error
	return requests, err
}

// CountCreatedBetween counts a user's planning runs inside a day window,
// resolving ownership through the project row.
func (r *contentRequestRepository) CountCreatedBetween(userID uint, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.ContentRequest{}).
		Joins("JOIN projects ON projects.id = content_requests.project_id").
		Where("projects.user_id = ? AND content_requests.created_at >= ? AND content_requests.created_at < ?", userID, from, to).
		Count(&count).Error
	return count, err
}

// UnfinishedIDs returns recent requests that still have items without an
// image. Used by startup recovery to resume interrupted pipelines.
func (r *contentRequestRepository) UnfinishedIDs(since time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.ContentItem{}).
		Distinct("content_items.content_request_id").
		Joins("JOIN content_requests ON content_requests.id = content_items.content_request_id").
		Where("content_items.image_key IS NULL AND content_requests.created_at >= ?", since).
		Pluck("content_items.content_request_id", &ids).Error
	return ids, err
}
