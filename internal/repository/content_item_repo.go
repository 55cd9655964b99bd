package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/contentpilot/backend/internal/model"
	"gorm.io/gorm"
)

type contentItemRepository struct {
	db *gorm.DB
}

func NewContentItemRepository(db *gorm.DB) ContentItemRepository {
	return &contentItemRepository{db: db}
}

func (r *contentItemRepository) Create(item *model.ContentItem) error {
	return r.db.Create(item).Error
}

func (r *contentItemRepository) Get(id uint) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.db.First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetByRequest returns a request's items in planner-assigned order.
func (r *contentItemRepository) GetByRequest(requestID uint) ([]model.ContentItem, error) {
	var items []model.ContentItem
	err := r.db.Where("content_request_id = ?", requestID).Order("id").Find(&items).Error
	return items, err
}

func (r *contentItemRepository) Save(item *model.ContentItem) error {
	return r.db.Save(item).Error
}

func (r *contentItemRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&model.ContentItem{}).Where("id = ?", id).
		Update("status", status).Error
}

// UpdateText stores the brief produced by the text stage.
func (r *contentItemRepository) UpdateText(id uint, prompt, caption string, tokens int, status string) error {
	return r.db.Model(&model.ContentItem{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"ai_prompt":   prompt,
			"caption":     caption,
			"text_tokens": tokens,
			"status":      status,
		}).Error
}

// UpdateImage stores the generated image key.
func (r *contentItemRepository) UpdateImage(id uint, imageKey string, tokens int, status string) error {
	return r.db.Model(&model.ContentItem{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"image_key":    imageKey,
			"image_tokens": tokens,
			"status":       status,
		}).Error
}

func (r *contentItemRepository) UpdateCaption(id uint, caption string, tokens int) error {
	return r.db.Model(&model.ContentItem{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"caption":     caption,
			"text_tokens": tokens,
		}).Error
}

// RecordFailure overwrites the item's error note and moves it to a failed
// status. The note is what clients see when polling a stalled item.
func (r *contentItemRepository) RecordFailure(id uint, note, status string) error {
	return r.db.Model(&model.ContentItem{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"generation_log": note,
			"status":         status,
		}).Error
}

// ClearImage nulls the image column ahead of a regeneration.
func (r *contentItemRepository) ClearImage(id uint, status string) error {
	return r.db.Model(&model.ContentItem{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"image_key": nil,
			"status":    status,
		}).Error
}

// FailStuck marks items sitting in a pending status beyond timeout as failed.
// Covers pipelines that died between checkpoint writes.
func (r *contentItemRepository) FailStuck(pendingStatus string, timeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-timeout)
	result := r.db.Model(&model.ContentItem{}).
		Where("status = ? AND updated_at < ?", pendingStatus, cutoff).
		Updates(map[string]interface{}{
			"status":         model.ItemStatusTextFailed,
			"generation_log": fmt.Sprintf("stuck in %s for over %v, marked failed", pendingStatus, timeout),
		})
	return result.RowsAffected, result.Error
}
