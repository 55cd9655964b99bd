package repository

import (
	"errors"
	"fmt"

	"github.com/contentpilot/backend/internal/model"
	"gorm.io/gorm"
)

type regenerateLogRepository struct {
	db *gorm.DB
}

func NewRegenerateLogRepository(db *gorm.DB) RegenerateLogRepository {
	return &regenerateLogRepository{db: db}
}

func (r *regenerateLogRepository) Get(userID uint, day string) (*model.RegenerateLog, error) {
	var log model.RegenerateLog
	err := r.db.Where("user_id = ? AND day = ?", userID, day).First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

func (r *regenerateLogRepository) Create(log *model.RegenerateLog) error {
	return r.db.Create(log).Error
}

// IncrementIfBelow performs the quota bump as one conditional update, so the
// check and the increment cannot interleave across concurrent requests.
func (r *regenerateLogRepository) IncrementIfBelow(userID uint, day, kind string, limit int) (bool, error) {
	column, err := kindColumn(kind)
	if err != nil {
		return false, err
	}

	result := r.db.Model(&model.RegenerateLog{}).
		Where(fmt.Sprintf("user_id = ? AND day = ? AND %s < ?", column), userID, day, limit).
		Update(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// kindColumn maps a regeneration kind to its counter column. Kinds are a
// closed set; anything else is a programming error.
func kindColumn(kind string) (string, error) {
	switch kind {
	case "caption":
		return "caption_count", nil
	case "image":
		return "image_count", nil
	case "all":
		return "all_count", nil
	default:
		return "", fmt.Errorf("unknown regeneration kind: %s", kind)
	}
}
