package repository

import (
	"errors"
	"time"

	"github.com/contentpilot/backend/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

type ProjectRepository interface {
	Create(project *model.Project) error
	Get(id uint) (*model.Project, error)
	GetByUser(userID uint) (*model.Project, error)
	Save(project *model.Project) error
}

type ContentRequestRepository interface {
	Create(request *model.ContentRequest) error
	Get(id uint) (*model.ContentRequest, error)
	GetLatestByProject(projectID uint) (*model.ContentRequest, error)
	ListByProject(projectID uint) ([]model.ContentRequest, error)
	CountCreatedBetween(userID uint, from, to time.Time) (int64, error)
	UnfinishedIDs(since time.Time) ([]uint, error)
}

type ContentItemRepository interface {
	Create(item *model.ContentItem) error
	Get(id uint) (*model.ContentItem, error)
	GetByRequest(requestID uint) ([]model.ContentItem, error)
	Save(item *model.ContentItem) error
	UpdateStatus(id uint, status string) error
	UpdateText(id uint, prompt, caption string, tokens int, status string) error
	UpdateImage(id uint, imageKey string, tokens int, status string) error
	UpdateCaption(id uint, caption string, tokens int) error
	RecordFailure(id uint, note, status string) error
	ClearImage(id uint, status string) error
	FailStuck(pendingStatus string, timeout time.Duration) (int64, error)
}

type RegenerateLogRepository interface {
	Get(userID uint, day string) (*model.RegenerateLog, error)
	Create(log *model.RegenerateLog) error
	// IncrementIfBelow bumps the counter for kind atomically, refusing once
	// the counter has reached limit. Returns whether a row was updated.
	IncrementIfBelow(userID uint, day, kind string, limit int) (bool, error)
}
