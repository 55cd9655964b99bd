package model

import (
	"strings"
	"time"
)

// Project holds the brand information a content run is generated for.
// Reference images are stored as comma-joined object storage keys.
type Project struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	Category    string    `json:"category" gorm:"size:100"`
	URL         string    `json:"url" gorm:"size:500"`
	ImageList   string    `json:"image_list" gorm:"size:2000"`
	ReasonList  string    `json:"reason_list" gorm:"size:1000"`
	Description string    `json:"description" gorm:"size:2000"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	ContentRequests []ContentRequest `json:"content_requests,omitempty" gorm:"foreignKey:ProjectID"`
}

// ReferenceImages splits the stored image list into individual asset keys.
func (p *Project) ReferenceImages() []string {
	if p.ImageList == "" {
		return nil
	}
	return strings.Split(p.ImageList, ",")
}

// ContentRequest is one calendar-planning run and its campaign parameters.
// Immutable once created except for the token counters.
type ContentRequest struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	ProjectID        uint      `json:"project_id" gorm:"index;not null"`
	TrendIssue       string    `json:"trend_issue" gorm:"size:500"`
	SnsEvent         string    `json:"sns_event" gorm:"size:500"`
	EssentialKeyword string    `json:"essential_keyword" gorm:"size:500"`
	Competitor       string    `json:"competitor" gorm:"size:500"`
	UploadCycle      int       `json:"upload_cycle" gorm:"not null"` // posts per week, 1-4
	ToneMannerList   string    `json:"tone_manner_list" gorm:"size:1000"` // JSON array
	DirectionList    string    `json:"direction_list" gorm:"size:1000"`   // JSON array
	ImageRatio       string    `json:"image_ratio" gorm:"size:10"` // 1:1, 2:3, 3:2
	SearchResult     string    `json:"search_result" gorm:"size:1000"`
	SearchTokens     int       `json:"search_tokens" gorm:"default:0"`
	SubjectTokens    int       `json:"subject_tokens" gorm:"default:0"`
	CreatedAt        time.Time `json:"created_at"`

	Items []ContentItem `json:"items,omitempty" gorm:"foreignKey:ContentRequestID;constraint:OnDelete:CASCADE"`
}

// Content item statuses. See statemachine for the allowed transitions.
const (
	ItemStatusPlanned     = "planned"      // created by the planner, nothing generated
	ItemStatusTextPending = "text_pending" // picked up by a batch
	ItemStatusTextDone    = "text_done"    // brief + caption stored
	ItemStatusTextFailed  = "text_failed"  // text stage failed, image stage skipped
	ItemStatusImageDone   = "image_done"   // image stored, item complete
	ItemStatusImageFailed = "image_failed" // image stage failed, recoverable via regeneration
)

// ContentItem is one planned post. The nullable columns double as the durable
// progress checkpoint: a restarted pipeline skips whatever is already filled.
type ContentItem struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	ContentRequestID uint      `json:"content_request_id" gorm:"index;not null"`
	PostDate         string    `json:"post_date" gorm:"size:10;not null"` // YYYY-MM-DD
	Subject          string    `json:"subject" gorm:"size:60"`
	Direction        string    `json:"direction" gorm:"size:50"`
	AIPrompt         *string   `json:"ai_prompt" gorm:"column:ai_prompt;size:300"`
	Caption          *string   `json:"caption" gorm:"size:500"`
	ImageKey         *string   `json:"image_key" gorm:"size:255"`
	Status           string    `json:"status" gorm:"size:20;default:planned"`
	GenerationLog    string    `json:"generation_log" gorm:"size:255"`
	TextTokens       int       `json:"text_tokens" gorm:"default:0"`
	ImageTokens      int       `json:"image_tokens" gorm:"default:0"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Complete reports whether the item reached its terminal success state.
func (i *ContentItem) Complete() bool {
	return i.ImageKey != nil && *i.ImageKey != ""
}

// TextReady reports whether the text stage has produced a brief.
func (i *ContentItem) TextReady() bool {
	return i.AIPrompt != nil && *i.AIPrompt != ""
}

// RegenerateLog counts regeneration actions per user per civil day.
// A missing row for a new day means the counters implicitly reset.
type RegenerateLog struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"uniqueIndex:idx_regen_user_day;not null"`
	Day          string    `json:"day" gorm:"size:10;uniqueIndex:idx_regen_user_day;not null"` // YYYY-MM-DD
	CaptionCount int       `json:"caption_count" gorm:"default:0"`
	ImageCount   int       `json:"image_count" gorm:"default:0"`
	AllCount     int       `json:"all_count" gorm:"default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
