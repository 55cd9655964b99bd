package service

import (
	"errors"
	"time"

	"k8s.io/klog/v2"

	"github.com/contentpilot/backend/config"
	"github.com/contentpilot/backend/internal/model"
	"github.com/contentpilot/backend/internal/repository"
)

// Quota kinds. Create counts plan requests; the other three count
// regenerations per item type.
const (
	QuotaCreate  = "create"
	QuotaCaption = "caption"
	QuotaImage   = "image"
	QuotaAll     = "all"
)

// QuotaService enforces the per-user daily limits. Days roll over at local
// midnight in the configured timezone, not UTC.
type QuotaService struct {
	cfg         *config.Config
	requestRepo repository.ContentRequestRepository
	regenRepo   repository.RegenerateLogRepository
	loc         *time.Location
	now         func() time.Time
}

func NewQuotaService(cfg *config.Config, requestRepo repository.ContentRequestRepository, regenRepo repository.RegenerateLogRepository) *QuotaService {
	loc, err := time.LoadLocation(cfg.Pipeline.Timezone)
	if err != nil {
		klog.Warningf("invalid timezone %q, falling back to UTC: %v", cfg.Pipeline.Timezone, err)
		loc = time.UTC
	}
	return &QuotaService{
		cfg:         cfg,
		requestRepo: requestRepo,
		regenRepo:   regenRepo,
		loc:         loc,
		now:         time.Now,
	}
}

// CheckAndConsume verifies the user's remaining quota for kind today and, for
// regeneration kinds, consumes one unit atomically. Returns ErrQuotaExceeded
// when the limit is already spent. Create quota is not consumed here: the
// request row written by the planner is itself the counted unit.
func (s *QuotaService) CheckAndConsume(userID uint, kind string) error {
	switch kind {
	case QuotaCreate:
		return s.checkCreate(userID)
	case QuotaCaption, QuotaImage, QuotaAll:
		return s.consumeRegenerate(userID, kind)
	default:
		return errors.New("unknown quota kind: " + kind)
	}
}

func (s *QuotaService) checkCreate(userID uint) error {
	from, to := s.dayWindow()
	count, err := s.requestRepo.CountCreatedBetween(userID, from, to)
	if err != nil {
		return err
	}
	if count >= int64(s.cfg.Quota.DailyCreateLimit) {
		klog.V(6).Infof("create quota exhausted for user %d: %d today", userID, count)
		return ErrQuotaExceeded
	}
	return nil
}

func (s *QuotaService) consumeRegenerate(userID uint, kind string) error {
	day := s.today()
	limit := s.cfg.Quota.DailyRegenerateLimit

	_, err := s.regenRepo.Get(userID, day)
	if errors.Is(err, repository.ErrNotFound) {
		log := &model.RegenerateLog{UserID: userID, Day: day}
		switch kind {
		case QuotaCaption:
			log.CaptionCount = 1
		case QuotaImage:
			log.ImageCount = 1
		case QuotaAll:
			log.AllCount = 1
		}
		if createErr := s.regenRepo.Create(log); createErr == nil {
			return nil
		} else if _, getErr := s.regenRepo.Get(userID, day); getErr != nil {
			// The row still does not exist, so the insert failed outright
			// rather than losing the unique index race.
			return createErr
		}
		// Concurrent insert won the race; fall through to the conditional
		// increment.
	} else if err != nil {
		return err
	}

	ok, err := s.regenRepo.IncrementIfBelow(userID, day, kind, limit)
	if err != nil {
		return err
	}
	if !ok {
		klog.V(6).Infof("%s regenerate quota exhausted for user %d on %s", kind, userID, day)
		return ErrQuotaExceeded
	}
	return nil
}

func (s *QuotaService) today() string {
	return s.now().In(s.loc).Format("2006-01-02")
}

func (s *QuotaService) dayWindow() (time.Time, time.Time) {
	local := s.now().In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return start, start.Add(24 * time.Hour)
}

// Today exposes the local calendar day, used by the planner when anchoring
// the posting schedule.
func (s *QuotaService) Today() time.Time {
	local := s.now().In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}
