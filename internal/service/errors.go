package service

import "errors"

var (
	// ErrQuotaExceeded rejects an action before any generation work begins.
	ErrQuotaExceeded = errors.New("daily quota exceeded")

	// ErrPlanningFailed aborts a whole creation request. Nothing beyond the
	// already-written rows is persisted when planning fails.
	ErrPlanningFailed = errors.New("calendar planning failed")
)
