package statemachine

import (
	"fmt"

	"github.com/contentpilot/backend/internal/model"
	"k8s.io/klog/v2"
)

// ItemTransition is one allowed status move for a content item.
type ItemTransition struct {
	From string
	To   string
}

// ItemStateMachine validates content item status changes. An item only moves
// forward through the generation stages; going backward requires an explicit
// regeneration, which re-enters at text_pending or text_done.
type ItemStateMachine struct {
	allowedTransitions map[ItemTransition]bool
}

func NewItemStateMachine() *ItemStateMachine {
	sm := &ItemStateMachine{
		allowedTransitions: make(map[ItemTransition]bool),
	}

	transitions := []ItemTransition{
		// forward path
		{model.ItemStatusPlanned, model.ItemStatusTextPending},
		{model.ItemStatusTextPending, model.ItemStatusTextDone},
		{model.ItemStatusTextPending, model.ItemStatusTextFailed},
		{model.ItemStatusTextDone, model.ItemStatusImageDone},
		{model.ItemStatusTextDone, model.ItemStatusImageFailed},

		// resumed runs retry whatever is still missing
		{model.ItemStatusTextFailed, model.ItemStatusTextPending},
		{model.ItemStatusImageFailed, model.ItemStatusImageDone},
		{model.ItemStatusImageFailed, model.ItemStatusImageFailed},

		// regeneration re-entry
		{model.ItemStatusImageDone, model.ItemStatusTextDone},    // image only: image cleared
		{model.ItemStatusImageDone, model.ItemStatusTextPending}, // full regeneration
		{model.ItemStatusImageFailed, model.ItemStatusTextDone},
		{model.ItemStatusImageFailed, model.ItemStatusTextPending},
		{model.ItemStatusTextDone, model.ItemStatusTextPending},
		{model.ItemStatusTextFailed, model.ItemStatusTextDone},
	}

	for _, t := range transitions {
		sm.allowedTransitions[t] = true
	}

	return sm
}

// CanTransition checks whether a status move is legal.
func (sm *ItemStateMachine) CanTransition(from, to string) bool {
	if from == to && from != model.ItemStatusImageFailed {
		return false
	}
	return sm.allowedTransitions[ItemTransition{From: from, To: to}]
}

// Transition validates and returns the new status, erroring on illegal moves.
func (sm *ItemStateMachine) Transition(from, to string) (string, error) {
	if !sm.CanTransition(from, to) {
		klog.Warningf("illegal item transition: %s -> %s", from, to)
		return from, fmt.Errorf("illegal item status transition: %s -> %s", from, to)
	}
	return to, nil
}
