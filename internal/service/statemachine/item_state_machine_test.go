package statemachine

import (
	"testing"

	"github.com/contentpilot/backend/internal/model"
)

func TestForwardPath(t *testing.T) {
	sm := NewItemStateMachine()

	path := []string{
		model.ItemStatusPlanned,
		model.ItemStatusTextPending,
		model.ItemStatusTextDone,
		model.ItemStatusImageDone,
	}
	for i := 0; i < len(path)-1; i++ {
		got, err := sm.Transition(path[i], path[i+1])
		if err != nil {
			t.Fatalf("transition %s -> %s should be legal: %v", path[i], path[i+1], err)
		}
		if got != path[i+1] {
			t.Fatalf("expected %s, got %s", path[i+1], got)
		}
	}
}

func TestIllegalTransitions(t *testing.T) {
	sm := NewItemStateMachine()

	illegal := []ItemTransition{
		{model.ItemStatusPlanned, model.ItemStatusTextDone},
		{model.ItemStatusPlanned, model.ItemStatusImageDone},
		{model.ItemStatusTextPending, model.ItemStatusImageDone},
		{model.ItemStatusImageDone, model.ItemStatusPlanned},
		{model.ItemStatusTextDone, model.ItemStatusTextDone},
	}
	for _, tr := range illegal {
		if sm.CanTransition(tr.From, tr.To) {
			t.Fatalf("transition %s -> %s should be illegal", tr.From, tr.To)
		}
		got, err := sm.Transition(tr.From, tr.To)
		if err == nil {
			t.Fatalf("transition %s -> %s should error", tr.From, tr.To)
		}
		if got != tr.From {
			t.Fatalf("failed transition should keep %s, got %s", tr.From, got)
		}
	}
}

func TestRegenerationReentry(t *testing.T) {
	sm := NewItemStateMachine()

	if !sm.CanTransition(model.ItemStatusImageDone, model.ItemStatusTextDone) {
		t.Fatalf("image regeneration should re-enter at text_done")
	}
	if !sm.CanTransition(model.ItemStatusImageDone, model.ItemStatusTextPending) {
		t.Fatalf("full regeneration should re-enter at text_pending")
	}
	if !sm.CanTransition(model.ItemStatusTextFailed, model.ItemStatusTextPending) {
		t.Fatalf("a failed text stage should be retryable")
	}
	if !sm.CanTransition(model.ItemStatusImageFailed, model.ItemStatusImageFailed) {
		t.Fatalf("a repeated image failure should stay image_failed")
	}
}
