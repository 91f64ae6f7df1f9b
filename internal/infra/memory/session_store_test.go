package memory

import (
	"testing"

	"mockprep-service/internal/app"
	"mockprep-service/internal/domain"
	"mockprep-service/internal/evaluator"
)

func TestInterviewStoreLifecycle(t *testing.T) {
	store := NewInterviewStore()

	session := app.NewInterviewSession("interview-1", evaluator.NewScripted())
	store.Put(session)

	got, ok := store.Get("interview-1")
	if !ok || got != session {
		t.Fatalf("expected stored session back")
	}
	if len(store.All()) != 1 {
		t.Fatalf("expected one session, got %d", len(store.All()))
	}

	store.Delete("interview-1")
	if _, ok := store.Get("interview-1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestTestStoreLifecycle(t *testing.T) {
	store := NewTestStore()

	session := app.NewTestSession("test-1", evaluator.NewScripted(), domain.TestConfig{TimeLimit: 30}, nil, nil, nil)
	defer session.Close()
	store.Put(session)

	if _, ok := store.Get("test-1"); !ok {
		t.Fatalf("expected session present")
	}

	store.Delete("test-1")
	if _, ok := store.Get("test-1"); ok {
		t.Fatalf("expected session removed")
	}
	if len(store.All()) != 0 {
		t.Fatalf("expected empty store")
	}
}
