package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"mockprep-service/internal/app"
	"mockprep-service/internal/evaluator"
)

func TestInterviewStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	store := NewInterviewStore(client, time.Minute)

	session := app.NewInterviewSession("interview-1", evaluator.NewScripted())
	store.Put(session)
	if !mr.Exists("interview:session:interview-1") {
		t.Fatalf("expected redis key to be set")
	}
	if _, ok := store.Get("interview-1"); !ok {
		t.Fatalf("expected session present")
	}

	store.Delete("interview-1")
	if mr.Exists("interview:session:interview-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("interview-1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestTestStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	store := NewTestStore(client, time.Minute)

	session := app.NewTestSession("test-1", evaluator.NewScripted(), sampleConfig(), nil, nil, nil)
	defer session.Close()
	store.Put(session)
	if !mr.Exists("test:session:test-1") {
		t.Fatalf("expected redis key to be set")
	}

	store.Delete("test-1")
	if mr.Exists("test:session:test-1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
