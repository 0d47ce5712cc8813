package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "clips:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func TestClaimFirstDelivery(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	guard, err := NewGuard(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	eventID := uuid.New()
	already, err := guard.Claim(context.Background(), "clip-analytics", eventID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if already {
		t.Fatal("first delivery should not be reported as processed")
	}
	if want := "clips:idempotency:evt:processed:clip-analytics:" + eventID.String(); store.lastKey != want {
		t.Fatalf("unexpected key %q", store.lastKey)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl %v", store.lastTTL)
	}
}

func TestClaimRedelivery(t *testing.T) {
	store := &fakeStore{setNXResult: false}
	guard, _ := NewGuard(store, time.Hour)
	already, err := guard.Claim(context.Background(), "clip-analytics", uuid.New())
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !already {
		t.Fatal("expected redelivery to be reported as processed")
	}
}

func TestClaimStoreError(t *testing.T) {
	store := &fakeStore{setNXError: errors.New("redis down")}
	guard, _ := NewGuard(store, time.Hour)
	if _, err := guard.Claim(context.Background(), "clip-analytics", uuid.New()); err == nil {
		t.Fatal("expected store error")
	}
}

func TestClaimValidatesInput(t *testing.T) {
	guard, _ := NewGuard(&fakeStore{}, time.Hour)
	if _, err := guard.Claim(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected error for empty consumer")
	}
	if _, err := guard.Claim(context.Background(), "clip-analytics", uuid.Nil); err == nil {
		t.Fatal("expected error for nil event id")
	}
}

func TestRelease(t *testing.T) {
	store := &fakeStore{}
	guard, _ := NewGuard(store, time.Hour)
	eventID := uuid.New()
	if err := guard.Release(context.Background(), "clip-analytics", eventID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if want := "clips:idempotency:evt:processed:clip-analytics:" + eventID.String(); store.lastDeleted != want {
		t.Fatalf("unexpected deleted key %q", store.lastDeleted)
	}
}

func TestNewGuardRequiresStore(t *testing.T) {
	if _, err := NewGuard(nil, time.Hour); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := NewGuard(&fakeStore{}, -time.Second); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}
