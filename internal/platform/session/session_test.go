package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_SaveGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Save(ctx, "tok", Session{UserID: "user-1", Roles: []string{"patient"}}, time.Hour); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Get(ctx, "tok")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "user-1" || len(got.Roles) != 1 {
		t.Errorf("unexpected session: %+v", got)
	}
}

func TestMemoryStore_Missing(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryStore_Expires(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_ = s.Save(context.Background(), "tok", Session{UserID: "u"}, time.Minute)
	now = now.Add(2 * time.Minute)

	if _, err := s.Get(context.Background(), "tok"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected expired session, got %v", err)
	}
}

func TestMemoryStore_SweepsUnreadSessions(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Save(ctx, "a", Session{UserID: "u1"}, time.Minute)
	_ = s.Save(ctx, "forever", Session{UserID: "u2"}, 0)
	now = now.Add(2 * time.Minute)
	_ = s.Save(ctx, "b", Session{UserID: "u3"}, time.Minute)

	if len(s.data) != 2 {
		t.Errorf("expected expired session to be swept, have %d entries", len(s.data))
	}
	if _, ok := s.data["a"]; ok {
		t.Error("session a should be gone")
	}
}

func TestRedisStore_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := Connect(ctx, "127.0.0.1:1", "", 0); err == nil {
		t.Error("expected connect error for closed port")
	}
}
