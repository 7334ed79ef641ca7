package services

import (
	"context"
	"testing"
	"time"
)

func TestMemoryPresence(t *testing.T) {
	ctx := context.Background()
	current := time.Now()

	presence := NewMemoryPresence(90 * time.Second)
	presence.now = func() time.Time { return current }

	if presence.IsOnline(ctx, "user-1") {
		t.Error("user with no heartbeat must read as offline")
	}

	if err := presence.Heartbeat(ctx, "user-1"); err != nil {
		t.Fatalf("heartbeat failed: %v", err)
	}
	if !presence.IsOnline(ctx, "user-1") {
		t.Error("user must read as online right after a heartbeat")
	}

	current = current.Add(89 * time.Second)
	if !presence.IsOnline(ctx, "user-1") {
		t.Error("user must still be online inside the ttl window")
	}

	current = current.Add(2 * time.Second)
	if presence.IsOnline(ctx, "user-1") {
		t.Error("user must read as offline once the ttl elapses")
	}

	// a fresh heartbeat resets the window
	if err := presence.Heartbeat(ctx, "user-1"); err != nil {
		t.Fatalf("heartbeat failed: %v", err)
	}
	if !presence.IsOnline(ctx, "user-1") {
		t.Error("heartbeat must bring the user back online")
	}
}

func TestMemoryPresenceOnlineSet(t *testing.T) {
	ctx := context.Background()
	presence := NewMemoryPresence(90 * time.Second)

	if err := presence.Heartbeat(ctx, "user-1"); err != nil {
		t.Fatalf("heartbeat failed: %v", err)
	}
	if err := presence.Heartbeat(ctx, "user-3"); err != nil {
		t.Fatalf("heartbeat failed: %v", err)
	}

	online := presence.OnlineSet(ctx, []string{"user-1", "user-2", "user-3"})
	if !online["user-1"] || !online["user-3"] {
		t.Errorf("online set = %v, want user-1 and user-3 online", online)
	}
	if online["user-2"] {
		t.Error("user-2 never sent a heartbeat and must be absent")
	}
}

func TestMemoryPresenceIgnoresEmptyUserID(t *testing.T) {
	ctx := context.Background()
	presence := NewMemoryPresence(time.Minute)

	if err := presence.Heartbeat(ctx, ""); err != nil {
		t.Fatalf("heartbeat failed: %v", err)
	}
	if presence.IsOnline(ctx, "") {
		t.Error("an empty user id must never read as online")
	}
}
