package common

import (
	"context"
	"testing"
)

func TestUserContext_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// Absent by default
	if uc := UserContextFromContext(ctx); uc != nil {
		t.Error("Expected nil UserContext from empty context")
	}

	ctx = WithUserContext(ctx, &UserContext{UserID: "user-123"})

	got := UserContextFromContext(ctx)
	if got == nil {
		t.Fatal("Expected non-nil UserContext")
	}
	if got.UserID != "user-123" {
		t.Errorf("Expected user-123, got %s", got.UserID)
	}
}

func TestResolveUserID(t *testing.T) {
	ctx := context.Background()
	if got := ResolveUserID(ctx, "default"); got != "default" {
		t.Errorf("ResolveUserID without context = %q, want default", got)
	}

	ctx = WithUserContext(ctx, &UserContext{UserID: "  "})
	if got := ResolveUserID(ctx, "default"); got != "default" {
		t.Errorf("ResolveUserID with blank user = %q, want default", got)
	}

	ctx = WithUserContext(ctx, &UserContext{UserID: " asha "})
	if got := ResolveUserID(ctx, "default"); got != "asha" {
		t.Errorf("ResolveUserID = %q, want asha", got)
	}
}
