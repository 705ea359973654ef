package store

import (
	"context"
	"testing"
)

// TestOrgID_SetAndGet sets an org id and retrieves it
func TestOrgID_SetAndGet(t *testing.T) {
	t.Parallel()

	base := context.Background()
	ctx := WithOrg(base, "org_acme")

	id, ok := OrgID(ctx)
	if !ok {
		t.Fatalf("OrgID not found")
	}
	if id != "org_acme" {
		t.Fatalf("OrgID mismatch got=%q want=%q", id, "org_acme")
	}
}

// TestOrgID_EmptyString reports false when empty string is stored
func TestOrgID_EmptyString(t *testing.T) {
	t.Parallel()

	ctx := WithOrg(context.Background(), "")

	id, ok := OrgID(ctx)
	if ok {
		t.Fatalf("OrgID ok should be false for empty value")
	}
	if id != "" {
		t.Fatalf("OrgID should be empty got=%q", id)
	}
}

// TestOrgID_NotPresent returns false on base context
func TestOrgID_NotPresent(t *testing.T) {
	t.Parallel()

	id, ok := OrgID(context.Background())
	if ok || id != "" {
		t.Fatalf("OrgID should be absent on base context")
	}
}

// TestOrgID_NoLeak ensures adding value returns a new ctx and base has no value
func TestOrgID_NoLeak(t *testing.T) {
	t.Parallel()

	base := context.Background()
	_ = WithOrg(base, "org_acme")

	id, ok := OrgID(base)
	if ok || id != "" {
		t.Fatalf("base context should not have org value")
	}
}

// TestIsAdmin_SetAndGet marks a context admin and reads it back
func TestIsAdmin_SetAndGet(t *testing.T) {
	t.Parallel()

	if IsAdmin(context.Background()) {
		t.Fatalf("base context should not be admin")
	}
	if !IsAdmin(WithAdmin(context.Background())) {
		t.Fatalf("IsAdmin should be true after WithAdmin")
	}
}

// TestRequestID_SetAndGet sets a request id and retrieves it
func TestRequestID_SetAndGet(t *testing.T) {
	t.Parallel()

	base := context.Background()
	ctx := WithRequestID(base, "req-123")

	id, ok := RequestID(ctx)
	if !ok {
		t.Fatalf("RequestID not found")
	}
	if id != "req-123" {
		t.Fatalf("RequestID mismatch got=%q want=%q", id, "req-123")
	}
}

// TestRequestID_EmptyString reports false when empty string is stored
func TestRequestID_EmptyString(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(context.Background(), "")

	id, ok := RequestID(ctx)
	if ok {
		t.Fatalf("RequestID ok should be false for empty value")
	}
	if id != "" {
		t.Fatalf("RequestID should be empty got=%q", id)
	}
}

// TestKeys_Isolation ensures org and request keys do not collide
func TestKeys_Isolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctx = WithOrg(ctx, "org_acme")
	ctx = WithRequestID(ctx, "req-123")

	org, ook := OrgID(ctx)
	req, rok := RequestID(ctx)

	if !ook || org != "org_acme" {
		t.Fatalf("OrgID mismatch ok=%v org=%q", ook, org)
	}
	if !rok || req != "req-123" {
		t.Fatalf("RequestID mismatch rok=%v req=%q", rok, req)
	}
}
