package net_test

import (
	"context"
	"testing"

	pnet "proofwork/internal/platform/net"
)

func TestRequestID_SetAndGet(t *testing.T) {
	base := context.Background()

	t.Run("sets request id", func(t *testing.T) {
		ctx := pnet.WithRequestID(base, "req-123")

		if got := pnet.RequestID(ctx); got != "req-123" {
			t.Fatalf("RequestID got %q want %q", got, "req-123")
		}
	})

	t.Run("empty id returns same ctx", func(t *testing.T) {
		ctx := pnet.WithRequestID(base, "")

		if ctx != base {
			t.Fatalf("expected ctx to be unchanged when id empty")
		}
		if got := pnet.RequestID(ctx); got != "" {
			t.Fatalf("RequestID got %q want empty", got)
		}
	})
}

func TestActor_SetAndGet(t *testing.T) {
	base := context.Background()

	t.Run("sets kind and id", func(t *testing.T) {
		ctx := pnet.WithActor(base, pnet.ActorWorker, "wrk-1")

		kind, id := pnet.Actor(ctx)
		if kind != pnet.ActorWorker || id != "wrk-1" {
			t.Fatalf("Actor got (%q, %q) want (worker, wrk-1)", kind, id)
		}
		if got := pnet.ActorID(ctx); got != "wrk-1" {
			t.Fatalf("ActorID got %q want %q", got, "wrk-1")
		}
	})

	t.Run("empty id returns same ctx", func(t *testing.T) {
		ctx := pnet.WithActor(base, pnet.ActorBuyer, "")

		if ctx != base {
			t.Fatalf("expected ctx to be unchanged when id empty")
		}
		kind, id := pnet.Actor(ctx)
		if kind != "" || id != "" {
			t.Fatalf("Actor got (%q, %q) want empty", kind, id)
		}
	})
}

func TestOrg_SetAndGet(t *testing.T) {
	base := context.Background()

	t.Run("sets org id", func(t *testing.T) {
		ctx := pnet.WithOrg(base, "org-1")

		if got := pnet.OrgID(ctx); got != "org-1" {
			t.Fatalf("OrgID got %q want %q", got, "org-1")
		}
	})

	t.Run("empty org returns same ctx", func(t *testing.T) {
		ctx := pnet.WithOrg(base, "")

		if ctx != base {
			t.Fatalf("expected ctx to be unchanged when org empty")
		}
		if got := pnet.OrgID(ctx); got != "" {
			t.Fatalf("OrgID got %q want empty", got)
		}
	})
}

func TestContext_KeysDoNotCollide(t *testing.T) {
	ctx := context.Background()
	ctx = pnet.WithRequestID(ctx, "req-9")
	ctx = pnet.WithActor(ctx, pnet.ActorVerifier, "vrf-3")
	ctx = pnet.WithOrg(ctx, "org-7")

	if got := pnet.RequestID(ctx); got != "req-9" {
		t.Fatalf("RequestID got %q", got)
	}
	kind, id := pnet.Actor(ctx)
	if kind != pnet.ActorVerifier || id != "vrf-3" {
		t.Fatalf("Actor got (%q, %q)", kind, id)
	}
	if got := pnet.OrgID(ctx); got != "org-7" {
		t.Fatalf("OrgID got %q", got)
	}
}
