package ch

import (
	"context"
	"testing"
)

// TestOpen_BadDSN surfaces DSN parse errors before dialing
func TestOpen_BadDSN(t *testing.T) {
	t.Parallel()

	cl, err := Open(context.Background(), Config{URL: "://bad"})
	if err == nil {
		t.Fatalf("Open expected error for bad DSN, got client=%#v", cl)
	}
	if cl != nil {
		t.Fatalf("Open should return nil client on error")
	}
}

// TestInsert_NotConnected rejects writes on a zero-value client
func TestInsert_NotConnected(t *testing.T) {
	t.Parallel()

	cl := &CH{}
	if err := cl.Insert(context.Background(), "t", [][]any{{1}}); err == nil {
		t.Fatalf("Insert expected error on disconnected client")
	}
}

// TestQuery_NotConnected rejects reads on a zero-value client
func TestQuery_NotConnected(t *testing.T) {
	t.Parallel()

	cl := &CH{}
	if _, err := cl.Query(context.Background(), "SELECT 1"); err == nil {
		t.Fatalf("Query expected error on disconnected client")
	}
}

// TestPing_NotConnected rejects pings on a zero-value client
func TestPing_NotConnected(t *testing.T) {
	t.Parallel()

	cl := &CH{}
	if err := cl.Ping(context.Background()); err == nil {
		t.Fatalf("Ping expected error on disconnected client")
	}
}

// TestClose_NilSafe tolerates closing a client that never connected
func TestClose_NilSafe(t *testing.T) {
	t.Parallel()

	cl := &CH{}
	if err := cl.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	var nilClient *CH
	if err := nilClient.Close(); err != nil {
		t.Fatalf("Close on nil client returned error: %v", err)
	}
}
