package store

import (
	"testing"

	"proofwork/internal/platform/store/ch"
)

type fakeChRows struct {
	closed bool
}

func (f *fakeChRows) Next() bool             { return false }
func (f *fakeChRows) Scan(dest ...any) error { return nil }
func (f *fakeChRows) Err() error             { return nil }
func (f *fakeChRows) Close() error           { f.closed = true; return nil }
func (f *fakeChRows) Columns() []string      { return []string{"alpha", "beta"} }

var _ ch.Rows = (*fakeChRows)(nil)

// TestRowsAdapter_Delegates covers Next, Scan, Err, Columns and Close passthrough
func TestRowsAdapter_Delegates(t *testing.T) {
	t.Parallel()

	f := &fakeChRows{}
	r := &rowsAdapter{r: f}

	if r.Next() {
		t.Fatalf("Next should be false on fake")
	}
	var v int
	if err := r.Scan(&v); err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if r.Err() != nil {
		t.Fatalf("Err should be nil")
	}
	cols := r.Columns()
	if len(cols) != 2 || cols[0] != "alpha" || cols[1] != "beta" {
		t.Fatalf("Columns mismatch: %#v", cols)
	}
	r.Close()
	if !f.closed {
		t.Fatalf("Close did not delegate to underlying rows")
	}
}
