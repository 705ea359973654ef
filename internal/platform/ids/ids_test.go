package ids

import (
	"strings"
	"testing"
)

func TestNew_ShapeAndUniqueness(t *testing.T) {
	t.Parallel()

	a := New(PrefixJob)
	b := New(PrefixJob)

	if !strings.HasPrefix(a, "job_") {
		t.Fatalf("New(job) = %q, want job_ prefix", a)
	}
	if a == b {
		t.Fatalf("New should mint unique ids, got %q twice", a)
	}
	// uuid without dashes is 32 hex chars
	if got := len(a); got != len("job_")+32 {
		t.Fatalf("New(job) length = %d, want %d", got, len("job_")+32)
	}
}

func TestIs(t *testing.T) {
	t.Parallel()

	id := New(PrefixWorker)
	if !Is(id, PrefixWorker) {
		t.Fatalf("Is(%q, wrk) = false", id)
	}
	if Is(id, PrefixJob) {
		t.Fatalf("Is(%q, job) = true", id)
	}
	if Is("wrk_", PrefixWorker) {
		t.Fatalf("Is should reject empty tail")
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		id   string
		want bool
	}{
		{New(PrefixBounty), true},
		{"org_abc", true},
		{"_abc", false},
		{"org_", false},
		{"noprefix", false},
		{"", false},
	}
	for _, c := range cases {
		if got := Valid(c.id); got != c.want {
			t.Fatalf("Valid(%q) = %v, want %v", c.id, got, c.want)
		}
	}
}
