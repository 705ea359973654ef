package service

import (
	"testing"

	perr "proofwork/internal/platform/errors"
	dom "proofwork/internal/services/policy/domain"
)

func code(t *testing.T, err error) perr.ErrorCode {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error")
	}
	e, ok := perr.As(err)
	if !ok {
		t.Fatalf("not a platform error: %v", err)
	}
	return e.Code()
}

func TestCheckOrigin_Allowlist(t *testing.T) {
	t.Parallel()

	s := New(Config{
		PublicAllowedOrigins: []string{"https://cdn.example.net"},
	})
	allowed := []string{"https://shop.example.com"}

	if err := s.CheckOrigin("https://shop.example.com/products?page=2", allowed); err != nil {
		t.Fatalf("allowlisted origin refused: %v", err)
	}
	if err := s.CheckOrigin("https://SHOP.example.com/", allowed); err != nil {
		t.Fatalf("host case should not matter: %v", err)
	}
	if err := s.CheckOrigin("https://cdn.example.net/asset.js", allowed); err != nil {
		t.Fatalf("public origin refused: %v", err)
	}

	if got := code(t, s.CheckOrigin("https://evil.example.org/", allowed)); got != perr.ErrorCodeOriginNotAllowed {
		t.Fatalf("code = %s, want origin_not_allowed", got)
	}
	if got := code(t, s.CheckOrigin("ftp://shop.example.com/", allowed)); got != perr.ErrorCodeOriginNotAllowed {
		t.Fatalf("bad scheme code = %s", got)
	}
	if got := code(t, s.CheckOrigin("https://user:pw@shop.example.com/", allowed)); got != perr.ErrorCodeOriginNotAllowed {
		t.Fatalf("userinfo code = %s", got)
	}
}

func TestCheckOrigin_BlockedDomains(t *testing.T) {
	t.Parallel()

	s := New(Config{BlockedDomains: []string{"Banned.example"}})
	allowed := []string{"https://www.banned.example"}

	// blocked wins even when the origin is allowlisted, any subdomain, any case
	for _, u := range []string{
		"https://banned.example/",
		"https://www.BANNED.example/path",
		"https://deep.sub.banned.example/",
	} {
		if got := code(t, s.CheckOrigin(u, allowed)); got != perr.ErrorCodeOriginNotAllowed {
			t.Fatalf("CheckOrigin(%s) code = %s", u, got)
		}
	}

	// suffix match is on label boundaries only
	off := New(Config{BlockedDomains: []string{"banned.example"}, Enforcement: dom.EnforcementOff})
	if err := off.CheckOrigin("https://notbanned.example/", nil); err != nil {
		t.Fatalf("notbanned.example should pass: %v", err)
	}
}

func TestCheckOrigin_EnforcementOff(t *testing.T) {
	t.Parallel()

	s := New(Config{Enforcement: dom.EnforcementOff, BlockedDomains: []string{"banned.example"}})

	if err := s.CheckOrigin("https://anything.example/", nil); err != nil {
		t.Fatalf("enforcement off should skip the allowlist: %v", err)
	}
	// blocked domains still apply
	if got := code(t, s.CheckOrigin("https://banned.example/", nil)); got != perr.ErrorCodeOriginNotAllowed {
		t.Fatalf("blocked domain code = %s", got)
	}
	// malformed URLs still fail
	if got := code(t, s.CheckOrigin("ftp://x.example/", nil)); got != perr.ErrorCodeOriginNotAllowed {
		t.Fatalf("bad scheme code = %s", got)
	}
}
