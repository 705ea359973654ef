package service

import (
	"fmt"
	"regexp"
	"strings"

	"proofwork/internal/core/normalize"
	perr "proofwork/internal/platform/errors"
	bdom "proofwork/internal/services/bounties/domain"
)

// credentialKeywords score credential-entry signals found in descriptor text.
// Matching runs over folded projections so "p@ssw0rd", "Sign-In" and
// "s i g n i n" all land on their plain forms
var credentialKeywords = []struct {
	kw     string
	weight int
}{
	{"password", 5},
	{"passwd", 5},
	{"otp", 5},
	{"2fa", 5},
	{"mfa", 5},
	{"passcode", 4},
	{"credential", 4},
	{"totp", 4},
	{"signin", 3},
	{"login", 3},
	{"logon", 3},
	{"oauth", 3},
	{"sso", 3},
	{"auth", 2},
}

// sensitiveEnv matches environment variable names that smell like secrets
var sensitiveEnv = regexp.MustCompile(`(?i)(pass(word)?|secret|token|otp|2fa|credential|api[_-]?key|private)`)

// noLoginScore sums credential signals over every URL, selector and label in
// the descriptor. Each keyword counts once per field
func (s *Svc) noLoginScore(d bdom.TaskDescriptor) (int, []string) {
	fields := collectTextFields(d)

	score := 0
	var hits []string
	for _, f := range fields {
		sh := normalize.BuildShadows(s.norm.Normalize(f.text))
		for _, ck := range credentialKeywords {
			if containsAny(sh, ck.kw) {
				score += ck.weight
				hits = append(hits, fmt.Sprintf("%s in %s", ck.kw, f.where))
			}
		}
	}
	return score, hits
}

type textField struct {
	where string
	text  string
}

func collectTextFields(d bdom.TaskDescriptor) []textField {
	var out []textField
	if d.SiteProfile == nil {
		return out
	}
	if d.SiteProfile.StartURL != "" {
		out = append(out, textField{"start_url", d.SiteProfile.StartURL})
	}
	if d.SiteProfile.BrowserFlow == nil {
		return out
	}
	for i, st := range d.SiteProfile.BrowserFlow.Steps {
		at := func(part string) string { return fmt.Sprintf("step %d %s", i, part) }
		if st.URL != "" {
			out = append(out, textField{at("url"), st.URL})
		}
		if st.Selector != "" {
			out = append(out, textField{at("selector"), st.Selector})
		}
		if st.Label != "" {
			out = append(out, textField{at("label"), st.Label})
		}
		if st.Extract != nil && st.Extract.Selector != "" {
			out = append(out, textField{at("extract.selector"), st.Extract.Selector})
		}
	}
	return out
}

func containsAny(sh normalize.Shadows, kw string) bool {
	return strings.Contains(sh.Base, kw) ||
		strings.Contains(sh.NoPunct, kw) ||
		strings.Contains(sh.RepeatSquash, kw)
}

// checkValueEnv admits only allowlisted, non-sensitive env var references
func (s *Svc) checkValueEnv(name string) error {
	if !s.envAllow[name] {
		return perr.Newf(perr.ErrorCodeNoLoginBlocked, "value_env %q is not allowlisted", name)
	}
	if sensitiveEnv.MatchString(name) {
		return perr.Newf(perr.ErrorCodeNoLoginBlocked, "value_env %q looks like a credential", name)
	}
	return nil
}
