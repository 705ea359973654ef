package domain

import (
	"time"

	perr "proofwork/internal/platform/errors"
)

// DescriptorSchemaV1 is the only descriptor schema version we accept
const DescriptorSchemaV1 = "v1"

// MaxFlowSteps bounds a browser flow
const MaxFlowSteps = 100

// Time budget clamp bounds, in seconds
const (
	DefaultTimeBudgetSec = 240
	MinTimeBudgetSec     = 10
	MaxTimeBudgetSec     = 3600
)

// CapabilityTags is the closed set of tags a descriptor may require
var CapabilityTags = map[string]bool{
	"browser":       true,
	"http":          true,
	"screenshot":    true,
	"snapshot":      true,
	"ffmpeg":        true,
	"llm_summarize": true,
}

// TaskDescriptor is the versioned task description attached to a bounty.
// Unknown schema versions are a validation error, never coerced
type TaskDescriptor struct {
	SchemaVersion   string         `json:"schema_version"`
	Type            string         `json:"type"`
	CapabilityTags  []string       `json:"capability_tags"`
	InputSpec       map[string]any `json:"input_spec,omitempty"`
	OutputSpec      OutputSpec     `json:"output_spec"`
	FreshnessSLASec int            `json:"freshness_sla_sec,omitempty"`
	Constraints     *Constraints   `json:"constraints,omitempty"`
	SiteProfile     *SiteProfile   `json:"site_profile,omitempty"`
}

// Constraints bounds job execution
type Constraints struct {
	TimeBudgetSec int `json:"time_budget_sec,omitempty"`
}

// TimeBudget returns the per-job deadline, clamped to 10s..1h with a
// 240s default. Out-of-range values clamp rather than fail: the budget
// is advisory at publish time and binding at execution time
func (d TaskDescriptor) TimeBudget() time.Duration {
	sec := DefaultTimeBudgetSec
	if d.Constraints != nil && d.Constraints.TimeBudgetSec != 0 {
		sec = d.Constraints.TimeBudgetSec
	}
	if sec < MinTimeBudgetSec {
		sec = MinTimeBudgetSec
	}
	if sec > MaxTimeBudgetSec {
		sec = MaxTimeBudgetSec
	}
	return time.Duration(sec) * time.Second
}

// OutputSpec declares what a submission must contain
type OutputSpec struct {
	RequiredArtifacts []ArtifactRequirement `json:"required_artifacts"`
}

// ArtifactRequirement names one artifact the manifest must carry.
// Exactly one of Label or LabelPrefix is set
type ArtifactRequirement struct {
	Kind        string `json:"kind"`
	Label       string `json:"label,omitempty"`
	LabelPrefix string `json:"label_prefix,omitempty"`
	Count       int    `json:"count,omitempty"`
}

// SiteProfile carries site-specific execution hints
type SiteProfile struct {
	StartURL    string       `json:"start_url,omitempty"`
	BrowserFlow *BrowserFlow `json:"browser_flow,omitempty"`
}

// BrowserFlow is a scripted sequence of browser steps
type BrowserFlow struct {
	Steps []FlowStep `json:"steps"`
}

// FlowStep is one browser operation. Fields are op-dependent
type FlowStep struct {
	Op        string       `json:"op"`
	URL       string       `json:"url,omitempty"`
	Selector  string       `json:"selector,omitempty"`
	Label     string       `json:"label,omitempty"`
	Value     string       `json:"value,omitempty"`
	ValueEnv  string       `json:"value_env,omitempty"`
	Key       string       `json:"key,omitempty"`
	TimeoutMS int          `json:"timeout_ms,omitempty"`
	Extract   *ExtractSpec `json:"extract,omitempty"`
}

// ExtractSpec pulls data out of the page. Fn is always rejected:
// buyer-supplied inline JS never runs on a worker
type ExtractSpec struct {
	Selector string `json:"selector,omitempty"`
	Attr     string `json:"attr,omitempty"`
	Fn       string `json:"fn,omitempty"`
}

var flowOps = map[string]bool{
	"goto":       true,
	"wait":       true,
	"click":      true,
	"fill":       true,
	"type":       true,
	"press":      true,
	"screenshot": true,
	"extract":    true,
}

// Validate checks the descriptor against the v1 schema
func (d TaskDescriptor) Validate() error {
	if d.SchemaVersion != DescriptorSchemaV1 {
		return perr.Newf(perr.ErrorCodeDescriptorInvalid, "unsupported schema_version %q", d.SchemaVersion)
	}
	if n := len(d.Type); n < 1 || n > 120 {
		return perr.Newf(perr.ErrorCodeDescriptorInvalid, "type length %d outside 1..120", n)
	}
	if len(d.CapabilityTags) == 0 {
		return perr.Newf(perr.ErrorCodeDescriptorInvalid, "capability_tags must be non-empty")
	}
	for _, tag := range d.CapabilityTags {
		if !CapabilityTags[tag] {
			return perr.Newf(perr.ErrorCodeDescriptorInvalid, "unknown capability tag %q", tag)
		}
	}
	if len(d.OutputSpec.RequiredArtifacts) == 0 {
		return perr.Newf(perr.ErrorCodeDescriptorInvalid, "output_spec.required_artifacts must be non-empty")
	}
	for i, a := range d.OutputSpec.RequiredArtifacts {
		if a.Kind == "" {
			return perr.Newf(perr.ErrorCodeDescriptorInvalid, "required_artifacts[%d]: kind required", i)
		}
		if (a.Label == "") == (a.LabelPrefix == "") {
			return perr.Newf(perr.ErrorCodeDescriptorInvalid, "required_artifacts[%d]: exactly one of label or label_prefix", i)
		}
		if a.Count < 0 {
			return perr.Newf(perr.ErrorCodeDescriptorInvalid, "required_artifacts[%d]: negative count", i)
		}
	}
	if d.FreshnessSLASec != 0 && (d.FreshnessSLASec < 1 || d.FreshnessSLASec > 86400) {
		return perr.Newf(perr.ErrorCodeDescriptorInvalid, "freshness_sla_sec %d outside 1..86400", d.FreshnessSLASec)
	}
	if d.Constraints != nil && d.Constraints.TimeBudgetSec < 0 {
		return perr.Newf(perr.ErrorCodeDescriptorInvalid, "constraints.time_budget_sec must not be negative")
	}
	if d.SiteProfile != nil && d.SiteProfile.BrowserFlow != nil {
		steps := d.SiteProfile.BrowserFlow.Steps
		if len(steps) > MaxFlowSteps {
			return perr.Newf(perr.ErrorCodeDescriptorInvalid, "browser_flow has %d steps, max %d", len(steps), MaxFlowSteps)
		}
		for i, st := range steps {
			if !flowOps[st.Op] {
				return perr.Newf(perr.ErrorCodeDescriptorInvalid, "browser_flow step %d: unknown op %q", i, st.Op)
			}
			if st.Extract != nil && st.Extract.Fn != "" {
				return perr.Newf(perr.ErrorCodeDescriptorInvalid, "browser_flow step %d: extract.fn is not allowed", i)
			}
		}
	}
	return nil
}

// URLs returns every URL the descriptor would have a worker touch
func (d TaskDescriptor) URLs() []string {
	var out []string
	if d.SiteProfile == nil {
		return out
	}
	if d.SiteProfile.StartURL != "" {
		out = append(out, d.SiteProfile.StartURL)
	}
	if d.SiteProfile.BrowserFlow != nil {
		for _, st := range d.SiteProfile.BrowserFlow.Steps {
			if st.URL != "" {
				out = append(out, st.URL)
			}
		}
	}
	return out
}
