package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	perr "proofwork/internal/platform/errors"

	bdom "proofwork/internal/services/bounties/domain"
)

// ManifestV1 is the only manifest version we accept
const ManifestV1 = "1.0"

// Result outcomes
const (
	OutcomeReproduced    = "reproduced"
	OutcomeNotReproduced = "not_reproduced"
	OutcomeBlocked       = "blocked"
)

var manifestOutcomes = map[string]bool{
	OutcomeReproduced:    true,
	OutcomeNotReproduced: true,
	OutcomeBlocked:       true,
}

// Manifest is the versioned proof pack a worker submits with a job.
// Unknown versions are a validation error, never coerced
type Manifest struct {
	ManifestVersion string             `json:"manifestVersion"`
	JobID           string             `json:"jobId"`
	BountyID        string             `json:"bountyId"`
	FinalURL        string             `json:"finalUrl"`
	Worker          ManifestWorker     `json:"worker"`
	Result          ManifestResult     `json:"result"`
	ReproSteps      []string           `json:"reproSteps,omitempty"`
	Artifacts       []ManifestArtifact `json:"artifacts,omitempty"`
}

// ManifestWorker identifies who produced the manifest
type ManifestWorker struct {
	WorkerID     string              `json:"workerId"`
	SkillVersion string              `json:"skillVersion,omitempty"`
	Fingerprint  ManifestFingerprint `json:"fingerprint"`
}

// ManifestFingerprint names the environment class the run used
type ManifestFingerprint struct {
	FingerprintClass string `json:"fingerprintClass"`
}

// ManifestResult is the worker's claimed outcome
type ManifestResult struct {
	Outcome         string  `json:"outcome"`
	FailureType     string  `json:"failureType,omitempty"`
	Severity        string  `json:"severity,omitempty"`
	Expected        string  `json:"expected"`
	Observed        string  `json:"observed"`
	ReproConfidence float64 `json:"reproConfidence"`
}

// ManifestArtifact references one uploaded artifact by label
type ManifestArtifact struct {
	Kind        string `json:"kind"`
	Label       string `json:"label"`
	SHA256      string `json:"sha256"`
	URL         string `json:"url,omitempty"`
	SizeBytes   int64  `json:"sizeBytes"`
	ContentType string `json:"contentType,omitempty"`
}

// Validate checks the manifest's structure against the 1.0 schema
func (m Manifest) Validate() error {
	if m.ManifestVersion != ManifestV1 {
		return perr.SchemaErrf("unsupported manifestVersion %q", m.ManifestVersion)
	}
	if m.JobID == "" || m.BountyID == "" {
		return perr.SchemaErrf("jobId and bountyId are required")
	}
	if m.Worker.WorkerID == "" {
		return perr.SchemaErrf("worker.workerId is required")
	}
	if m.Worker.Fingerprint.FingerprintClass == "" {
		return perr.SchemaErrf("worker.fingerprint.fingerprintClass is required")
	}
	if !manifestOutcomes[m.Result.Outcome] {
		return perr.SchemaErrf("unknown result.outcome %q", m.Result.Outcome)
	}
	if m.Result.Outcome == OutcomeReproduced && m.Result.FailureType == "" {
		return perr.SchemaErrf("result.failureType is required when outcome is reproduced")
	}
	if c := m.Result.ReproConfidence; c < 0 || c > 1 {
		return perr.SchemaErrf("result.reproConfidence %v outside 0..1", c)
	}
	for i, a := range m.Artifacts {
		if a.Kind == "" || a.Label == "" {
			return perr.SchemaErrf("artifacts[%d]: kind and label are required", i)
		}
		if len(a.SHA256) != 64 {
			return perr.SchemaErrf("artifacts[%d]: sha256 must be 64 hex chars", i)
		}
	}
	return nil
}

// CheckRequired verifies the manifest carries every artifact the
// bounty's output spec demands
func (m Manifest) CheckRequired(reqs []bdom.ArtifactRequirement) error {
	for _, req := range reqs {
		want := req.Count
		if want <= 0 {
			want = 1
		}
		got := 0
		for _, a := range m.Artifacts {
			if a.Kind != req.Kind {
				continue
			}
			switch {
			case req.Label != "" && a.Label == req.Label:
				got++
			case req.LabelPrefix != "" && strings.HasPrefix(a.Label, req.LabelPrefix):
				got++
			}
		}
		if got < want {
			name := req.Label
			if name == "" {
				name = req.LabelPrefix + "*"
			}
			return perr.SchemaErrf("missing required artifact %s/%s: have %d, need %d", req.Kind, name, got, want)
		}
	}
	return nil
}

// DedupeKey derives the key used to collapse equivalent findings for
// one bounty. Fingerprint class is deliberately excluded: the same
// finding reported from two environment classes is still one finding
func (m Manifest) DedupeKey(bountyID string) string {
	h := sha256.New()
	h.Write([]byte(bountyID))
	h.Write([]byte{0})
	h.Write([]byte(normalizeURL(m.FinalURL)))
	h.Write([]byte{0})
	h.Write([]byte(m.Result.Outcome))
	h.Write([]byte{0})
	h.Write([]byte(m.Result.FailureType))
	h.Write([]byte{0})
	h.Write([]byte(m.Result.Observed))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeURL lowercases scheme and host, drops default ports,
// fragments, and trailing slashes so cosmetic URL variants dedupe
func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) ||
		(u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}
