package module

import dom "proofwork/internal/services/audit/domain"

// Ports exposes the audit surfaces to other modules
type Ports struct {
	Recorder dom.RecorderPort
	Events   dom.EventRecorderPort
	Query    dom.QueryPort
	Mirror   dom.MirrorPort
}
