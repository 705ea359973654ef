package module

import dom "proofwork/internal/services/artifacts/domain"

// Ports exposes the artifact surfaces to other modules
type Ports struct {
	Artifacts dom.Port
	Blobs     dom.BlobPort
	Guard     dom.GuardPort
	Scanner   dom.ScannerPort
}
