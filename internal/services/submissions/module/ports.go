package module

import dom "proofwork/internal/services/submissions/domain"

// Ports exposes the submission surfaces to other modules
type Ports struct {
	Submissions dom.Port
	Settle      dom.SettlePort
}
