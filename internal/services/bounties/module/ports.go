package module

import dom "proofwork/internal/services/bounties/domain"

// Ports exposes the bounty surfaces to other modules
type Ports struct {
	Bounties dom.Port
	Reader   dom.ReaderPort
}
