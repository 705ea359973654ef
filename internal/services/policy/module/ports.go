package module

import dom "proofwork/internal/services/policy/domain"

// Ports exposes the policy gates to other modules
type Ports struct {
	Policy dom.Port
	Refuse dom.RefusePort
}
