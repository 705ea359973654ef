package module

import dom "proofwork/internal/services/scheduler/domain"

// Ports exposes the scheduling surfaces to other modules
type Ports struct {
	Jobs        dom.Port
	Sweeper     dom.SweeperPort
	Leases      dom.LeasePort
	Transitions dom.TransitionPort
}
