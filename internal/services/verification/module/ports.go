package module

import dom "proofwork/internal/services/verification/domain"

// Ports exposes the verification surfaces to other modules
type Ports struct {
	Verifications dom.Port
	Intake        dom.IntakePort
	Sweeper       dom.SweeperPort
	Admin         dom.AdminPort
}
