package module

import dom "proofwork/internal/services/payouts/domain"

// Ports exposes the payout surfaces to other modules
type Ports struct {
	Creator dom.CreatorPort
	Payouts dom.Port
	Runner  dom.RunnerPort
	Admin   dom.AdminPort
}
