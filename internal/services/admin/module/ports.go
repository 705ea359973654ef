package module

import dom "proofwork/internal/services/admin/domain"

// Ports exposes the admin surface
type Ports struct {
	Admin dom.Port
}
