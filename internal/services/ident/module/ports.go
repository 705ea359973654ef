package module

import dom "proofwork/internal/services/ident/domain"

// Ports holds the ports exposed by the identity module
type Ports struct {
	Registrar   dom.RegistrarPort
	Directory   dom.DirectoryPort
	Admin       dom.AdminPort
	RateLimiter dom.RateLimiterPort
	Auth        dom.AuthPorts
}
