package module

import dom "proofwork/internal/services/outbox/domain"

// Ports holds the ports exposed by the outbox module
type Ports struct {
	Emitter    dom.EmitterPort
	Dispatcher dom.DispatcherPort
	Reaper     dom.ReaperPort
}
