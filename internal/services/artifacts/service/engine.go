package service

import (
	"bytes"
	"context"
	"io"

	dom "proofwork/internal/services/artifacts/domain"
)

// Scan engine names accepted by SCANNER_ENGINE
const (
	EngineNoop  = "noop"
	EngineMagic = "magic"
)

// NoopEngine accepts everything. For dev environments only
type NoopEngine struct{}

func (NoopEngine) Name() string { return EngineNoop }

func (NoopEngine) Scan(context.Context, dom.Artifact, io.Reader) (dom.ScanResult, error) {
	return dom.ScanResult{Clean: true}, nil
}

// MagicEngine blocks native executables and interpreter scripts by
// sniffing the leading bytes. Evidence uploads are media and text;
// nothing legitimate starts with an executable header
type MagicEngine struct{}

func (MagicEngine) Name() string { return EngineMagic }

var blockedMagic = []struct {
	prefix []byte
	reason string
}{
	{[]byte{0x7f, 'E', 'L', 'F'}, "elf_executable"},
	{[]byte{'M', 'Z'}, "pe_executable"},
	{[]byte{0xfe, 0xed, 0xfa, 0xce}, "macho_executable"},
	{[]byte{0xfe, 0xed, 0xfa, 0xcf}, "macho_executable"},
	{[]byte{0xcf, 0xfa, 0xed, 0xfe}, "macho_executable"},
	{[]byte{0xca, 0xfe, 0xba, 0xbe}, "macho_universal"},
	{[]byte{'#', '!'}, "interpreter_script"},
}

func (MagicEngine) Scan(_ context.Context, _ dom.Artifact, body io.Reader) (dom.ScanResult, error) {
	head := make([]byte, 8)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return dom.ScanResult{}, err
	}
	head = head[:n]

	for _, m := range blockedMagic {
		if bytes.HasPrefix(head, m.prefix) {
			return dom.ScanResult{Reason: m.reason}, nil
		}
	}
	return dom.ScanResult{Clean: true}, nil
}

// EngineByName resolves the configured scan engine, defaulting to magic
func EngineByName(name string) dom.Engine {
	if name == EngineNoop {
		return NoopEngine{}
	}
	return MagicEngine{}
}
