package service

import (
	"crypto/rand"
	"encoding/hex"
)

// newNonce mints the per-lease fencing token
func newNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("scheduler: nonce entropy unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}
