package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	perr "proofwork/internal/platform/errors"
)

// newSecret returns n random bytes hex encoded
func newSecret(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("ident: crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// hashSecret is the at-rest form of worker tokens and session tokens
func hashSecret(secret, pepper string) string {
	sum := sha256.Sum256([]byte(pepper + secret))
	return hex.EncodeToString(sum[:])
}

// hashAPIKey is salted per key and peppered per deployment
func hashAPIKey(salt, secret, pepper string) string {
	sum := sha256.Sum256([]byte(salt + secret + pepper))
	return hex.EncodeToString(sum[:])
}

// ComposeAPIKey builds the full key handed to the buyer: pwk_<prefix>_<secret>
func ComposeAPIKey(prefix, secret string) string {
	return "pwk_" + prefix + "_" + secret
}

// SplitAPIKey parses a full key back into prefix and secret
func SplitAPIKey(key string) (prefix, secret string, ok bool) {
	rest, found := strings.CutPrefix(key, "pwk_")
	if !found {
		return "", "", false
	}
	prefix, secret, found = strings.Cut(rest, "_")
	if !found || prefix == "" || secret == "" {
		return "", "", false
	}
	return prefix, secret, true
}

// PayoutProofMessage is the text a worker signs to prove address control
func PayoutProofMessage(chainID int64, address string) string {
	return fmt.Sprintf("proofwork payout address %s chain %d", strings.ToLower(address), chainID)
}

// VerifyPayoutProof checks an EIP-191 personal signature over the proof message
func VerifyPayoutProof(chainID int64, address, signedProof string) error {
	if !common.IsHexAddress(address) {
		return perr.InvalidArgf("payout address %q is not a valid EVM address", address)
	}
	raw := strings.TrimPrefix(signedProof, "0x")
	sig, err := hex.DecodeString(raw)
	if err != nil || len(sig) != 65 {
		return perr.InvalidArgf("payout proof must be a 65-byte hex signature")
	}
	// geth's personal_sign uses v in {27,28}; crypto.SigToPub wants {0,1}
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}

	digest := accounts.TextHash([]byte(PayoutProofMessage(chainID, address)))
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return perr.InvalidArgf("payout proof signature invalid: %v", err)
	}
	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(address) {
		return perr.InvalidArgf("payout proof signer does not match address")
	}
	return nil
}
