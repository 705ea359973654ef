// Package signing implements the timestamped HMAC scheme used on both sides
// of our webhook traffic: outbound event deliveries sign with it, inbound
// provider webhooks are verified with it
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	perr "proofwork/internal/platform/errors"
)

// DefaultSkew is how far a signature timestamp may drift from our clock
const DefaultSkew = 300 * time.Second

// Sign produces "t=<ts>,v1=<hex hmac-sha256(ts + "." + body)>"
func Sign(secret, ts string, body []byte) string {
	return "t=" + ts + ",v1=" + digest(secret, ts, body)
}

// Verify checks a "t=...,v1=..." header against the body.
// It rejects malformed headers, mismatched digests and timestamps further
// than skew from now
func Verify(secret, header string, body []byte, skew time.Duration, now time.Time) error {
	ts, sig, err := parse(header)
	if err != nil {
		return err
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return perr.Unauthorizedf("signature timestamp %q is not a unix time", ts)
	}
	if skew <= 0 {
		skew = DefaultSkew
	}
	if drift := now.Sub(time.Unix(unix, 0)); drift > skew || drift < -skew {
		return perr.Unauthorizedf("signature timestamp outside the %s window", skew)
	}

	want := digest(secret, ts, body)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return perr.Unauthorizedf("signature mismatch")
	}
	return nil
}

func digest(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func parse(header string) (ts, sig string, err error) {
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return "", "", perr.Unauthorizedf("malformed signature header")
	}
	return ts, sig, nil
}
