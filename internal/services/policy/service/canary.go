package service

import (
	"crypto/sha256"
	"encoding/binary"
)

// CanaryAllows admits jobs whose stable hash fraction falls under the canary
// percentage. The fraction depends only on the job id, so a worker's refusal
// for one job never flips on a retry
func (s *Svc) CanaryAllows(jobID string, canaryPercent float64) bool {
	if canaryPercent >= 100 {
		return true
	}
	if canaryPercent <= 0 {
		return false
	}
	return canaryFraction(jobID) < canaryPercent/100
}

func canaryFraction(jobID string) float64 {
	sum := sha256.Sum256([]byte(jobID))
	return float64(binary.BigEndian.Uint64(sum[:8])) / (1 << 64)
}
