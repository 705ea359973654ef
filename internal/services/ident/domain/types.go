// Package domain defines the identity entities and ports
package domain

import "time"

// Org is a buyer organization
type Org struct {
	ID              string
	Name            string
	CORSAllowlist   []string
	PlatformFeeBps  int
	FeeWallet       string
	SpendLimitCents int64
	CreatedAt       time.Time
}

// OrgUser is an interactive identity inside an org
type OrgUser struct {
	ID           string
	OrgID        string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is a cookie-backed login with a csrf secret
type Session struct {
	ID         string
	OrgUserID  string
	OrgID      string
	TokenHash  string
	CSRFSecret string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// APIKey is a programmatic buyer credential
// Only the prefix and a salted peppered hash are stored
type APIKey struct {
	ID         string
	OrgID      string
	Name       string
	KeyPrefix  string
	KeyHash    string
	Salt       string
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// Worker statuses
const (
	WorkerActive = "active"
	WorkerBanned = "banned"
)

// Worker is a registered worker agent
type Worker struct {
	ID               string
	DisplayName      string
	Capabilities     []string
	FingerprintClass string
	Status           string
	TokenHash        string
	RatePerMin       int
	DeniedTaskTypes  []string
	PayoutChainID    int64
	PayoutAddress    string
	PayoutVerifiedAt *time.Time
	LastSeenAt       *time.Time
	CreatedAt        time.Time
}

// Banned reports whether the worker may take jobs
func (w Worker) Banned() bool { return w.Status == WorkerBanned }
