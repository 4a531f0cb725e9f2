package guard

import (
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

// Trust levels, in ascending order. The level governs which anti-spam checks
// apply to an account's writes.
type TrustLevel string

const (
	TrustNew         = TrustLevel("new")
	TrustEstablished = TrustLevel("established")
	TrustTrusted     = TrustLevel("trusted")
)

// AccountMeta is the slice of account state the classifier needs. Flagged is
// the federation-wide spam signal; when set, it force-downgrades the account
// to "new" regardless of age or contribution count. The override is
// one-directional: it only ever makes classification stricter.
type AccountMeta struct {
	DID           syntax.DID
	CreatedAt     time.Time
	ApprovedCount int64
	Flagged       bool
}

// ClassifyAccount derives an account's trust level from its age and approved
// contribution history. Pure function of its inputs.
func (g *Guard) ClassifyAccount(acct AccountMeta, t Thresholds) TrustLevel {
	if acct.Flagged {
		return TrustNew
	}
	if acct.ApprovedCount >= int64(t.TrustedPostThreshold) {
		return TrustTrusted
	}
	age := g.Now().Sub(acct.CreatedAt)
	if age < time.Duration(t.NewAccountDays)*24*time.Hour {
		return TrustNew
	}
	return TrustEstablished
}
