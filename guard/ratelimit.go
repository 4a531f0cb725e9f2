package guard

import (
	"context"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/parlor-social/parlor/guard/countstore"
)

// CheckWriteRate counts the current write attempt against the author's
// per-community minute window and reports whether it exceeded the permitted
// rate. The increment happens before the comparison and is never rolled
// back: a rejected attempt still counts toward the window, so retry storms
// cannot reset the pressure.
//
// If the counter store is unreachable this fails open (not limited); losing
// rate limiting is preferred over blocking all writes.
func (g *Guard) CheckWriteRate(ctx context.Context, did syntax.DID, communityDid string, level TrustLevel, t Thresholds) bool {
	limit := t.EstablishedWriteRatePerMin
	if level == TrustNew {
		limit = t.NewAccountWriteRatePerMin
	}

	count, err := g.Counters.IncrementForPeriod(ctx, "writes/"+communityDid, did.String(), countstore.PeriodMinute)
	if err != nil {
		g.Logger.Warn("counter store unreachable, rate limit failing open", "did", did, "community", communityDid, "err", err)
		return false
	}
	if count > limit {
		rateLimitedCount.WithLabelValues(string(level)).Inc()
		return true
	}
	return false
}
