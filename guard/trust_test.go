package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testGuard() *Guard {
	g := NewGuard(nil, nil, nil)
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	g.Now = func() time.Time { return fixed }
	return g
}

func TestClassifyAccount(t *testing.T) {
	assert := assert.New(t)

	g := testGuard()
	thresh := DefaultThresholds()
	now := g.Now()

	fixtures := []struct {
		age      time.Duration
		approved int64
		flagged  bool
		expect   TrustLevel
	}{
		{age: time.Hour, approved: 0, expect: TrustNew},
		{age: 6 * 24 * time.Hour, approved: 9, expect: TrustNew},
		{age: 8 * 24 * time.Hour, approved: 0, expect: TrustEstablished},
		{age: time.Hour, approved: 10, expect: TrustTrusted},
		{age: 365 * 24 * time.Hour, approved: 100, expect: TrustTrusted},
		// the federation spam flag always downgrades to new
		{age: 365 * 24 * time.Hour, approved: 100, flagged: true, expect: TrustNew},
	}

	for _, fix := range fixtures {
		acct := AccountMeta{
			DID:           "did:plc:abc123",
			CreatedAt:     now.Add(-fix.age),
			ApprovedCount: fix.approved,
			Flagged:       fix.flagged,
		}
		assert.Equal(fix.expect, g.ClassifyAccount(acct, thresh), "age=%s approved=%d flagged=%v", fix.age, fix.approved, fix.flagged)
	}
}

func trustRank(l TrustLevel) int {
	switch l {
	case TrustNew:
		return 0
	case TrustEstablished:
		return 1
	case TrustTrusted:
		return 2
	}
	return -1
}

// for fixed contribution count, more age never lowers the level; for fixed
// age, more contributions never lower the level
func TestClassifyMonotonic(t *testing.T) {
	assert := assert.New(t)

	g := testGuard()
	thresh := DefaultThresholds()
	now := g.Now()

	ages := []time.Duration{0, time.Hour, 24 * time.Hour, 7 * 24 * time.Hour, 30 * 24 * time.Hour}
	counts := []int64{0, 1, 3, 9, 10, 50}

	for _, count := range counts {
		prev := -1
		for _, age := range ages {
			l := g.ClassifyAccount(AccountMeta{DID: "did:plc:abc", CreatedAt: now.Add(-age), ApprovedCount: count}, thresh)
			assert.GreaterOrEqual(trustRank(l), prev, "count=%d age=%s", count, age)
			prev = trustRank(l)
		}
	}
	for _, age := range ages {
		prev := -1
		for _, count := range counts {
			l := g.ClassifyAccount(AccountMeta{DID: "did:plc:abc", CreatedAt: now.Add(-age), ApprovedCount: count}, thresh)
			assert.GreaterOrEqual(trustRank(l), prev, "count=%d age=%s", count, age)
			prev = trustRank(l)
		}
	}
}
