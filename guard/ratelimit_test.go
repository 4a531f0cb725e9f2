package guard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/parlor-social/parlor/guard/countstore"
)

func TestCheckWriteRateSaturation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := countstore.NewMemCountStore()
	fixed := time.Date(2024, 6, 1, 12, 0, 30, 0, time.UTC)
	cs.Now = func() time.Time { return fixed }

	g := NewGuard(nil, cs, nil)
	thresh := DefaultThresholds()

	// exactly newAccountWriteRatePerMin calls pass, then every further call
	// in the same window is limited
	for i := 0; i < thresh.NewAccountWriteRatePerMin; i++ {
		assert.False(g.CheckWriteRate(ctx, "did:plc:abc", "did:web:c1", TrustNew, thresh))
	}
	assert.True(g.CheckWriteRate(ctx, "did:plc:abc", "did:web:c1", TrustNew, thresh))
	assert.True(g.CheckWriteRate(ctx, "did:plc:abc", "did:web:c1", TrustNew, thresh))

	// other identities and communities have their own windows
	assert.False(g.CheckWriteRate(ctx, "did:plc:other", "did:web:c1", TrustNew, thresh))
	assert.False(g.CheckWriteRate(ctx, "did:plc:abc", "did:web:c2", TrustNew, thresh))

	// next minute resets the bucket
	cs.Now = func() time.Time { return fixed.Add(time.Minute) }
	assert.False(g.CheckWriteRate(ctx, "did:plc:abc", "did:web:c1", TrustNew, thresh))
}

func TestCheckWriteRateEstablished(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := countstore.NewMemCountStore()
	fixed := time.Date(2024, 6, 1, 12, 0, 30, 0, time.UTC)
	cs.Now = func() time.Time { return fixed }

	g := NewGuard(nil, cs, nil)
	thresh := DefaultThresholds()

	for i := 0; i < thresh.EstablishedWriteRatePerMin; i++ {
		assert.False(g.CheckWriteRate(ctx, "did:plc:abc", "did:web:c1", TrustEstablished, thresh))
	}
	assert.True(g.CheckWriteRate(ctx, "did:plc:abc", "did:web:c1", TrustEstablished, thresh))
}

type brokenCountStore struct{}

func (brokenCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	return 0, fmt.Errorf("connection refused")
}
func (brokenCountStore) Increment(ctx context.Context, name, val string) error {
	return fmt.Errorf("connection refused")
}
func (brokenCountStore) IncrementForPeriod(ctx context.Context, name, val, period string) (int, error) {
	return 0, fmt.Errorf("connection refused")
}

func TestCheckWriteRateFailOpen(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	g := NewGuard(nil, brokenCountStore{}, nil)
	thresh := DefaultThresholds()

	// an unreachable counter store must never block writes
	for i := 0; i < 20; i++ {
		assert.False(g.CheckWriteRate(ctx, "did:plc:abc", "did:web:c1", TrustNew, thresh))
	}
}
