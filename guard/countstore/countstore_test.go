package countstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	c, err := cs.GetCount(ctx, "test1", "val1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)
	assert.NoError(cs.Increment(ctx, "test1", "val1"))
	assert.NoError(cs.Increment(ctx, "test1", "val1"))

	for _, period := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		c, err = cs.GetCount(ctx, "test1", "val1", period)
		assert.NoError(err)
		assert.Equal(2, c)
	}
}

func TestMemCountStoreIncrementForPeriod(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()
	fixed := time.Date(2024, 3, 1, 12, 30, 15, 0, time.UTC)
	cs.Now = func() time.Time { return fixed }

	for i := 1; i <= 3; i++ {
		c, err := cs.IncrementForPeriod(ctx, "writes", "did:plc:abc", PeriodMinute)
		assert.NoError(err)
		assert.Equal(i, c)
	}

	c, err := cs.GetCount(ctx, "writes", "did:plc:abc", PeriodMinute)
	assert.NoError(err)
	assert.Equal(3, c)

	// next minute starts a fresh bucket
	cs.Now = func() time.Time { return fixed.Add(time.Minute) }
	c, err = cs.IncrementForPeriod(ctx, "writes", "did:plc:abc", PeriodMinute)
	assert.NoError(err)
	assert.Equal(1, c)
}

func TestMemCountStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	// N concurrent increments must settle to exactly N, with every caller
	// observing a distinct post-increment value. Run with `-race`.
	const writers = 8
	const perWriter = 25

	seen := make([]map[int]bool, writers)
	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		seen[w] = make(map[int]bool, perWriter)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				c, err := cs.IncrementForPeriod(ctx, "burst", "val", PeriodTotal)
				assert.NoError(err)
				seen[w][c] = true
			}
		}(w)
	}
	wg.Wait()

	c, err := cs.GetCount(ctx, "burst", "val", PeriodTotal)
	assert.NoError(err)
	assert.Equal(writers*perWriter, c)

	all := make(map[int]bool)
	for w := 0; w < writers; w++ {
		for v := range seen[w] {
			assert.False(all[v], "post-increment value observed twice: %d", v)
			all[v] = true
		}
	}
	assert.Equal(writers*perWriter, len(all))
}
