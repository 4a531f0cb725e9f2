package countstore

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemCountStore is an in-process CountStore. Increment-and-read is atomic per
// key (xsync.MapOf.Compute serializes per-key updates), so it is safe for
// concurrent use. Buckets are never evicted; intended for testing and
// single-node deployments, use RedisCountStore otherwise.
type MemCountStore struct {
	counts *xsync.MapOf[string, int]

	// Now is the clock used for period bucketing; overridable in tests.
	Now func() time.Time
}

var _ CountStore = (*MemCountStore)(nil)

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		counts: xsync.NewMapOf[string, int](),
		Now:    time.Now,
	}
}

func (s *MemCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	v, ok := s.counts.Load(periodBucket(name, val, period, s.Now()))
	if !ok {
		return 0, nil
	}
	return v, nil
}

func (s *MemCountStore) Increment(ctx context.Context, name, val string) error {
	for _, p := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		if _, err := s.IncrementForPeriod(ctx, name, val, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemCountStore) IncrementForPeriod(ctx context.Context, name, val, period string) (int, error) {
	k := periodBucket(name, val, period, s.Now())
	out, _ := s.counts.Compute(k, func(old int, _ bool) (int, bool) {
		return old + 1, false
	})
	return out, nil
}
