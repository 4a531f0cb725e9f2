package countstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	PeriodTotal  = "total"
	PeriodDay    = "day"
	PeriodHour   = "hour"
	PeriodMinute = "minute"
)

// CountStore is a shared counter store keyed by (name, val, period bucket).
// Implementations must make IncrementForPeriod a single atomic
// increment-and-read: two concurrent callers for the same bucket must never
// observe the same post-increment value.
type CountStore interface {
	GetCount(ctx context.Context, name, val, period string) (int, error)
	Increment(ctx context.Context, name, val string) error
	// IncrementForPeriod increments a single period bucket and returns the
	// post-increment value.
	IncrementForPeriod(ctx context.Context, name, val, period string) (int, error)
}

func periodBucket(name, val, period string, now time.Time) string {
	switch period {
	case PeriodTotal:
		return fmt.Sprintf("%s/%s", name, val)
	case PeriodDay:
		t := now.UTC().Format(time.DateOnly)
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	case PeriodHour:
		t := now.UTC().Format(time.RFC3339)[0:13]
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	case PeriodMinute:
		t := now.UTC().Format(time.RFC3339)[0:16]
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	default:
		slog.Warn("unhandled counter period", "period", period)
		return fmt.Sprintf("%s/%s", name, val)
	}
}

// bucket TTLs are two window-widths, so a bucket survives its own window plus
// the next before expiring
func periodTTL(period string) time.Duration {
	switch period {
	case PeriodDay:
		return 48 * time.Hour
	case PeriodHour:
		return 2 * time.Hour
	case PeriodMinute:
		return 2 * time.Minute
	default:
		return 0
	}
}
