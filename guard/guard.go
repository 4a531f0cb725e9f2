// Package guard implements the write-path decision engines for the forum:
// trust classification, per-identity write rate limiting, and content
// screening. Decisions are returned as values; translating them into user
// visible errors is the calling workflow's job.
package guard

import (
	"log/slog"
	"os"
	"time"

	"github.com/parlor-social/parlor/guard/countstore"
	"github.com/parlor-social/parlor/guard/liststore"
)

// Guard evaluates write attempts. Constructed once per process and injected
// into every workflow; holds handles to the shared counter store and the
// per-community blocklist store.
type Guard struct {
	Logger     *slog.Logger
	Counters   countstore.CountStore
	Blocklists liststore.ListStore

	// Now is the clock used for all time-based checks; overridable in tests.
	Now func() time.Time
}

func NewGuard(logger *slog.Logger, counters countstore.CountStore, blocklists liststore.ListStore) *Guard {
	if logger == nil {
		logger = defaultLogger().With("system", "guard")
	}
	return &Guard{
		Logger:     logger,
		Counters:   counters,
		Blocklists: blocklists,
		Now:        time.Now,
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
