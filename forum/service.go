// Package forum implements the write and read workflows of the forum core:
// content creation under the guard checks, the moderation queue, the report
// and appeal state machine, and maturity-filtered listings. External
// collaborators (PDS writes, the federation trust signal, repo tracking) are
// consumed through the narrow interfaces defined here.
package forum

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"gorm.io/gorm"

	"github.com/parlor-social/parlor/guard"
	"github.com/parlor-social/parlor/guard/cachestore"
)

// PDSClient writes and deletes records in a user's federated repository.
// Failures surface as a generic upstream-write failure to callers.
type PDSClient interface {
	WriteRecord(ctx context.Context, identity syntax.DID, collection string, record map[string]any) (uri string, cid string, err error)
	DeleteRecord(ctx context.Context, identity syntax.DID, collection, rkey string) error
}

// TrustSignal exposes the federation-wide spam label used to force-downgrade
// trust classification.
type TrustSignal interface {
	IsFlagged(ctx context.Context, did syntax.DID) (bool, error)
}

// RepoTracker registers identities with the local firehose mirror. Calls are
// best-effort and idempotent, made outside the primary transaction.
type RepoTracker interface {
	IsTracked(ctx context.Context, did syntax.DID) (bool, error)
	Track(ctx context.Context, did syntax.DID) error
}

// Service holds every workflow dependency. Constructed once per process and
// injected wherever workflows run; no package-level singletons.
type Service struct {
	db      *gorm.DB
	logger  *slog.Logger
	guard   *guard.Guard
	cache   cachestore.CacheStore
	pds     PDSClient
	signal  TrustSignal
	tracker RepoTracker
	tasks   *TaskRunner

	// Now is the service clock; overridable in tests.
	Now func() time.Time
}

type ServiceConfig struct {
	Logger  *slog.Logger
	Guard   *guard.Guard
	Cache   cachestore.CacheStore
	PDS     PDSClient
	Signal  TrustSignal
	Tracker RepoTracker
}

func NewService(db *gorm.DB, config ServiceConfig) *Service {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	svc := &Service{
		db:      db,
		logger:  logger,
		guard:   config.Guard,
		cache:   config.Cache,
		pds:     config.PDS,
		signal:  config.Signal,
		tracker: config.Tracker,
		Now:     time.Now,
	}
	svc.tasks = NewTaskRunner(logger.With("subsystem", "tasks"))
	return svc
}

// Shutdown drains the post-commit task queue.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.tasks.Shutdown(ctx)
}
