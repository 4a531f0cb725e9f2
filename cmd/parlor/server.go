package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	slogecho "github.com/samber/slog-echo"

	"github.com/parlor-social/parlor/forum"
	"github.com/parlor-social/parlor/guard"
	"github.com/parlor-social/parlor/guard/cachestore"
	"github.com/parlor-social/parlor/guard/countstore"
	"github.com/parlor-social/parlor/guard/liststore"
	"github.com/parlor-social/parlor/util"
	"github.com/parlor-social/parlor/util/cliutil"
	"github.com/parlor-social/parlor/visibility"

	"github.com/parlor-social/parlor/models"
)

type Server struct {
	logger *slog.Logger
	svc    *forum.Service
	echo   *echo.Echo
}

type Config struct {
	DatabaseURL       string
	MaxDBConnections  int
	RedisURL          string
	PDSHost           string
	PDSIdentifier     string
	PDSPassword       string
	LabelHost         string
	BlocklistFileJSON string
	Logger            *slog.Logger
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	db, err := cliutil.SetupDatabase(config.DatabaseURL, config.MaxDBConnections)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("database migration: %w", err)
	}

	var counters countstore.CountStore
	var cache cachestore.CacheStore
	var blocklists liststore.ListStore
	var tracker forum.RepoTracker
	if config.RedisURL != "" {
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		counters = cnt

		csh, err := cachestore.NewRedisCacheStore(config.RedisURL, 30*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %v", err)
		}
		cache = csh

		lst, err := liststore.NewRedisListStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis liststore: %v", err)
		}
		blocklists = lst
		tracker = &redisTracker{rdb: rdb}
	} else {
		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(5_000, 30*time.Minute)
		mem := liststore.NewMemListStore()
		if config.BlocklistFileJSON != "" {
			if err := mem.LoadFromFileJSON(config.BlocklistFileJSON); err != nil {
				return nil, fmt.Errorf("loading blocklist config: %v", err)
			}
			logger.Info("loaded blocklist config from JSON", "path", config.BlocklistFileJSON)
		}
		blocklists = mem
		tracker = &memTracker{tracked: make(map[string]bool)}
	}

	var pdsAuth *xrpc.AuthInfo
	if config.PDSIdentifier != "" {
		xrpcc := &xrpc.Client{
			Client: util.RobustHTTPClient(),
			Host:   config.PDSHost,
			Auth:   &xrpc.AuthInfo{},
		}
		auth, err := comatproto.ServerCreateSession(context.TODO(), xrpcc, &comatproto.ServerCreateSession_Input{
			Identifier: config.PDSIdentifier,
			Password:   config.PDSPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to PDS: %v", err)
		}
		pdsAuth = &xrpc.AuthInfo{
			AccessJwt:  auth.AccessJwt,
			RefreshJwt: auth.RefreshJwt,
			Did:        auth.Did,
			Handle:     auth.Handle,
		}
	}

	var trustSignal forum.TrustSignal
	if config.LabelHost != "" {
		trustSignal = &labelSignal{
			client: &xrpc.Client{
				Client: util.RobustHTTPClient(),
				Host:   config.LabelHost,
			},
		}
	}

	g := guard.NewGuard(logger.With("subsystem", "guard"), counters, blocklists)
	svc := forum.NewService(db, forum.ServiceConfig{
		Logger:  logger,
		Guard:   g,
		Cache:   cache,
		PDS:     forum.NewXrpcPDSClient(config.PDSHost, pdsAuth),
		Signal:  trustSignal,
		Tracker: tracker,
	})

	s := &Server{
		logger: logger,
		svc:    svc,
	}
	s.echo = s.buildEcho()
	return s, nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(s.logger.With("subsystem", "http")))
	e.Use(middleware.Recover())

	e.GET("/_health", s.handleHealthCheck)
	e.GET("/topics", s.handleListTopics)
	e.GET("/topic", s.handleGetTopic)
	e.GET("/replies", s.handleListReplies)
	e.GET("/moderation/queue", s.handleListQueue)
	e.GET("/moderation/reports", s.handleListReports)
	return e
}

// RunAPI starts the public listener and blocks until SIGINT/SIGTERM, then
// shuts down the listener and drains post-commit tasks.
func (s *Server) RunAPI(bind string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(bind); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http shutdown", "err", err)
	}
	return s.svc.Shutdown(shutdownCtx)
}

func (s *Server) RunMetrics(listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, mux)
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// viewerFromRequest builds the visibility context from request parameters.
// Until real session auth lands, the declared identity rides in a header and
// maturity preferences in query params.
func viewerFromRequest(c echo.Context) forum.Viewer {
	var v forum.Viewer
	if raw := c.Request().Header.Get("X-Parlor-Did"); raw != "" {
		if did, err := syntax.ParseDID(raw); err == nil {
			v.DID = &did
		}
	}
	v.IsModerator = c.Request().Header.Get("X-Parlor-Moderator") == "true"
	if ageStr := c.QueryParam("declaredAge"); ageStr != "" {
		if age, err := strconv.Atoi(ageStr); err == nil {
			v.Profile = &visibility.ViewerProfile{
				DeclaredAge: &age,
				Preference:  visibility.Rating(c.QueryParam("maturity")),
			}
		}
	}
	return v
}

func pageParams(c echo.Context) (int, string) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return limit, c.QueryParam("cursor")
}

func writeServiceError(c echo.Context, err error) error {
	switch {
	case forum.IsRetryable(err):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		return c.JSON(statusForError(err), map[string]string{"error": err.Error()})
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, forum.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, forum.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, forum.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, forum.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListTopics(c echo.Context) error {
	limit, cursor := pageParams(c)
	topics, next, err := s.svc.ListTopics(c.Request().Context(), viewerFromRequest(c), forum.ListTopicsInput{
		CommunityDid: c.QueryParam("community"),
		Limit:        limit,
		Cursor:       cursor,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"topics": topics, "cursor": next})
}

func (s *Server) handleGetTopic(c echo.Context) error {
	topic, err := s.svc.GetTopic(c.Request().Context(), viewerFromRequest(c), c.QueryParam("uri"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, topic)
}

func (s *Server) handleListReplies(c echo.Context) error {
	limit, cursor := pageParams(c)
	replies, next, err := s.svc.ListReplies(c.Request().Context(), viewerFromRequest(c), forum.ListRepliesInput{
		TopicUri: c.QueryParam("topic"),
		Limit:    limit,
		Cursor:   cursor,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"replies": replies, "cursor": next})
}

func (s *Server) handleListQueue(c echo.Context) error {
	if !viewerFromRequest(c).IsModerator {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "moderator only"})
	}
	limit, cursor := pageParams(c)
	entries, next, err := s.svc.ListQueue(c.Request().Context(), forum.ListQueueInput{
		CommunityDid: c.QueryParam("community"),
		Reason:       c.QueryParam("reason"),
		Limit:        limit,
		Cursor:       cursor,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"entries": entries, "cursor": next})
}

func (s *Server) handleListReports(c echo.Context) error {
	if !viewerFromRequest(c).IsModerator {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "moderator only"})
	}
	limit, cursor := pageParams(c)
	reports, next, err := s.svc.ListPendingReports(c.Request().Context(), forum.ListReportsInput{
		CommunityDid: c.QueryParam("community"),
		Limit:        limit,
		Cursor:       cursor,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"reports": reports, "cursor": next})
}

// spam label values that force trust classification down to new
var flaggedLabelVals = map[string]bool{
	"spam":  true,
	"!hide": true,
}

// labelSignal queries a label service for moderation labels on an identity.
type labelSignal struct {
	client *xrpc.Client
}

func (l *labelSignal) IsFlagged(ctx context.Context, did syntax.DID) (bool, error) {
	var out struct {
		Labels []struct {
			Val string `json:"val"`
		} `json:"labels"`
	}
	params := map[string]any{
		"uriPatterns": []string{did.String()},
	}
	if err := l.client.Do(ctx, xrpc.Query, "", "com.atproto.label.queryLabels", params, nil, &out); err != nil {
		return false, fmt.Errorf("querying labels for %s: %w", did, err)
	}
	for _, lbl := range out.Labels {
		if flaggedLabelVals[lbl.Val] {
			return true, nil
		}
	}
	return false, nil
}

const trackedReposKey = "parlor/tracked-repos"

type redisTracker struct {
	rdb *redis.Client
}

func (t *redisTracker) IsTracked(ctx context.Context, did syntax.DID) (bool, error) {
	return t.rdb.SIsMember(ctx, trackedReposKey, did.String()).Result()
}

func (t *redisTracker) Track(ctx context.Context, did syntax.DID) error {
	return t.rdb.SAdd(ctx, trackedReposKey, did.String()).Err()
}

type memTracker struct {
	mu      sync.Mutex
	tracked map[string]bool
}

func (t *memTracker) IsTracked(ctx context.Context, did syntax.DID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracked[did.String()], nil
}

func (t *memTracker) Track(ctx context.Context, did syntax.DID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracked[did.String()] = true
	return nil
}
