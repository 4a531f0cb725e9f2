package forum

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRunnerExecutesTasks(t *testing.T) {
	r := NewTaskRunner(slog.New(slog.DiscardHandler))

	var mu sync.Mutex
	ran := 0
	r.Enqueue("track", func(ctx context.Context) error {
		mu.Lock()
		ran++
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, ran)
}

func TestTaskRunnerEnqueueAfterShutdown(t *testing.T) {
	r := NewTaskRunner(slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	// dropped, not panicked
	r.Enqueue("track", func(ctx context.Context) error {
		t.Error("task ran after shutdown")
		return nil
	})

	// Shutdown is idempotent
	require.NoError(t, r.Shutdown(ctx))
}
