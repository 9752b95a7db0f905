package worker

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/queue"
	"github.com/presenca/discovery-audit/internal/store"
)

type recordingRunner struct {
	mu    sync.Mutex
	runs  []string
	panic bool
	done  chan struct{}
}

func (r *recordingRunner) Run(ctx context.Context, auditID string) error {
	r.mu.Lock()
	r.runs = append(r.runs, auditID)
	r.mu.Unlock()
	defer func() {
		select {
		case r.done <- struct{}{}:
		default:
		}
	}()
	if r.panic {
		panic("boom")
	}
	return nil
}

func (r *recordingRunner) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedPendingAudit(t *testing.T, st store.Store) *model.Audit {
	t.Helper()
	ctx := context.Background()
	b, err := st.UpsertBusiness(ctx, model.Business{PlaceID: "p", Name: "B"})
	require.NoError(t, err)
	a, err := st.CreateAudit(ctx, model.Audit{BusinessID: b.ID})
	require.NoError(t, err)
	return a
}

func TestPoolProcessesQueuedAudits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := newTestStore(t)
	q := queue.NewMemory(4)
	runner := &recordingRunner{done: make(chan struct{}, 1)}

	pool := New(2, q, st, runner)
	require.NoError(t, pool.Start(ctx))

	require.NoError(t, q.Enqueue(ctx, "audit-1"))
	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit was not processed")
	}
	assert.Contains(t, runner.ran(), "audit-1")

	cancel()
	pool.Wait()
}

// Audits left pending by a previous process go back on the queue at startup.
func TestPoolRequeuesPendingOnStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := newTestStore(t)
	a := seedPendingAudit(t, st)

	q := queue.NewMemory(4)
	runner := &recordingRunner{done: make(chan struct{}, 1)}

	pool := New(1, q, st, runner)
	require.NoError(t, pool.Start(ctx))

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("pending audit was not requeued")
	}
	assert.Contains(t, runner.ran(), a.ID)

	cancel()
	pool.Wait()
}

// A panicking run marks the audit failed with a generic message and the
// worker survives.
func TestPoolRecoversFromPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := newTestStore(t)
	a := seedPendingAudit(t, st)

	q := queue.NewMemory(4)
	runner := &recordingRunner{panic: true, done: make(chan struct{}, 1)}

	pool := New(1, q, st, runner)
	require.NoError(t, pool.Start(ctx))

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit was not picked up")
	}

	// The worker recorded the failure and keeps consuming.
	require.Eventually(t, func() bool {
		got, err := st.GetAudit(context.Background(), a.ID)
		return err == nil && got.Status == model.AuditStatusFailed
	}, 2*time.Second, 20*time.Millisecond)

	got, err := st.GetAudit(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "internal error during audit processing", got.ErrorMessage)

	cancel()
	pool.Wait()
}
