package worker

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/queue"
	"github.com/presenca/discovery-audit/internal/store"
)

// Runner executes one audit end to end.
type Runner interface {
	Run(ctx context.Context, auditID string) error
}

// Pool consumes audit ids from the queue with a fixed number of workers.
// Each worker handles one audit at a time.
type Pool struct {
	count  int
	queue  queue.Queue
	store  store.Store
	runner Runner

	wg sync.WaitGroup
}

// New creates a worker pool.
func New(count int, q queue.Queue, st store.Store, runner Runner) *Pool {
	if count <= 0 {
		count = 4
	}
	return &Pool{count: count, queue: q, store: st, runner: runner}
}

// Start requeues audits left pending by a previous run, then launches the
// workers. It returns immediately; Wait blocks until the context ends.
func (p *Pool) Start(ctx context.Context) error {
	if err := p.requeuePending(ctx); err != nil {
		return err
	}
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
	zap.L().Info("worker: pool started", zap.Int("workers", p.count))
	return nil
}

// Wait blocks until every worker has stopped.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// requeuePending makes restarts resumable: any audit created but never
// picked up goes back on the queue.
func (p *Pool) requeuePending(ctx context.Context) error {
	pending, err := p.store.ListAudits(ctx, store.AuditFilter{Status: model.AuditStatusPending})
	if err != nil {
		return eris.Wrap(err, "worker: list pending audits")
	}
	for _, a := range pending {
		if err := p.queue.Enqueue(ctx, a.ID); err != nil {
			return eris.Wrapf(err, "worker: requeue audit %s", a.ID)
		}
	}
	if len(pending) > 0 {
		zap.L().Info("worker: requeued pending audits", zap.Int("count", len(pending)))
	}
	return nil
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	log := zap.L().With(zap.Int("worker", id))

	for {
		auditID, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || eris.Is(err, queue.ErrClosed) {
				log.Info("worker: stopping")
				return
			}
			log.Error("worker: dequeue failed", zap.Error(err))
			continue
		}
		p.process(ctx, auditID, log)
	}
}

// process isolates one run so a panic kills the audit, not the worker.
func (p *Pool) process(ctx context.Context, auditID string, log *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("worker: run panicked",
				zap.String("audit_id", auditID),
				zap.Any("panic", r),
			)
			if err := p.store.FailAudit(ctx, auditID, "internal error during audit processing"); err != nil {
				log.Error("worker: failed to mark panicked audit", zap.Error(err))
			}
		}
	}()

	if err := p.runner.Run(ctx, auditID); err != nil {
		log.Warn("worker: audit run failed", zap.String("audit_id", auditID), zap.Error(err))
	}
}
