package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-ispider/ispider/internal/config"
	"github.com/go-ispider/ispider/internal/fetcher"
	"github.com/go-ispider/ispider/internal/parser"
	"github.com/go-ispider/ispider/internal/seo"
	"github.com/go-ispider/ispider/internal/storage"
	"github.com/go-ispider/ispider/internal/types"
)

// Scheduler runs the worker pool that drains the IN queue, dispatches
// fetches through the engine registry, applies the retry/fallback policy,
// expands successful responses into new requests, and persists results.
// Grounded on the teacher's Scheduler worker+idleMonitor pattern, rebuilt
// around the bounded IN channel instead of frontier polling. Each of the
// Pools coarse-grained workers pulls up to AsyncBlockSize requests off IN
// and fans them out concurrently via an errgroup, matching the two-level
// pool/async-block-size concurrency model.
type Scheduler struct {
	cfg    *config.Config
	logger *slog.Logger

	in        *InQueue
	out       *OutQueue
	registry  *fetcher.Registry
	robots    *parser.RobotsPolicy
	extractor *Extractor
	fc        *FetchController
	dump      *storage.ResponseStore
	items     storage.Storage
	auditor   *seo.MetaAuditor
	stats     *StatsReporter

	wg             sync.WaitGroup
	idleWorkers    atomic.Int32
	pools          int
	asyncBlockSize int
}

// NewScheduler builds a Scheduler from its collaborators.
func NewScheduler(
	cfg *config.Config,
	in *InQueue,
	out *OutQueue,
	registry *fetcher.Registry,
	robots *parser.RobotsPolicy,
	extractor *Extractor,
	fc *FetchController,
	dump *storage.ResponseStore,
	items storage.Storage,
	stats *StatsReporter,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:            cfg,
		logger:         logger.With("component", "scheduler"),
		in:             in,
		out:            out,
		registry:       registry,
		robots:         robots,
		extractor:      extractor,
		fc:             fc,
		dump:           dump,
		items:          items,
		auditor:        seo.NewMetaAuditor(logger),
		stats:          stats,
		pools:          cfg.Engine.Pools,
		asyncBlockSize: cfg.Engine.AsyncBlockSize,
	}
}

// Start launches the Pools worker goroutines and an idle monitor that
// closes the OUT and IN queues once no worker is busy and both queues are
// empty.
func (s *Scheduler) Start(ctx context.Context) {
	if s.pools < 1 {
		s.pools = 1
	}
	if s.asyncBlockSize < 1 {
		s.asyncBlockSize = 1
	}
	s.logger.Info("starting worker pool", "pools", s.pools, "async_block_size", s.asyncBlockSize)

	for i := 0; i < s.pools; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	go s.idleMonitor(ctx)
}

// Wait blocks until every worker has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) idleMonitor(ctx context.Context) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	idleStreak := 0

	for {
		select {
		case <-ctx.Done():
			s.out.Close()
			return
		case <-ticker.C:
			idle := int(s.idleWorkers.Load())
			empty := s.out.Len() == 0 && s.in.Len() == 0
			s.stats.SetQueueDepth(int64(s.in.Len()))
			s.stats.SetActiveWorkers(int32(s.pools) - int32(idle))

			if idle >= s.pools && empty {
				idleStreak++
				if idleStreak >= 3 {
					s.logger.Info("all workers idle, queues empty — crawl complete")
					s.out.Close()
					return
				}
			} else {
				idleStreak = 0
			}
		}
	}
}

func (s *Scheduler) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	logger := s.logger.With("worker_id", id)

	for {
		s.idleWorkers.Add(1)
		batch, ok := s.pullBatch(ctx)
		s.idleWorkers.Add(-1)
		if !ok {
			return
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, req := range batch {
			req := req
			g.Go(func() error {
				s.handle(gctx, logger, req)
				return nil
			})
		}
		_ = g.Wait()
	}
}

// pullBatch blocks for the first request off IN, then opportunistically
// drains up to AsyncBlockSize-1 more without blocking, so a worker never
// waits for a full batch to accumulate when the channel isn't that deep.
func (s *Scheduler) pullBatch(ctx context.Context) (batch []*types.Request, ok bool) {
	select {
	case <-ctx.Done():
		return nil, false
	case req, chOK := <-s.in.Chan():
		if !chOK {
			return nil, false
		}
		batch = append(batch, req)
	}

	for len(batch) < s.asyncBlockSize {
		select {
		case req, chOK := <-s.in.Chan():
			if !chOK {
				return batch, true
			}
			batch = append(batch, req)
		default:
			return batch, true
		}
	}
	return batch, true
}

func (s *Scheduler) handle(ctx context.Context, logger *slog.Logger, req *types.Request) {
	if s.cfg.Engine.RespectRobotsTxt && req.Kind != types.KindRobots && !s.robots.Allowed(req.DomainKey, req.URL.Path) {
		s.fc.Complete(req.DomainKey)
		return
	}

	eng, err := s.registry.Get(req.Engine)
	if err != nil {
		logger.Warn("no engine for request", "engine", req.Engine, "url", req.URLString())
		s.fc.Complete(req.DomainKey)
		return
	}

	s.stats.RecordRequest(req.DomainKey, req.Engine)
	resp, err := eng.Fetch(ctx, req)
	if err != nil {
		s.stats.RecordFailure()
		s.fc.Complete(req.DomainKey)
		return
	}
	s.stats.RecordResponse(req.DomainKey, resp.StatusCode, int64(len(resp.Content)))

	decision := Evaluate(resp, s.registry, &s.cfg.Engine)
	switch decision.Action {
	case ActionRetrySameEngine:
		s.stats.RecordRetry()
		s.requeueAfter(decision.Request, decision.Delay)
		return
	case ActionRetryNextEngine:
		s.stats.RecordRetry()
		s.out.Push(decision.Request)
		return
	case ActionAbandon:
		s.stats.RecordFailure()
		if finished := s.fc.Complete(req.DomainKey); finished {
			s.stats.RecordDomainFinished()
		}
		return
	}

	if finished := s.fc.Complete(req.DomainKey); finished {
		s.stats.RecordDomainFinished()
	}

	if err := s.dump.Write(resp); err != nil {
		logger.Warn("dump write failed", "error", err)
	}

	if req.Kind == types.KindRobots {
		s.robots.LoadResponse(resp)
		return
	}

	s.collectItems(logger, resp)

	children := s.extractor.Expand(resp)
	s.out.PushAll(children)
}

func (s *Scheduler) collectItems(logger *slog.Logger, resp *types.Response) {
	if resp.Request.Kind != types.KindLanding || !resp.IsSuccess() {
		return
	}

	result, err := s.auditor.Audit(resp)
	if err != nil {
		return
	}
	item := result.ToItem(resp.Request.Depth)
	item.URL = resp.Request.URLString()

	if err := s.items.Store([]*types.Item{item}); err != nil {
		logger.Warn("item store failed", "error", err)
		s.stats.RecordItems(resp.Request.DomainKey, 0, 1)
		return
	}
	s.stats.RecordItems(resp.Request.DomainKey, 1, 0)
}

func (s *Scheduler) requeueAfter(req *types.Request, delay time.Duration) {
	if delay <= 0 {
		s.out.Push(req)
		return
	}
	go func() {
		time.Sleep(delay)
		s.out.Push(req)
	}()
}
