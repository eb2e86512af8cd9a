// Package scheduler keeps website telemetry fresh. The scheduler finds
// websites whose last sync is stale and hands them to a pool of workers that
// query each site's maintenance agent.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/wp-maintenance/internal/config"
	"github.com/leozw/wp-maintenance/internal/db"
	"github.com/leozw/wp-maintenance/pkg/wpagent"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Store is the system-level side of the site store used by syncs.
type Store interface {
	GetWebsitesToSync(ctx context.Context, staleBefore time.Time, limit int) ([]*db.Website, error)
	UpdateWebsiteSync(ctx context.Context, s *db.WebsiteSync) error
}

type Agent interface {
	FetchStatus(ctx context.Context, siteURL string) (*wpagent.SiteStatus, error)
}

type Resolver interface {
	Resolve(ctx context.Context, host string) error
}

type Recorder interface {
	RecordSync(status string, duration time.Duration)
	RecordScheduled(count, queueSize int)
}

type Scheduler struct {
	repo     Store
	agent    Agent
	resolver Resolver
	metrics  Recorder
	limiter  *rate.Limiter
	logger   *zap.Logger
	config   config.SyncConfig
	now      func() time.Time
	workers  []*Worker
	wg       sync.WaitGroup
}

func NewScheduler(repo Store, agent Agent, resolver Resolver, metrics Recorder, logger *zap.Logger, cfg config.SyncConfig, agentCfg config.AgentConfig) *Scheduler {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	limit := rate.Inf
	if agentCfg.RateLimit > 0 {
		limit = rate.Limit(agentCfg.RateLimit)
	}
	burst := agentCfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Scheduler{
		repo:     repo,
		agent:    agent,
		resolver: resolver,
		metrics:  metrics,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.Named("scheduler"),
		config:   cfg,
		now:      time.Now,
	}
}

// Start runs the workers and schedules a pass every Interval until ctx is
// done. It returns after every worker has stopped.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting scheduler", zap.Int("worker_count", s.config.WorkerCount))

	workQueue := make(chan *SyncJob, s.config.QueueSize)
	s.workers = make([]*Worker, s.config.WorkerCount)

	for i := 0; i < s.config.WorkerCount; i++ {
		worker := NewWorker(i, workQueue, s.repo, s.agent, s.resolver, s.limiter, s.metrics, s.logger)
		worker.now = s.now
		s.workers[i] = worker
		s.wg.Add(1)
		go func(w *Worker) {
			defer s.wg.Done()
			w.Start(ctx)
		}(worker)
	}

	s.scheduleSyncs(ctx, workQueue)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping scheduler")
			close(workQueue)
			s.wg.Wait()
			return
		case <-ticker.C:
			s.scheduleSyncs(ctx, workQueue)
		}
	}
}

// scheduleSyncs queues every stale website. Jobs that do not fit in the
// queue are dropped and picked up again on a later pass.
func (s *Scheduler) scheduleSyncs(ctx context.Context, workQueue chan<- *SyncJob) int {
	staleBefore := s.now().Add(-s.config.StaleAfter)
	websites, err := s.repo.GetWebsitesToSync(ctx, staleBefore, s.config.QueueSize)
	if err != nil {
		s.logger.Error("Failed to get websites to sync", zap.Error(err))
		return 0
	}

	queued := 0
	for _, website := range websites {
		if website.URL == nil || *website.URL == "" {
			continue
		}
		job := &SyncJob{
			ID:        uuid.New(),
			WebsiteID: website.ID,
			URL:       *website.URL,
		}

		select {
		case workQueue <- job:
			queued++
			s.logger.Debug("Scheduled sync",
				zap.String("job_id", job.ID.String()),
				zap.Int64("website_id", website.ID),
			)
		default:
			s.logger.Warn("Work queue full, dropping sync",
				zap.Int64("website_id", website.ID),
			)
		}
	}

	s.metrics.RecordScheduled(queued, len(workQueue))
	if queued > 0 {
		s.logger.Info("Scheduled website syncs", zap.Int("count", queued))
	}
	return queued
}

type SyncJob struct {
	ID        uuid.UUID
	WebsiteID int64
	URL       string
}
