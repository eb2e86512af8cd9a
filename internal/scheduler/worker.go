package scheduler

import (
	"context"
	"net/url"
	"time"

	"github.com/leozw/wp-maintenance/internal/db"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDNSError     = "dns_error"
	statusStoreError   = "store_error"
)

type Worker struct {
	id        int
	workQueue <-chan *SyncJob
	repo      Store
	agent     Agent
	resolver  Resolver
	limiter   *rate.Limiter
	metrics   Recorder
	logger    *zap.Logger
	now       func() time.Time
}

func NewWorker(id int, workQueue <-chan *SyncJob, repo Store, agent Agent, resolver Resolver, limiter *rate.Limiter, metrics Recorder, logger *zap.Logger) *Worker {
	return &Worker{
		id:        id,
		workQueue: workQueue,
		repo:      repo,
		agent:     agent,
		resolver:  resolver,
		limiter:   limiter,
		metrics:   metrics,
		logger:    logger.With(zap.Int("worker_id", id)),
		now:       time.Now,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker stopped")
			return
		case job, ok := <-w.workQueue:
			if !ok {
				w.logger.Info("Work queue closed")
				return
			}
			w.processJob(ctx, job)
		}
	}
}

// processJob syncs one website. The website's last_sync is always advanced,
// even when the host does not resolve or the agent is unreachable.
func (w *Worker) processJob(ctx context.Context, job *SyncJob) string {
	if err := w.limiter.Wait(ctx); err != nil {
		return ""
	}
	start := time.Now()

	logger := w.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.Int64("website_id", job.WebsiteID),
	)

	sync := &db.WebsiteSync{
		WebsiteID:        job.WebsiteID,
		ConnectionStatus: StatusConnected,
	}

	host := ""
	if u, err := url.Parse(job.URL); err == nil {
		host = u.Hostname()
	}

	if err := w.resolver.Resolve(ctx, host); err != nil {
		logger.Warn("Website host did not resolve", zap.String("host", host), zap.Error(err))
		sync.ConnectionStatus = StatusDNSError
	} else if status, err := w.agent.FetchStatus(ctx, job.URL); err != nil {
		logger.Warn("Agent unreachable", zap.Error(err))
		sync.ConnectionStatus = StatusDisconnected
	} else {
		if status.WPVersion != "" {
			version := status.WPVersion
			sync.WPVersion = &version
		}
		sync.LastBackup = status.LastBackup
	}

	sync.SyncedAt = w.now().UTC()

	result := sync.ConnectionStatus
	if err := w.repo.UpdateWebsiteSync(ctx, sync); err != nil {
		logger.Error("Failed to store sync result", zap.Error(err))
		result = statusStoreError
	}

	w.metrics.RecordSync(result, time.Since(start))
	logger.Debug("Sync completed",
		zap.String("status", result),
		zap.Duration("duration", time.Since(start)),
	)
	return result
}
