package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/leozw/wp-maintenance/internal/db"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	SourceClient      = "client"
	SourcePerformance = "performance"
	SourceSecurity    = "security"
	SourceUpdates     = "updates"
)

var errClientMissing = errors.New("referenced client not found")

// sourceResult is the outcome of one collector. A degraded result carries the
// empty value and the error that caused it.
type sourceResult[T any] struct {
	value    T
	degraded bool
	err      error
}

type sources struct {
	client      sourceResult[*db.Client]
	performance sourceResult[[]*db.PerformanceScan]
	security    sourceResult[[]*db.SecurityScan]
	updates     sourceResult[[]*db.UpdateLog]
}

// degraded returns the names of the degraded sources in sorted order.
func (s *sources) degraded() []string {
	names := []string{}
	if s.client.degraded {
		names = append(names, SourceClient)
	}
	if s.performance.degraded {
		names = append(names, SourcePerformance)
	}
	if s.security.degraded {
		names = append(names, SourceSecurity)
	}
	if s.updates.degraded {
		names = append(names, SourceUpdates)
	}
	sort.Strings(names)
	return names
}

func (s *Service) collect(ctx context.Context, userID int64, website *db.Website, report *db.MaintenanceReport) *sources {
	out := &sources{}
	timeout := s.opts.CollectorTimeout

	// Goroutines always return nil; failures travel inside each sourceResult.
	var g errgroup.Group

	g.Go(func() error {
		if report.ClientID == nil {
			return nil
		}
		clientID := *report.ClientID
		out.client = runCollector(ctx, timeout, nil, func(ctx context.Context) (*db.Client, error) {
			c, err := s.store.GetClient(ctx, clientID, userID)
			if errors.Is(err, db.ErrNotFound) {
				return nil, errClientMissing
			}
			return c, err
		})
		return nil
	})

	g.Go(func() error {
		out.performance = runCollector(ctx, timeout, []*db.PerformanceScan{}, func(ctx context.Context) ([]*db.PerformanceScan, error) {
			return s.store.GetPerformanceScans(ctx, website.ID, userID, s.opts.PerformanceLimit)
		})
		return nil
	})

	g.Go(func() error {
		out.security = runCollector(ctx, timeout, []*db.SecurityScan{}, func(ctx context.Context) ([]*db.SecurityScan, error) {
			return s.store.GetSecurityScans(ctx, website.ID, userID, s.opts.SecurityLimit)
		})
		return nil
	})

	g.Go(func() error {
		out.updates = runCollector(ctx, timeout, []*db.UpdateLog{}, func(ctx context.Context) ([]*db.UpdateLog, error) {
			return s.store.GetUpdateLogs(ctx, website.ID, userID, s.opts.UpdateLimit)
		})
		return nil
	})

	_ = g.Wait()

	if out.performance.value == nil {
		out.performance.value = []*db.PerformanceScan{}
	}
	if out.security.value == nil {
		out.security.value = []*db.SecurityScan{}
	}
	if out.updates.value == nil {
		out.updates.value = []*db.UpdateLog{}
	}

	s.reportDegraded(userID, website.ID, report.ID, SourceClient, out.client.err)
	s.reportDegraded(userID, website.ID, report.ID, SourcePerformance, out.performance.err)
	s.reportDegraded(userID, website.ID, report.ID, SourceSecurity, out.security.err)
	s.reportDegraded(userID, website.ID, report.ID, SourceUpdates, out.updates.err)

	return out
}

func (s *Service) reportDegraded(userID, websiteID, reportID int64, source string, err error) {
	if err == nil {
		return
	}
	s.recorder.IncDegradedSource(source)
	s.logger.Warn("Report source degraded",
		zap.String("source", source),
		zap.Int64("user_id", userID),
		zap.Int64("website_id", websiteID),
		zap.Int64("report_id", reportID),
		zap.Error(err),
	)
}

// runCollector runs fetch under its own timeout. A store error, a panic or
// the timeout all produce a degraded result holding empty.
func runCollector[T any](ctx context.Context, timeout time.Duration, empty T, fetch func(context.Context) (T, error)) sourceResult[T] {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("collector panic: %v", r)}
			}
		}()
		v, err := fetch(ctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return sourceResult[T]{value: empty, degraded: true, err: o.err}
		}
		return sourceResult[T]{value: o.value}
	case <-ctx.Done():
		return sourceResult[T]{value: empty, degraded: true, err: ctx.Err()}
	}
}
