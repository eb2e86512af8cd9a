// Package reports assembles the maintenance report document served for a
// website. Assembly authorizes the caller's ownership chain, collects the
// report's data sources concurrently, and shapes them into a fixed schema in
// which every missing value is replaced by a documented default.
package reports

import (
	"context"
	"errors"
	"time"

	"github.com/leozw/wp-maintenance/internal/db"
	"go.uber.org/zap"
)

// Store is the read side of the site store. Every method is scoped by the
// requesting user's id.
type Store interface {
	GetWebsite(ctx context.Context, id, userID int64) (*db.Website, error)
	GetClient(ctx context.Context, id, userID int64) (*db.Client, error)
	GetMaintenanceReport(ctx context.Context, id, userID int64) (*db.MaintenanceReport, error)
	GetPerformanceScans(ctx context.Context, websiteID, userID int64, limit int) ([]*db.PerformanceScan, error)
	GetSecurityScans(ctx context.Context, websiteID, userID int64, limit int) ([]*db.SecurityScan, error)
	GetUpdateLogs(ctx context.Context, websiteID, userID int64, limit int) ([]*db.UpdateLog, error)
}

// Recorder receives assembly metrics.
type Recorder interface {
	ObserveAssembly(outcome string, duration time.Duration)
	IncDegradedSource(source string)
}

// Clock abstracts time retrieval so assembly is deterministic in tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

type Options struct {
	CollectorTimeout time.Duration
	PerformanceLimit int
	SecurityLimit    int
	UpdateLimit      int
}

func DefaultOptions() Options {
	return Options{
		CollectorTimeout: 5 * time.Second,
		PerformanceLimit: 10,
		SecurityLimit:    10,
		UpdateLimit:      20,
	}
}

type Service struct {
	store    Store
	recorder Recorder
	clock    Clock
	opts     Options
	logger   *zap.Logger
}

func NewService(store Store, recorder Recorder, clock Clock, logger *zap.Logger, opts Options) *Service {
	defaults := DefaultOptions()
	if opts.CollectorTimeout <= 0 {
		opts.CollectorTimeout = defaults.CollectorTimeout
	}
	if opts.PerformanceLimit <= 0 {
		opts.PerformanceLimit = defaults.PerformanceLimit
	}
	if opts.SecurityLimit <= 0 {
		opts.SecurityLimit = defaults.SecurityLimit
	}
	if opts.UpdateLimit <= 0 {
		opts.UpdateLimit = defaults.UpdateLimit
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if clock == nil {
		clock = RealClock{}
	}

	return &Service{
		store:    store,
		recorder: recorder,
		clock:    clock,
		opts:     opts,
		logger:   logger.Named("reports"),
	}
}

// Assemble builds the report document for reportID as seen through websiteID.
// It returns *NotFoundError, ErrForbidden or an internal error; data source
// failures never fail the call.
func (s *Service) Assemble(ctx context.Context, userID, websiteID, reportID int64) (*Document, error) {
	start := time.Now()

	website, report, err := s.authorize(ctx, userID, websiteID, reportID)
	if err != nil {
		s.recorder.ObserveAssembly(outcomeOf(err), time.Since(start))
		return nil, err
	}

	sources := s.collect(ctx, userID, website, report)
	doc := shape(website, report, sources, s.clock.Now())

	s.recorder.ObserveAssembly("ok", time.Since(start))
	s.logger.Debug("Report assembled",
		zap.Int64("user_id", userID),
		zap.Int64("website_id", websiteID),
		zap.Int64("report_id", reportID),
		zap.Strings("degraded_sources", doc.Meta.DegradedSources),
		zap.Duration("duration", time.Since(start)),
	)

	return doc, nil
}

func outcomeOf(err error) string {
	var nf *NotFoundError
	switch {
	case errors.As(err, &nf):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveAssembly(string, time.Duration) {}
func (nopRecorder) IncDegradedSource(string)              {}
