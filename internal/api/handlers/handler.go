package handlers

import (
	"context"
	"time"

	"github.com/leozw/wp-maintenance/internal/reports"
	"go.uber.org/zap"
)

// ReportAssembler builds maintenance report documents.
type ReportAssembler interface {
	Assemble(ctx context.Context, userID, websiteID, reportID int64) (*reports.Document, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Version is stamped at build time with -ldflags "-X .../handlers.Version=...".
var Version = "dev"

const serviceName = "wp-maintenance-api"

type Handler struct {
	reports ReportAssembler
	db      Pinger
	logger  *zap.Logger
	started time.Time
}

func NewHandler(reports ReportAssembler, db Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		reports: reports,
		db:      db,
		logger:  logger,
		started: time.Now(),
	}
}
