package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a row does not exist for the requesting user.
var ErrNotFound = errors.New("not found")

type Repository struct {
	db *sqlx.DB
}

func NewConnection(databaseURL string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Ownership-scoped reads. Every query takes the user id as a bind parameter.

func (r *Repository) GetWebsite(ctx context.Context, id, userID int64) (*Website, error) {
	var w Website
	query := `
        SELECT id, owner_user_id, name, url, connection_status,
               wp_version, last_sync, last_backup
        FROM websites
        WHERE id = $1 AND owner_user_id = $2`

	if err := r.db.GetContext(ctx, &w, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get website %d: %w", id, err)
	}
	return &w, nil
}

func (r *Repository) GetClient(ctx context.Context, id, userID int64) (*Client, error) {
	var c Client
	query := `
        SELECT id, owner_user_id, name, email
        FROM clients
        WHERE id = $1 AND owner_user_id = $2`

	if err := r.db.GetContext(ctx, &c, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get client %d: %w", id, err)
	}
	return &c, nil
}

func (r *Repository) GetMaintenanceReport(ctx context.Context, id, userID int64) (*MaintenanceReport, error) {
	var m MaintenanceReport
	query := `
        SELECT id, owner_user_id, client_id, title, report_type, status,
               website_ids, created_at, generated_at, stored_data
        FROM maintenance_reports
        WHERE id = $1 AND owner_user_id = $2`

	if err := r.db.GetContext(ctx, &m, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get maintenance report %d: %w", id, err)
	}
	return &m, nil
}

func (r *Repository) GetPerformanceScans(ctx context.Context, websiteID, userID int64, limit int) ([]*PerformanceScan, error) {
	scans := []*PerformanceScan{}
	query := `
        SELECT p.id, p.website_id, p.scan_timestamp, p.lcp_score,
               p.pagespeed_score, p.scan_data
        FROM performance_scans p
        JOIN websites w ON p.website_id = w.id
        WHERE p.website_id = $1 AND w.owner_user_id = $2
        ORDER BY p.scan_timestamp DESC NULLS LAST
        LIMIT $3`

	if err := r.db.SelectContext(ctx, &scans, query, websiteID, userID, limit); err != nil {
		return nil, fmt.Errorf("get performance scans: %w", err)
	}
	return scans, nil
}

func (r *Repository) GetSecurityScans(ctx context.Context, websiteID, userID int64, limit int) ([]*SecurityScan, error) {
	scans := []*SecurityScan{}
	query := `
        SELECT s.id, s.website_id, s.scan_started_at, s.malware_status,
               s.threats_detected, s.core_vulnerabilities,
               s.plugin_vulnerabilities, s.theme_vulnerabilities
        FROM security_scans s
        JOIN websites w ON s.website_id = w.id
        WHERE s.website_id = $1 AND w.owner_user_id = $2
        ORDER BY s.scan_started_at DESC NULLS LAST
        LIMIT $3`

	if err := r.db.SelectContext(ctx, &scans, query, websiteID, userID, limit); err != nil {
		return nil, fmt.Errorf("get security scans: %w", err)
	}
	return scans, nil
}

func (r *Repository) GetUpdateLogs(ctx context.Context, websiteID, userID int64, limit int) ([]*UpdateLog, error) {
	logs := []*UpdateLog{}
	query := `
        SELECT u.id, u.website_id, u.update_type, u.item_name, u.from_version,
               u.to_version, u.update_status, u.created_at
        FROM update_logs u
        JOIN websites w ON u.website_id = w.id
        WHERE u.website_id = $1 AND w.owner_user_id = $2
        ORDER BY u.created_at DESC NULLS LAST
        LIMIT $3`

	if err := r.db.SelectContext(ctx, &logs, query, websiteID, userID, limit); err != nil {
		return nil, fmt.Errorf("get update logs: %w", err)
	}
	return logs, nil
}

// Telemetry sync. These run as a system job and are not user scoped.

func (r *Repository) GetWebsitesToSync(ctx context.Context, staleBefore time.Time, limit int) ([]*Website, error) {
	websites := []*Website{}
	query := `
        SELECT id, owner_user_id, name, url, connection_status,
               wp_version, last_sync, last_backup
        FROM websites
        WHERE url IS NOT NULL
        AND (last_sync IS NULL OR last_sync < $1)
        ORDER BY last_sync ASC NULLS FIRST
        LIMIT $2`

	if err := r.db.SelectContext(ctx, &websites, query, staleBefore, limit); err != nil {
		return nil, fmt.Errorf("get websites to sync: %w", err)
	}
	return websites, nil
}

func (r *Repository) UpdateWebsiteSync(ctx context.Context, s *WebsiteSync) error {
	query := `
        UPDATE websites SET
            connection_status = $1,
            wp_version = COALESCE($2, wp_version),
            last_backup = COALESCE($3, last_backup),
            last_sync = $4
        WHERE id = $5`

	_, err := r.db.ExecContext(ctx, query,
		s.ConnectionStatus,
		s.WPVersion,
		s.LastBackup,
		s.SyncedAt,
		s.WebsiteID,
	)
	if err != nil {
		return fmt.Errorf("update website sync %d: %w", s.WebsiteID, err)
	}
	return nil
}
