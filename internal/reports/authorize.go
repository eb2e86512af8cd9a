package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/leozw/wp-maintenance/internal/db"
)

// authorize walks the ownership chain: the website belongs to the user, the
// report belongs to the user, and the report covers the website. It stops at
// the first broken link.
func (s *Service) authorize(ctx context.Context, userID, websiteID, reportID int64) (*db.Website, *db.MaintenanceReport, error) {
	website, err := s.store.GetWebsite(ctx, websiteID, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil, &NotFoundError{Entity: EntityWebsite}
		}
		return nil, nil, fmt.Errorf("failed to get website: %w", err)
	}

	report, err := s.store.GetMaintenanceReport(ctx, reportID, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil, &NotFoundError{Entity: EntityReport}
		}
		return nil, nil, fmt.Errorf("failed to get maintenance report: %w", err)
	}

	if !report.WebsiteIDs.Contains(websiteID) {
		return nil, nil, ErrForbidden
	}

	return website, report, nil
}
