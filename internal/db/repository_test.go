package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewRepository(sqlx.NewDb(mockDB, "sqlmock")), mock
}

var websiteColumns = []string{
	"id", "owner_user_id", "name", "url", "connection_status",
	"wp_version", "last_sync", "last_backup",
}

func TestGetWebsite(t *testing.T) {
	ctx := context.Background()

	t.Run("scopes the query by owner", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		lastSync := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`FROM websites\s+WHERE id = \$1 AND owner_user_id = \$2`).
			WithArgs(int64(5), int64(42)).
			WillReturnRows(sqlmock.NewRows(websiteColumns).
				AddRow(int64(5), int64(42), "Shop", "https://shop.test", "connected", "6.5.2", lastSync, nil))

		w, err := repo.GetWebsite(ctx, 5, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(5), w.ID)
		require.NotNil(t, w.Name)
		assert.Equal(t, "Shop", *w.Name)
		assert.Nil(t, w.LastBackup)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing rows to ErrNotFound", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(`FROM websites`).
			WithArgs(int64(5), int64(43)).
			WillReturnRows(sqlmock.NewRows(websiteColumns))

		_, err := repo.GetWebsite(ctx, 5, 43)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("wraps driver errors", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		boom := errors.New("connection reset")
		mock.ExpectQuery(`FROM websites`).WillReturnError(boom)

		_, err := repo.GetWebsite(ctx, 5, 42)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestGetMaintenanceReport_NormalizesScalarWebsiteIDs(t *testing.T) {
	repo, mock := newMockRepository(t)
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM maintenance_reports\s+WHERE id = \$1 AND owner_user_id = \$2`).
		WithArgs(int64(9), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_user_id", "client_id", "title", "report_type", "status",
			"website_ids", "created_at", "generated_at", "stored_data",
		}).AddRow(int64(9), int64(42), nil, "March", "maintenance", "generated",
			[]byte(`5`), created, nil, []byte(`{"backups":{"total":3}}`)))

	report, err := repo.GetMaintenanceReport(context.Background(), 9, 42)
	require.NoError(t, err)
	assert.True(t, report.WebsiteIDs.Contains(5))
	assert.Equal(t, ReportStatusGenerated, report.Status)
	assert.Nil(t, report.ClientID)
	assert.Contains(t, report.StoredData, "backups")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMaintenanceReport_ToleratesLegacyPayloads(t *testing.T) {
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		websiteIDs []byte
		storedData []byte
		wantIDs    []int64
	}{
		{name: "stored data array", websiteIDs: []byte(`[5]`), storedData: []byte(`[]`), wantIDs: []int64{5}},
		{name: "stored data string", websiteIDs: []byte(`5`), storedData: []byte(`"legacy"`), wantIDs: []int64{5}},
		{name: "quoted website ids", websiteIDs: []byte(`["5","6"]`), storedData: []byte(`{}`), wantIDs: []int64{5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			mock.ExpectQuery(`FROM maintenance_reports`).
				WithArgs(int64(9), int64(42)).
				WillReturnRows(sqlmock.NewRows([]string{
					"id", "owner_user_id", "client_id", "title", "report_type", "status",
					"website_ids", "created_at", "generated_at", "stored_data",
				}).AddRow(int64(9), int64(42), nil, "March", "maintenance", "generated",
					tt.websiteIDs, created, nil, tt.storedData))

			report, err := repo.GetMaintenanceReport(context.Background(), 9, 42)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, report.WebsiteIDs.Slice())
			assert.NotNil(t, report.StoredData)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetClient_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`FROM clients\s+WHERE id = \$1 AND owner_user_id = \$2`).
		WithArgs(int64(3), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_user_id", "name", "email"}))

	_, err := repo.GetClient(context.Background(), 3, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryQueriesJoinOwner(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	t.Run("performance", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(`FROM performance_scans p\s+JOIN websites w ON p.website_id = w.id\s+WHERE p.website_id = \$1 AND w.owner_user_id = \$2`).
			WithArgs(int64(5), int64(42), 10).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "website_id", "scan_timestamp", "lcp_score", "pagespeed_score", "scan_data",
			}).AddRow(int64(1), int64(5), ts, 1.8, 92, []byte(`{"metrics":{"loadTime":1.2}}`)))

		scans, err := repo.GetPerformanceScans(ctx, 5, 42, 10)
		require.NoError(t, err)
		require.Len(t, scans, 1)
		require.NotNil(t, scans[0].PagespeedScore)
		assert.Equal(t, 92, *scans[0].PagespeedScore)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("security", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(`FROM security_scans s\s+JOIN websites w ON s.website_id = w.id\s+WHERE s.website_id = \$1 AND w.owner_user_id = \$2`).
			WithArgs(int64(5), int64(42), 10).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "website_id", "scan_started_at", "malware_status", "threats_detected",
				"core_vulnerabilities", "plugin_vulnerabilities", "theme_vulnerabilities",
			}).AddRow(int64(1), int64(5), ts, "clean", 0, 1, 2, 0))

		scans, err := repo.GetSecurityScans(ctx, 5, 42, 10)
		require.NoError(t, err)
		require.Len(t, scans, 1)
		assert.Equal(t, 2, scans[0].PluginVulnerabilities)
	})

	t.Run("update logs empty result is an empty slice", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(`FROM update_logs u\s+JOIN websites w ON u.website_id = w.id\s+WHERE u.website_id = \$1 AND w.owner_user_id = \$2`).
			WithArgs(int64(5), int64(42), 20).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "website_id", "update_type", "item_name", "from_version",
				"to_version", "update_status", "created_at",
			}))

		logs, err := repo.GetUpdateLogs(ctx, 5, 42, 20)
		require.NoError(t, err)
		assert.NotNil(t, logs)
		assert.Empty(t, logs)
	})
}

func TestUpdateWebsiteSync(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	version := "6.5.3"

	mock.ExpectExec(`UPDATE websites SET`).
		WithArgs("connected", "6.5.3", nil, now, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateWebsiteSync(context.Background(), &WebsiteSync{
		WebsiteID:        5,
		ConnectionStatus: "connected",
		WPVersion:        &version,
		SyncedAt:         now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
