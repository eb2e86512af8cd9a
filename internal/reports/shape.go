package reports

import (
	"time"

	"github.com/leozw/wp-maintenance/internal/db"
)

const (
	SecurityGood   = "good"
	OverviewSafe   = "safe"
	OverviewWarn   = "warning"
	BackupsCurrent = "current"
	BackupsNone    = "none"
	HealthHealthy  = "healthy"
	HealthAttn     = "attention"
	connected      = "connected"
	defaultType    = "maintenance"
)

// Document is the report served to clients. Every field is always present;
// missing data shows up as defaults or empty lists, never as missing keys.
type Document struct {
	ID          int64              `json:"id"`
	WebsiteID   int64              `json:"websiteId"`
	Title       string             `json:"title"`
	ReportType  string             `json:"reportType"`
	Status      string             `json:"status"`
	CreatedAt   string             `json:"createdAt"`
	GeneratedAt *string            `json:"generatedAt"`
	Website     WebsiteSection     `json:"website"`
	Updates     UpdatesSection     `json:"updates"`
	Security    SecuritySection    `json:"security"`
	Performance PerformanceSection `json:"performance"`
	Backups     BackupsSection     `json:"backups"`
	Health      HealthSection      `json:"health"`
	Overview    OverviewSection    `json:"overview"`
	Meta        MetaSection        `json:"meta"`
}

type WebsiteSection struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	URL              string `json:"url"`
	WPVersion        string `json:"wpVersion"`
	ConnectionStatus string `json:"connectionStatus"`
	LastSync         string `json:"lastSync"`
}

type UpdatesSection struct {
	Total       int           `json:"total"`
	PluginCount int           `json:"pluginCount"`
	ThemeCount  int           `json:"themeCount"`
	Plugins     []UpdateEntry `json:"plugins"`
	Themes      []UpdateEntry `json:"themes"`
	WordPress   *UpdateEntry  `json:"wordpress"`
}

type SecuritySection struct {
	Status          string          `json:"status"`
	LastScan        *string         `json:"lastScan"`
	TotalScans      int             `json:"totalScans"`
	Vulnerabilities int             `json:"vulnerabilities"`
	ThreatsDetected int             `json:"threatsDetected"`
	History         []SecurityEntry `json:"history"`
}

type PerformanceSection struct {
	Score      int                `json:"score"`
	LoadTime   float64            `json:"loadTime"`
	TotalScans int                `json:"totalScans"`
	History    []PerformanceEntry `json:"history"`
}

type BackupsSection struct {
	Status     string  `json:"status"`
	LastBackup *string `json:"lastBackup"`
	Total      int     `json:"total"`
}

type HealthSection struct {
	Status           string `json:"status"`
	ConnectionStatus string `json:"connectionStatus"`
	WPVersion        string `json:"wpVersion"`
	LastSync         string `json:"lastSync"`
}

type OverviewSection struct {
	ClientName       string `json:"clientName"`
	ClientEmail      string `json:"clientEmail"`
	WebsiteName      string `json:"websiteName"`
	WebsiteURL       string `json:"websiteUrl"`
	UpdatesApplied   int    `json:"updatesApplied"`
	SecurityStatus   string `json:"securityStatus"`
	PerformanceScore int    `json:"performanceScore"`
	BackupStatus     string `json:"backupStatus"`
}

// MetaSection tells readers which sections were filled with defaults because
// their source failed.
type MetaSection struct {
	AssembledAt     string   `json:"assembledAt"`
	DegradedSources []string `json:"degradedSources"`
}

func shape(website *db.Website, report *db.MaintenanceReport, src *sources, now time.Time) *Document {
	site := normalizeWebsite(website, now)
	client := normalizeClient(src.client.value)
	updates := shapeUpdates(partitionUpdates(src.updates.value, now))
	security := shapeSecurity(normalizeSecurity(src.security.value, now))
	performance := shapePerformance(normalizePerformance(src.performance.value, now))
	backups := shapeBackups(website, report)

	overviewSecurity := OverviewSafe
	if security.Status == StatusIssues {
		overviewSecurity = OverviewWarn
	}

	health := HealthSection{
		Status:           HealthAttn,
		ConnectionStatus: site.ConnectionStatus,
		WPVersion:        site.WPVersion,
		LastSync:         site.LastSync,
	}
	if site.ConnectionStatus == connected {
		health.Status = HealthHealthy
	}

	reportType := report.ReportType
	if reportType == "" {
		reportType = defaultType
	}
	status := string(report.Status)
	if status == "" {
		status = string(db.ReportStatusDraft)
	}

	return &Document{
		ID:          report.ID,
		WebsiteID:   website.ID,
		Title:       report.Title,
		ReportType:  reportType,
		Status:      status,
		CreatedAt:   formatTime(&report.CreatedAt, now),
		GeneratedAt: formatOptionalTime(report.GeneratedAt),
		Website:     site,
		Updates:     updates,
		Security:    security,
		Performance: performance,
		Backups:     backups,
		Health:      health,
		Overview: OverviewSection{
			ClientName:       client.Name,
			ClientEmail:      client.Email,
			WebsiteName:      site.Name,
			WebsiteURL:       site.URL,
			UpdatesApplied:   updates.Total,
			SecurityStatus:   overviewSecurity,
			PerformanceScore: performance.Score,
			BackupStatus:     backups.Status,
		},
		Meta: MetaSection{
			AssembledAt:     now.UTC().Format(isoLayout),
			DegradedSources: src.degraded(),
		},
	}
}

func shapeUpdates(b updateBuckets) UpdatesSection {
	u := UpdatesSection{
		Total:       b.total,
		PluginCount: len(b.plugins),
		ThemeCount:  len(b.themes),
		Plugins:     b.plugins,
		Themes:      b.themes,
	}
	if len(b.core) > 0 {
		latest := b.core[0]
		u.WordPress = &latest
	}
	return u
}

func shapeSecurity(history []SecurityEntry) SecuritySection {
	s := SecuritySection{
		Status:     SecurityGood,
		TotalScans: len(history),
		History:    history,
	}
	for _, h := range history {
		if h.Status == StatusIssues {
			s.Status = StatusIssues
			break
		}
	}
	if len(history) > 0 {
		latest := history[0]
		s.LastScan = &latest.Date
		s.Vulnerabilities = latest.Vulnerabilities
		s.ThreatsDetected = latest.ThreatsDetected
	}
	return s
}

func shapePerformance(history []PerformanceEntry) PerformanceSection {
	p := PerformanceSection{
		Score:      DefaultPageSpeedScore,
		LoadTime:   DefaultLoadTime,
		TotalScans: len(history),
		History:    history,
	}
	if len(history) > 0 {
		p.Score = history[0].PageSpeedScore
		p.LoadTime = history[0].LoadTime
	}
	return p
}

func shapeBackups(website *db.Website, report *db.MaintenanceReport) BackupsSection {
	b := BackupsSection{
		Status:     BackupsNone,
		LastBackup: formatOptionalTime(website.LastBackup),
		Total:      backupTotal(report.StoredData),
	}
	if website.LastBackup != nil {
		b.Status = BackupsCurrent
	}
	return b
}
