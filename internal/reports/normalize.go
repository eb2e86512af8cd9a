package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/leozw/wp-maintenance/internal/db"
)

// Fallback values used when a source has no data for a field.
const (
	DefaultClientName       = "Unknown Client"
	DefaultClientEmail      = "N/A"
	DefaultWebsiteName      = "Unknown Website"
	DefaultWebsiteURL       = "https://example.com"
	DefaultWPVersion        = "Unknown"
	DefaultConnectionStatus = "unknown"
	DefaultLoadTime         = 2.5
	DefaultPageSpeedScore   = 85
	DefaultMalwareStatus    = "clean"
	DefaultPluginName       = "Unknown Plugin"
	DefaultThemeName        = "Unknown Theme"
	DefaultCoreName         = "WordPress"
	DefaultVersion          = "0.0.0"
	DefaultUpdateStatus     = "success"
)

const (
	StatusClean  = "clean"
	StatusIssues = "issues"
)

const isoLayout = "2006-01-02T15:04:05.000Z"

// formatTime renders t in UTC. A nil t becomes now, which readers must treat
// as an unknown time rather than a real event.
func formatTime(t *time.Time, now time.Time) string {
	if t == nil {
		return now.UTC().Format(isoLayout)
	}
	return t.UTC().Format(isoLayout)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(isoLayout)
	return &s
}

func stringOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

type clientInfo struct {
	Name  string
	Email string
}

func normalizeClient(c *db.Client) clientInfo {
	if c == nil {
		return clientInfo{Name: DefaultClientName, Email: DefaultClientEmail}
	}
	return clientInfo{
		Name:  stringOr(c.Name, DefaultClientName),
		Email: stringOr(c.Email, DefaultClientEmail),
	}
}

func normalizeWebsite(w *db.Website, now time.Time) WebsiteSection {
	return WebsiteSection{
		ID:               w.ID,
		Name:             stringOr(w.Name, DefaultWebsiteName),
		URL:              stringOr(w.URL, DefaultWebsiteURL),
		WPVersion:        stringOr(w.WPVersion, DefaultWPVersion),
		ConnectionStatus: stringOr(w.ConnectionStatus, DefaultConnectionStatus),
		LastSync:         formatTime(w.LastSync, now),
	}
}

type PerformanceEntry struct {
	Date           string   `json:"date"`
	LoadTime       float64  `json:"loadTime"`
	PageSpeedScore int      `json:"pageSpeedScore"`
	LCPScore       *float64 `json:"lcpScore"`
}

func normalizePerformance(scans []*db.PerformanceScan, now time.Time) []PerformanceEntry {
	entries := make([]PerformanceEntry, 0, len(scans))
	for _, scan := range scans {
		if scan == nil {
			continue
		}
		score := DefaultPageSpeedScore
		if scan.PagespeedScore != nil {
			score = *scan.PagespeedScore
		}
		entries = append(entries, PerformanceEntry{
			Date:           formatTime(scan.ScanTimestamp, now),
			LoadTime:       loadTime(scan),
			PageSpeedScore: score,
			LCPScore:       scan.LCPScore,
		})
	}
	return entries
}

// loadTime prefers scan_data.metrics.loadTime (seconds), then the LCP score,
// then DefaultLoadTime.
func loadTime(scan *db.PerformanceScan) float64 {
	if metrics, ok := scan.ScanData["metrics"].(map[string]interface{}); ok {
		if v, ok := number(metrics["loadTime"]); ok && v > 0 {
			return v
		}
	}
	if scan.LCPScore != nil && *scan.LCPScore > 0 {
		return *scan.LCPScore
	}
	return DefaultLoadTime
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

type SecurityEntry struct {
	Date            string `json:"date"`
	Status          string `json:"status"`
	MalwareStatus   string `json:"malwareStatus"`
	ThreatsDetected int    `json:"threatsDetected"`
	Vulnerabilities int    `json:"vulnerabilities"`
}

func normalizeSecurity(scans []*db.SecurityScan, now time.Time) []SecurityEntry {
	entries := make([]SecurityEntry, 0, len(scans))
	for _, scan := range scans {
		if scan == nil {
			continue
		}
		malware := stringOr(scan.MalwareStatus, DefaultMalwareStatus)
		status := StatusClean
		if malware != StatusClean || scan.ThreatsDetected > 0 {
			status = StatusIssues
		}
		entries = append(entries, SecurityEntry{
			Date:            formatTime(scan.ScanStartedAt, now),
			Status:          status,
			MalwareStatus:   malware,
			ThreatsDetected: scan.ThreatsDetected,
			Vulnerabilities: scan.CoreVulnerabilities + scan.PluginVulnerabilities + scan.ThemeVulnerabilities,
		})
	}
	return entries
}

type UpdateEntry struct {
	Name        string `json:"name"`
	FromVersion string `json:"fromVersion"`
	ToVersion   string `json:"toVersion"`
	Status      string `json:"status"`
	Date        string `json:"date"`
}

type updateBuckets struct {
	total   int
	plugins []UpdateEntry
	themes  []UpdateEntry
	core    []UpdateEntry
}

// partitionUpdates splits the fetched log window by update type. Each bucket
// is ordered newest first with undated entries last. Entries of any other
// type count towards total only.
func partitionUpdates(logs []*db.UpdateLog, now time.Time) updateBuckets {
	b := updateBuckets{
		total:   len(logs),
		plugins: []UpdateEntry{},
		themes:  []UpdateEntry{},
		core:    []UpdateEntry{},
	}

	var plugins, themes, core []*db.UpdateLog
	for _, l := range logs {
		if l == nil {
			continue
		}
		switch db.UpdateType(strings.ToLower(string(l.UpdateType))) {
		case db.UpdateTypePlugin:
			plugins = append(plugins, l)
		case db.UpdateTypeTheme:
			themes = append(themes, l)
		case db.UpdateTypeWordPress:
			core = append(core, l)
		}
	}

	b.plugins = normalizeUpdates(plugins, DefaultPluginName, now)
	b.themes = normalizeUpdates(themes, DefaultThemeName, now)
	b.core = normalizeUpdates(core, DefaultCoreName, now)
	return b
}

func normalizeUpdates(logs []*db.UpdateLog, defaultName string, now time.Time) []UpdateEntry {
	sort.SliceStable(logs, func(i, j int) bool {
		a, b := logs[i].CreatedAt, logs[j].CreatedAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})

	entries := make([]UpdateEntry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, UpdateEntry{
			Name:        stringOr(l.ItemName, defaultName),
			FromVersion: stringOr(l.FromVersion, DefaultVersion),
			ToVersion:   stringOr(l.ToVersion, DefaultVersion),
			Status:      stringOr(l.UpdateStatus, DefaultUpdateStatus),
			Date:        formatTime(l.CreatedAt, now),
		})
	}
	return entries
}

// backupTotal reads stored_data.backups.total, defaulting to zero.
func backupTotal(stored db.JSONB) int {
	backups, ok := stored["backups"].(map[string]interface{})
	if !ok {
		return 0
	}
	v, ok := number(backups["total"])
	if !ok || v < 0 {
		return 0
	}
	return int(v)
}
