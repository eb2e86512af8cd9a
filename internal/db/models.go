package db

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"
	ReportStatusGenerated ReportStatus = "generated"
	ReportStatusSent      ReportStatus = "sent"
	ReportStatusFailed    ReportStatus = "failed"
)

type UpdateType string

const (
	UpdateTypePlugin    UpdateType = "plugin"
	UpdateTypeTheme     UpdateType = "theme"
	UpdateTypeWordPress UpdateType = "wordpress"
)

type User struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Website struct {
	ID               int64      `json:"id" db:"id"`
	OwnerUserID      int64      `json:"-" db:"owner_user_id"`
	Name             *string    `json:"name" db:"name"`
	URL              *string    `json:"url" db:"url"`
	ConnectionStatus *string    `json:"connection_status" db:"connection_status"`
	WPVersion        *string    `json:"wp_version" db:"wp_version"`
	LastSync         *time.Time `json:"last_sync" db:"last_sync"`
	LastBackup       *time.Time `json:"last_backup" db:"last_backup"`
}

type Client struct {
	ID          int64   `json:"id" db:"id"`
	OwnerUserID int64   `json:"-" db:"owner_user_id"`
	Name        *string `json:"name" db:"name"`
	Email       *string `json:"email" db:"email"`
}

type MaintenanceReport struct {
	ID          int64        `json:"id" db:"id"`
	OwnerUserID int64        `json:"-" db:"owner_user_id"`
	ClientID    *int64       `json:"client_id" db:"client_id"`
	Title       string       `json:"title" db:"title"`
	ReportType  string       `json:"report_type" db:"report_type"`
	Status      ReportStatus `json:"status" db:"status"`
	WebsiteIDs  WebsiteIDSet `json:"website_ids" db:"website_ids"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	GeneratedAt *time.Time   `json:"generated_at" db:"generated_at"`
	StoredData  JSONB        `json:"stored_data" db:"stored_data"`
}

type PerformanceScan struct {
	ID             int64      `json:"id" db:"id"`
	WebsiteID      int64      `json:"website_id" db:"website_id"`
	ScanTimestamp  *time.Time `json:"scan_timestamp" db:"scan_timestamp"`
	LCPScore       *float64   `json:"lcp_score" db:"lcp_score"`
	PagespeedScore *int       `json:"pagespeed_score" db:"pagespeed_score"`
	ScanData       JSONB      `json:"scan_data" db:"scan_data"`
}

type SecurityScan struct {
	ID                    int64      `json:"id" db:"id"`
	WebsiteID             int64      `json:"website_id" db:"website_id"`
	ScanStartedAt         *time.Time `json:"scan_started_at" db:"scan_started_at"`
	MalwareStatus         *string    `json:"malware_status" db:"malware_status"`
	ThreatsDetected       int        `json:"threats_detected" db:"threats_detected"`
	CoreVulnerabilities   int        `json:"core_vulnerabilities" db:"core_vulnerabilities"`
	PluginVulnerabilities int        `json:"plugin_vulnerabilities" db:"plugin_vulnerabilities"`
	ThemeVulnerabilities  int        `json:"theme_vulnerabilities" db:"theme_vulnerabilities"`
}

type UpdateLog struct {
	ID           int64      `json:"id" db:"id"`
	WebsiteID    int64      `json:"website_id" db:"website_id"`
	UpdateType   UpdateType `json:"update_type" db:"update_type"`
	ItemName     *string    `json:"item_name" db:"item_name"`
	FromVersion  *string    `json:"from_version" db:"from_version"`
	ToVersion    *string    `json:"to_version" db:"to_version"`
	UpdateStatus *string    `json:"update_status" db:"update_status"`
	CreatedAt    *time.Time `json:"created_at" db:"created_at"`
}

// WebsiteSync carries the fields a telemetry sync writes back to a website.
type WebsiteSync struct {
	WebsiteID        int64
	ConnectionStatus string
	WPVersion        *string
	LastBackup       *time.Time
	SyncedAt         time.Time
}

// Custom types for JSONB columns

type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	raw, err := asBytes(value)
	if err != nil {
		return err
	}
	// Anything other than a JSON object reads as an empty payload.
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		m = make(map[string]interface{})
	}
	*j = m
	return nil
}

// WebsiteIDSet is the set of websites a report covers. Legacy rows store a
// single number instead of an array; Scan folds both into the same set.
type WebsiteIDSet map[int64]struct{}

func NewWebsiteIDSet(ids ...int64) WebsiteIDSet {
	s := make(WebsiteIDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s WebsiteIDSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Slice returns the ids in ascending order.
func (s WebsiteIDSet) Slice() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s WebsiteIDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *WebsiteIDSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = NewWebsiteIDSet()
		return nil
	}

	if data[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return fmt.Errorf("website_ids: %w", err)
		}
		ids := make([]int64, 0, len(elems))
		for _, elem := range elems {
			id, err := parseWebsiteID(elem)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		*s = NewWebsiteIDSet(ids...)
		return nil
	}

	id, err := parseWebsiteID(data)
	if err != nil {
		return err
	}
	*s = NewWebsiteIDSet(id)
	return nil
}

// parseWebsiteID accepts a JSON number or, as some legacy rows hold, a quoted one.
func parseWebsiteID(data []byte) (int64, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return 0, fmt.Errorf("website_ids: %w", err)
		}
		data = []byte(str)
	}

	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return 0, fmt.Errorf("website_ids: %w", err)
	}
	return id, nil
}

func (s WebsiteIDSet) Value() (driver.Value, error) {
	return s.MarshalJSON()
}

func (s *WebsiteIDSet) Scan(value interface{}) error {
	if value == nil {
		*s = NewWebsiteIDSet()
		return nil
	}
	raw, err := asBytes(value)
	if err != nil {
		return err
	}
	return s.UnmarshalJSON(raw)
}

func asBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported JSON column type %T", value)
	}
}
