// Package wpagent talks to the maintenance agent plugin installed on each
// managed WordPress site.
package wpagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	statusPath = "/wp-json/wpmaint/v1/status"
	keyHeader  = "X-WPM-Key"
)

var ErrUnauthorized = errors.New("agent rejected the api key")

type Component struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Active  bool   `json:"active"`
}

// SiteStatus is the telemetry snapshot reported by the agent.
type SiteStatus struct {
	WPVersion        string      `json:"wp_version"`
	PHPVersion       string      `json:"php_version"`
	Plugins          []Component `json:"plugins"`
	Themes           []Component `json:"themes"`
	UpdatesAvailable int         `json:"updates_available"`
	LastBackup       *time.Time  `json:"last_backup"`
}

type Client struct {
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) FetchStatus(ctx context.Context, siteURL string) (*SiteStatus, error) {
	url := strings.TrimRight(siteURL, "/") + statusPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set(keyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var status SiteStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &status, nil
}
