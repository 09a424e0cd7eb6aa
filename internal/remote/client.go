// Package remote keeps a player in sync with a management hub: it registers
// the device, reports liveness, and pulls the hub-managed playlist and
// playback settings.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marqueehq/marquee/internal/config"
)

// Settings are the playback knobs an operator can set per player on the hub.
// Empty clock strings mean the hub does not manage that transition.
type Settings struct {
	RotationInterval int    `json:"rotation_interval"`
	OnTime           string `json:"on_time"`
	OffTime          string `json:"off_time"`
}

// Client talks to the hub's device API.
type Client struct {
	baseURL    string
	serial     string
	httpClient *http.Client
}

// NewClient creates a hub client for the device identified by serial.
func NewClient(baseURL, serial string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		serial:  serial,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Serial returns the device identity this client reports.
func (c *Client) Serial() string {
	return c.serial
}

// Register announces the device to the hub. Both 201 (new) and 200 (already
// known) count as success.
func (c *Client) Register(ctx context.Context, name, description string) error {
	payload := map[string]string{
		"name":        name,
		"description": description,
		"serial":      c.serial,
	}
	return c.postJSON(ctx, "/api/v1/register", payload, nil)
}

// Playlist fetches the hub-managed content list in playlist order.
func (c *Client) Playlist(ctx context.Context) ([]config.ContentEntry, error) {
	var entries []config.ContentEntry
	if err := c.getJSON(ctx, "/api/v1/playlist?serial="+url.QueryEscape(c.serial), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Settings fetches the hub-managed playback settings.
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	var settings Settings
	if err := c.getJSON(ctx, "/api/v1/settings?serial="+url.QueryEscape(c.serial), &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Ping reports liveness so the hub can flag offline players.
func (c *Client) Ping(ctx context.Context) error {
	return c.postJSON(ctx, "/api/v1/ping", map[string]string{"serial": c.serial}, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(path, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(path, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func checkStatus(path string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if readErr != nil {
		return fmt.Errorf("request %s failed: %s (read body: %w)", path, resp.Status, readErr)
	}
	if len(body) > 0 {
		return fmt.Errorf("request %s failed: %s (%s)", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("request %s failed: %s", path, resp.Status)
}
