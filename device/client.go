// Package device talks to Aria glasses. The control plane is a small
// HTTP/JSON API the device companion service exposes on the Wi-Fi address
// (or localhost through an adb port forward); recording files are fetched
// over adb.
package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultControlPort is the port of the device control API.
const DefaultControlPort = 8085

// ClientConfig configures how to reach a device.
type ClientConfig struct {
	// IPAddress of the device on Wi-Fi. Leave empty for a USB connection
	// through an adb port forward on localhost.
	IPAddress string
	// Serial selects a device when several are connected over USB.
	Serial string
	// Port of the control API, DefaultControlPort when zero.
	Port int
	// Timeout for individual control calls.
	Timeout time.Duration
}

// Client connects to a device control API.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	base string
}

// DeviceStatus mirrors the device status endpoint.
type DeviceStatus struct {
	BatteryLevel  int    `json:"battery_level"`
	WifiSSID      string `json:"wifi_ssid"`
	WifiIPAddress string `json:"wifi_ip_address"`
	DeviceMode    string `json:"device_mode"`
}

// DeviceInfo mirrors the device info endpoint.
type DeviceInfo struct {
	Model  string `json:"model"`
	Serial string `json:"serial"`
}

// APIError is a non-2xx response from the control API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("device API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// NewClient creates a Client for the given config.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Port == 0 {
		cfg.Port = DefaultControlPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	host := cfg.IPAddress
	if host == "" {
		// USB path: the adb port forward puts the control API on localhost
		host = "127.0.0.1"
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		base: fmt.Sprintf("http://%s:%d/api/v1", host, cfg.Port),
	}
}

// Connect verifies the device is reachable and returns a handle to it.
func (c *Client) Connect(ctx context.Context) (*Device, error) {
	var info DeviceInfo
	if err := c.get(ctx, "/info", &info); err != nil {
		return nil, fmt.Errorf("failed to connect to device: %w", err)
	}

	return &Device{client: c, Info: info}, nil
}

// Disconnect releases idle connections to the device.
func (c *Client) Disconnect() {
	c.http.CloseIdleConnections()
}

// Device is a connected Aria device.
type Device struct {
	client *Client
	Info   DeviceInfo
}

// Status fetches the current device status.
func (d *Device) Status(ctx context.Context) (*DeviceStatus, error) {
	var status DeviceStatus
	if err := d.client.get(ctx, "/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Recording returns the recording manager for this device.
func (d *Device) Recording() *RecordingManager {
	return &RecordingManager{client: d.client}
}

// Streaming returns the streaming manager for this device.
func (d *Device) Streaming() *StreamingManager {
	return &StreamingManager{client: d.client}
}

// Wifi returns the wifi manager for this device.
func (d *Device) Wifi() *WifiManager {
	return &WifiManager{client: d.client}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode device response: %w", err)
	}
	return nil
}

// errorMessage extracts the server-provided message from an error body.
func errorMessage(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "no error detail"
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return string(bytes.TrimSpace(raw))
}
