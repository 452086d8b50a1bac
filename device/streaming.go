package device

import "context"

// Streaming states reported by the device.
const (
	StreamingStateIdle      = "idle"
	StreamingStateStreaming = "streaming"
)

// Streaming interfaces.
const (
	StreamingInterfaceWifi = "wifi"
	StreamingInterfaceUSB  = "usb"
)

// StreamingConfig is applied before starting a stream.
type StreamingConfig struct {
	ProfileName       string `json:"profile_name"`
	Interface         string `json:"interface"`
	UseEphemeralCerts bool   `json:"use_ephemeral_certs"`
}

// StreamingManager controls live streaming on a device.
type StreamingManager struct {
	client *Client
}

// SetConfig applies the streaming configuration.
func (m *StreamingManager) SetConfig(ctx context.Context, cfg StreamingConfig) error {
	return m.client.post(ctx, "/streaming/config", cfg, nil)
}

// Start begins streaming sensor data.
func (m *StreamingManager) Start(ctx context.Context) error {
	return m.client.post(ctx, "/streaming/start", nil, nil)
}

// Stop ends the current stream.
func (m *StreamingManager) Stop(ctx context.Context) error {
	return m.client.post(ctx, "/streaming/stop", nil, nil)
}

// State returns the current streaming state.
func (m *StreamingManager) State(ctx context.Context) (string, error) {
	var out struct {
		State string `json:"state"`
	}
	if err := m.client.get(ctx, "/streaming/state", &out); err != nil {
		return "", err
	}
	return out.State, nil
}
