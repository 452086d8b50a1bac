package device

import "context"

// Recording states reported by the device.
const (
	RecordingStateIdle      = "idle"
	RecordingStateRecording = "recording"
)

// Time sync modes for multi-device recordings.
const (
	TimeSyncModeOff    = "off"
	TimeSyncModeServer = "ticsync_server"
	TimeSyncModeClient = "ticsync_client"
)

// Sync stability values reported while a ticsync recording converges.
const (
	SyncStabilityStable     = "stable"
	SyncStabilityConverging = "converging"
)

// RecordingConfig is applied before starting a recording.
type RecordingConfig struct {
	ProfileName     string `json:"profile_name"`
	TimeSyncMode    string `json:"time_sync_mode,omitempty"`
	SharedSessionID string `json:"shared_session_id,omitempty"`
}

// RecordingManager controls recording on a device.
type RecordingManager struct {
	client *Client
}

// SetConfig applies the recording configuration.
func (m *RecordingManager) SetConfig(ctx context.Context, cfg RecordingConfig) error {
	return m.client.post(ctx, "/recording/config", cfg, nil)
}

// Start begins recording to device storage.
func (m *RecordingManager) Start(ctx context.Context) error {
	return m.client.post(ctx, "/recording/start", nil, nil)
}

// Stop ends the current recording.
func (m *RecordingManager) Stop(ctx context.Context) error {
	return m.client.post(ctx, "/recording/stop", nil, nil)
}

// State returns the current recording state.
func (m *RecordingManager) State(ctx context.Context) (string, error) {
	var out struct {
		State string `json:"state"`
	}
	if err := m.client.get(ctx, "/recording/state", &out); err != nil {
		return "", err
	}
	return out.State, nil
}

// SyncStability returns the ticsync convergence state of this device.
func (m *RecordingManager) SyncStability(ctx context.Context) (string, error) {
	var out struct {
		SynchronizationStability string `json:"synchronization_stability"`
	}
	if err := m.client.get(ctx, "/recording/ticsync", &out); err != nil {
		return "", err
	}
	return out.SynchronizationStability, nil
}
