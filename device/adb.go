package device

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
)

// recordingDir is where Aria devices store recordings.
const recordingDir = "/sdcard/recording"

// ADB wraps the adb tool for recording file access on USB-connected devices.
type ADB struct {
	// runCommand is swapped out in tests
	runCommand func(args ...string) (string, error)
}

// NewADB creates an adb wrapper using the adb binary in PATH.
func NewADB() *ADB {
	return &ADB{
		runCommand: func(args ...string) (string, error) {
			output, err := exec.Command("adb", args...).CombinedOutput()
			return string(output), err
		},
	}
}

// USBDevice is an Aria device visible to adb.
type USBDevice struct {
	Serial string
	Model  string
}

// Ticsync roles as the device writes them into the recording sidecar. These
// are not the time sync modes of the recording config; the device maps
// ticsync_server/ticsync_client to the bare role names when it writes the
// metadata file.
const (
	TicsyncRoleServer = "server"
	TicsyncRoleClient = "client"
)

// RecordingMeta is the sidecar metadata the device writes next to each
// recording (<uuid>.vrs.json).
type RecordingMeta struct {
	SharedSessionID string `json:"shared_session_id"`
	TicsyncMode     string `json:"ticsync_mode"`
	EndTime         string `json:"end_time"` // unix seconds as a string
}

// DeviceRecording is one recording found on a device.
type DeviceRecording struct {
	Serial string
	UUID   string
	Meta   RecordingMeta
}

// EndedAt parses the recording's end time. Zero time when absent.
func (r DeviceRecording) EndedAt() time.Time {
	secs, err := strconv.ParseInt(r.Meta.EndTime, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

// ListDevices returns the Aria devices currently connected over USB.
func (a *ADB) ListDevices() ([]USBDevice, error) {
	output, err := a.runCommand("devices", "-l")
	if err != nil {
		return nil, fmt.Errorf("adb devices failed: %w", err)
	}

	var devices []USBDevice
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "model:Aria") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		dev := USBDevice{Serial: fields[0]}
		for _, field := range fields {
			if model, ok := strings.CutPrefix(field, "model:"); ok {
				dev.Model = model
			}
		}
		devices = append(devices, dev)
	}

	return devices, nil
}

// Forward maps a local TCP port to a port on the device, so the control API
// of a USB-connected device is reachable on 127.0.0.1.
func (a *ADB) Forward(serial string, localPort, devicePort int) error {
	_, err := a.runCommand("-s", serial, "forward",
		fmt.Sprintf("tcp:%d", localPort), fmt.Sprintf("tcp:%d", devicePort))
	if err != nil {
		return fmt.Errorf("failed to forward port %d to %s: %w", localPort, serial, err)
	}
	return nil
}

// ListRecordings returns the recordings stored on a device, with their
// sidecar metadata when present.
func (a *ADB) ListRecordings(serial string) ([]DeviceRecording, error) {
	output, err := a.runCommand("-s", serial, "shell", "ls", recordingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings on %s: %w", serial, err)
	}

	var recordings []DeviceRecording
	for _, name := range strings.Split(output, "\n") {
		name = strings.TrimSpace(name)
		if !strings.HasSuffix(name, ".vrs.json") {
			continue
		}

		uuid := strings.TrimSuffix(filepath.Base(name), ".vrs.json")
		rec := DeviceRecording{Serial: serial, UUID: uuid}

		metaJSON, err := a.runCommand("-s", serial, "shell", "cat", recordingDir+"/"+uuid+".vrs.json")
		if err == nil {
			// metadata is best-effort; a recording without it still lists
			_ = json.Unmarshal([]byte(metaJSON), &rec.Meta)
		}

		recordings = append(recordings, rec)
	}

	return recordings, nil
}

// remoteSize returns the size of a recording file on the device.
func (a *ADB) remoteSize(serial, uuid string) (int64, error) {
	output, err := a.runCommand("-s", serial, "shell", "stat", "-c", "%s", recordingDir+"/"+uuid+".vrs")
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(output), 10, 64)
}

// Pull downloads a recording to outputDir, rendering a progress bar while
// adb transfers the file.
func (a *ADB) Pull(serial, uuid, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	localPath := filepath.Join(outputDir, uuid+".vrs")

	total, sizeErr := a.remoteSize(serial, uuid)
	done := make(chan struct{})
	if sizeErr == nil && total > 0 {
		bar := progressbar.DefaultBytes(total, fmt.Sprintf("pulling %s", uuid))
		go func() {
			ticker := time.NewTicker(200 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					_ = bar.Finish()
					return
				case <-ticker.C:
					if fi, err := os.Stat(localPath); err == nil {
						_ = bar.Set64(fi.Size())
					}
				}
			}
		}()
	}

	output, err := a.runCommand("-s", serial, "pull", recordingDir+"/"+uuid+".vrs", localPath)
	close(done)
	if err != nil {
		return "", fmt.Errorf("failed to pull %s from %s: %w\nadb output: %s",
			uuid, serial, err, strings.TrimSpace(output))
	}

	return localPath, nil
}
