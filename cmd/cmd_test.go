package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wearlab/ariactl/config"
	"github.com/wearlab/ariactl/device"
	"github.com/wearlab/ariactl/types"
)

func testAppContext() *types.AppContext {
	return &types.AppContext{
		Version: "test",
		Config: &config.Config{
			DeviceIP:    "192.168.1.50",
			ControlPort: 8085,
			StreamPort:  7667,
		},
	}
}

func TestDeviceFlagsClientConfig(t *testing.T) {
	appCtx := testAppContext()

	// flags empty: environment defaults apply
	flags := DeviceFlags{}
	cfg := flags.clientConfig(appCtx)
	if cfg.IPAddress != "192.168.1.50" {
		t.Errorf("Expected environment IP, got '%s'", cfg.IPAddress)
	}
	if cfg.Port != 8085 {
		t.Errorf("Expected environment port, got %d", cfg.Port)
	}

	// flags set: they win
	flags = DeviceFlags{IP: "10.0.0.9", Port: 9000}
	cfg = flags.clientConfig(appCtx)
	if cfg.IPAddress != "10.0.0.9" {
		t.Errorf("Expected flag IP to override, got '%s'", cfg.IPAddress)
	}
	if cfg.Port != 9000 {
		t.Errorf("Expected flag port to override, got %d", cfg.Port)
	}
}

// failingObserver rejects a chosen path and records everything it sees.
type failingObserver struct {
	failPath string
	observed []string
}

func (o *failingObserver) Observe(path string, size int64) error {
	o.observed = append(o.observed, path)
	if path == o.failPath {
		return errors.New("disk I/O error")
	}
	return nil
}

func TestObserveRecordings_ContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"subj01_sess01.vrs", "subj01_sess02.vrs", "subj01_sess03.vrs"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("fake"), 0o644); err != nil {
			t.Fatal(err)
		}
		files = append(files, path)
	}

	obs := &failingObserver{failPath: files[0]}
	observeRecordings(obs, files)

	if len(obs.observed) != len(files) {
		t.Errorf("Expected all %d files observed despite the failure, got %d", len(files), len(obs.observed))
	}
}

func TestTicsyncStartValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     TicsyncStartCmd
		wantErr bool
	}{
		{"explicit topology", TicsyncStartCmd{ServerIP: "10.0.0.1", ClientIPs: []string{"10.0.0.2"}}, false},
		{"usb auto-detect", TicsyncStartCmd{TotalDevices: 3}, false},
		{"usb mixed with ips", TicsyncStartCmd{TotalDevices: 3, ServerIP: "10.0.0.1"}, true},
		{"usb single device", TicsyncStartCmd{TotalDevices: 1}, true},
		{"server without clients", TicsyncStartCmd{ServerIP: "10.0.0.1"}, true},
		{"no flags at all", TicsyncStartCmd{}, true},
	}

	for _, tt := range tests {
		err := tt.cmd.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestUSBTopology(t *testing.T) {
	detected := []device.USBDevice{
		{Serial: "serial-a", Model: "Aria"},
		{Serial: "serial-b", Model: "Aria"},
		{Serial: "serial-c", Model: "Aria"},
	}

	selected, err := usbTopology(detected, 2)
	if err != nil {
		t.Fatalf("usbTopology() failed: %v", err)
	}
	if len(selected) != 2 {
		t.Fatalf("Expected 2 devices, got %d", len(selected))
	}
	if selected[0].Serial != "serial-a" {
		t.Errorf("Expected the first detected device to lead, got %s", selected[0].Serial)
	}

	if _, err := usbTopology(detected[:1], 2); err == nil {
		t.Error("Expected an error when fewer devices are attached than requested")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = '%s', want '%s'", tt.bytes, got, tt.want)
		}
	}
}

func TestOrDash(t *testing.T) {
	if orDash("") != "-" {
		t.Error("Expected '-' for empty state")
	}
	if orDash("processed") != "processed" {
		t.Error("Expected non-empty state to pass through")
	}
}
