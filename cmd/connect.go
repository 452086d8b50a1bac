package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/wearlab/ariactl/device"
	"github.com/wearlab/ariactl/types"
	"github.com/wearlab/ariactl/ui"
)

// DeviceFlags are the connection flags shared by device commands. Flags
// override the ARIA_DEVICE_IP / ARIA_CONTROL_PORT environment defaults.
type DeviceFlags struct {
	IP   string `help:"Device Wi-Fi IP address (empty for USB via adb port forward)"`
	Port int    `help:"Device control API port" default:"0"`
}

// clientConfig builds a device client config from flags and environment.
func (f *DeviceFlags) clientConfig(appCtx *types.AppContext) device.ClientConfig {
	cfg := device.ClientConfig{IPAddress: f.IP, Port: f.Port}
	if cfg.IPAddress == "" {
		cfg.IPAddress = appCtx.Config.DeviceIP
	}
	if cfg.Port == 0 {
		cfg.Port = appCtx.Config.ControlPort
	}
	return cfg
}

// connect dials the device and returns a handle, with a consistent status
// line on success.
func (f *DeviceFlags) connect(ctx context.Context, appCtx *types.AppContext) (*device.Device, *device.Client, error) {
	client := device.NewClient(f.clientConfig(appCtx))

	dev, err := client.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}

	fmt.Printf("%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ Connected to %s (%s)", dev.Info.Model, dev.Info.Serial)))
	return dev, client, nil
}

type ConnectCmd struct {
	DeviceFlags
}

// Run connects to a device and prints its identity and status.
func (cmd *ConnectCmd) Run(appCtx *types.AppContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("ariactl connect %s", appCtx.Version)))

	dev, client, err := cmd.connect(ctx, appCtx)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	status, err := dev.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read device status: %w", err)
	}

	fmt.Printf("  Battery: %d%%\n", status.BatteryLevel)
	fmt.Printf("  Mode:    %s\n", status.DeviceMode)
	if status.WifiSSID != "" {
		fmt.Printf("  Wi-Fi:   %s (%s)\n", status.WifiSSID, status.WifiIPAddress)
	} else {
		fmt.Printf("  Wi-Fi:   not connected\n")
	}

	return nil
}
