package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wearlab/ariactl/device"
	"github.com/wearlab/ariactl/ticsync"
	"github.com/wearlab/ariactl/types"
	"github.com/wearlab/ariactl/ui"
	"github.com/wearlab/ariactl/utils"
)

type TicsyncCmd struct {
	Start   TicsyncStartCmd   `cmd:"" help:"Start a time-synchronized recording across devices"`
	Cleanup TicsyncCleanupCmd `cmd:"" help:"Reset devices after a ticsync session"`
	Verify  TicsyncVerifyCmd  `cmd:"" help:"Verify sync quality from exported IMU CSVs"`
}

// connectDevices dials one device per IP.
func connectDevices(ctx context.Context, appCtx *types.AppContext, ips []string) ([]*device.Device, []*device.Client, error) {
	var devices []*device.Device
	var clients []*device.Client

	for _, ip := range ips {
		flags := DeviceFlags{IP: ip}
		dev, client, err := flags.connect(ctx, appCtx)
		if err != nil {
			for _, c := range clients {
				c.Disconnect()
			}
			return nil, nil, fmt.Errorf("device %s: %w", ip, err)
		}
		devices = append(devices, dev)
		clients = append(clients, client)
	}

	return devices, clients, nil
}

type TicsyncStartCmd struct {
	ServerIP     string   `help:"IP address of the device acting as ticsync server"`
	ClientIPs    []string `name:"client-ips" help:"IP addresses of the client devices"`
	TotalDevices int      `help:"Auto-detect this many devices over USB instead of using IPs"`
	Profile      string   `help:"Recording profile applied to every device" default:"profile12"`
}

// Validate checks the flag combination: either an explicit server/client
// topology over Wi-Fi, or USB auto-detection with --total-devices.
func (cmd *TicsyncStartCmd) Validate() error {
	usb := cmd.TotalDevices > 0
	manual := cmd.ServerIP != "" || len(cmd.ClientIPs) > 0

	switch {
	case usb && manual:
		return fmt.Errorf("--total-devices cannot be combined with --server-ip/--client-ips")
	case usb && cmd.TotalDevices < 2:
		return fmt.Errorf("a ticsync session needs at least 2 devices, got --total-devices=%d", cmd.TotalDevices)
	case !usb && (cmd.ServerIP == "" || len(cmd.ClientIPs) == 0):
		return fmt.Errorf("provide --server-ip and --client-ips, or --total-devices for USB auto-detection")
	}
	return nil
}

// ticsyncForwardBase is the first local port used for adb port forwards when
// devices are auto-detected over USB.
const ticsyncForwardBase = 8600

// usbTopology picks the session devices from the adb listing. The first
// detected device becomes the ticsync server.
func usbTopology(detected []device.USBDevice, total int) ([]device.USBDevice, error) {
	if len(detected) < total {
		return nil, fmt.Errorf("found %d USB device(s), need %d", len(detected), total)
	}
	return detected[:total], nil
}

// connectUSB detects devices over adb, forwards each control API to a local
// port and dials them through the forwards.
func (cmd *TicsyncStartCmd) connectUSB(ctx context.Context, appCtx *types.AppContext) ([]*device.Device, []*device.Client, error) {
	if err := utils.ValidateDependencies(utils.ToolADB); err != nil {
		return nil, nil, err
	}

	adb := device.NewADB()
	detected, err := adb.ListDevices()
	if err != nil {
		return nil, nil, err
	}

	selected, err := usbTopology(detected, cmd.TotalDevices)
	if err != nil {
		return nil, nil, err
	}

	var devices []*device.Device
	var clients []*device.Client
	for i, usb := range selected {
		localPort := ticsyncForwardBase + i
		if err := adb.Forward(usb.Serial, localPort, appCtx.Config.ControlPort); err != nil {
			for _, c := range clients {
				c.Disconnect()
			}
			return nil, nil, err
		}

		flags := DeviceFlags{IP: "127.0.0.1", Port: localPort}
		dev, client, err := flags.connect(ctx, appCtx)
		if err != nil {
			for _, c := range clients {
				c.Disconnect()
			}
			return nil, nil, fmt.Errorf("device %s: %w", usb.Serial, err)
		}
		devices = append(devices, dev)
		clients = append(clients, client)
	}

	return devices, clients, nil
}

// Run starts a synchronized recording: the server device first, then the
// clients, and waits until every client reports stable sync. The recordings
// keep running; stop them with 'ariactl ticsync cleanup'.
func (cmd *TicsyncStartCmd) Run(appCtx *types.AppContext) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("ariactl ticsync start %s", appCtx.Version)))

	var devices []*device.Device
	var clients []*device.Client
	var err error
	if cmd.TotalDevices > 0 {
		devices, clients, err = cmd.connectUSB(ctx, appCtx)
	} else {
		devices, clients, err = connectDevices(ctx, appCtx, append([]string{cmd.ServerIP}, cmd.ClientIPs...))
	}
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range clients {
			c.Disconnect()
		}
	}()

	coordinator := &ticsync.Coordinator{
		Profile: cmd.Profile,
		Logf: func(format string, args ...any) {
			fmt.Printf("%s\n", ui.ProcessingStyle.Render(fmt.Sprintf(format, args...)))
		},
	}

	sessionID, err := coordinator.Start(ctx, devices[0], devices[1:])
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ All devices recording in sync, shared session %s", sessionID)))
	fmt.Println("Stop the session with: ariactl ticsync cleanup")
	return nil
}

type TicsyncCleanupCmd struct {
	IPs []string `name:"ips" required:"" help:"IP addresses of all devices in the session"`
}

// Run stops leftover recordings and resets Wi-Fi state on every device.
func (cmd *TicsyncCleanupCmd) Run(appCtx *types.AppContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	devices, clients, err := connectDevices(ctx, appCtx, cmd.IPs)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range clients {
			c.Disconnect()
		}
	}()

	coordinator := &ticsync.Coordinator{
		Logf: func(format string, args ...any) {
			fmt.Printf("%s\n", ui.InfoStyle.Render(fmt.Sprintf(format, args...)))
		},
	}

	if err := coordinator.Cleanup(ctx, devices); err != nil {
		return err
	}

	fmt.Printf("%s\n", ui.SuccessStyle.Render("✅ Devices reset"))
	return nil
}

type TicsyncVerifyCmd struct {
	Server  string   `required:"" help:"IMU CSV exported from the server recording" type:"existingfile"`
	Clients []string `arg:"" name:"clients" help:"IMU CSVs exported from client recordings" type:"existingfile"`
	Merged  string   `help:"Write all samples into one merged CSV" type:"path"`
}

// Run scores each client's IMU timestamps against the server timeline and
// reports a stable/unstable verdict per client.
func (cmd *TicsyncVerifyCmd) Run(appCtx *types.AppContext) error {
	server, err := ticsync.LoadSamples(cmd.Server)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", ui.InfoStyle.Render(fmt.Sprintf("Server timeline: %d samples from %s", len(server), cmd.Server)))

	allSamples := [][]ticsync.Sample{server}
	var unstable int

	for _, path := range cmd.Clients {
		client, err := ticsync.LoadSamples(path)
		if err != nil {
			return err
		}
		allSamples = append(allSamples, client)

		report, err := ticsync.Verify(server, client)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if report.Stable {
			fmt.Printf("%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ %s", report)))
		} else {
			unstable++
			fmt.Printf("%s\n", ui.ErrorStyle.Render(fmt.Sprintf("❌ %s", report)))
		}
	}

	if cmd.Merged != "" {
		if err := ticsync.ExportMerged(cmd.Merged, allSamples...); err != nil {
			return err
		}
		fmt.Printf("%s\n", ui.InfoStyle.Render(fmt.Sprintf("Merged samples written to %s", cmd.Merged)))
	}

	if unstable > 0 {
		return fmt.Errorf("%d client(s) outside the %s sync threshold", unstable, time.Duration(ticsync.StabilityThresholdNS))
	}
	return nil
}
