package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/wearlab/ariactl/device"
	"github.com/wearlab/ariactl/types"
	"github.com/wearlab/ariactl/ui"
)

type StreamCmd struct {
	Start StreamStartCmd `cmd:"" help:"Start streaming sensor data from a device"`
	Stop  StreamStopCmd  `cmd:"" help:"Stop streaming on a device"`
}

type StreamStartCmd struct {
	DeviceFlags
	Profile   string `help:"Streaming profile" default:"profile18"`
	Interface string `help:"Streaming interface" enum:"usb,wifi" default:"usb"`
}

// Run configures and starts streaming on the device. Subscribe to the stream
// with 'ariactl subscribe'.
func (cmd *StreamStartCmd) Run(appCtx *types.AppContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dev, client, err := cmd.connect(ctx, appCtx)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	streaming := dev.Streaming()

	cfg := device.StreamingConfig{
		ProfileName:       cmd.Profile,
		Interface:         cmd.Interface,
		UseEphemeralCerts: true,
	}
	if err := streaming.SetConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to configure streaming: %w", err)
	}

	if err := streaming.Start(ctx); err != nil {
		return fmt.Errorf("failed to start streaming: %w", err)
	}

	state, err := streaming.State(ctx)
	if err != nil {
		return fmt.Errorf("failed to read streaming state: %w", err)
	}

	fmt.Printf("%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ Streaming %s over %s (state: %s)", cmd.Profile, cmd.Interface, state)))
	return nil
}

type StreamStopCmd struct {
	DeviceFlags
}

// Run stops streaming on the device.
func (cmd *StreamStopCmd) Run(appCtx *types.AppContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dev, client, err := cmd.connect(ctx, appCtx)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	if err := dev.Streaming().Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop streaming: %w", err)
	}

	fmt.Printf("%s\n", ui.SuccessStyle.Render("✅ Streaming stopped"))
	return nil
}
