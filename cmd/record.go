package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wearlab/ariactl/device"
	"github.com/wearlab/ariactl/types"
	"github.com/wearlab/ariactl/ui"
)

type RecordCmd struct {
	DeviceFlags
	Profile  string        `help:"Recording profile" default:"profile8"`
	Duration time.Duration `help:"Recording duration (0 records until interrupted)" default:"0"`
}

// Run starts a recording on the device, waits for the duration (or an
// interrupt) and stops it again. The recording lands on device storage; pull
// it afterwards with 'ariactl files pull'.
func (cmd *RecordCmd) Run(appCtx *types.AppContext) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("ariactl record %s", appCtx.Version)))

	dev, client, err := cmd.connect(ctx, appCtx)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	recording := dev.Recording()

	if err := recording.SetConfig(ctx, device.RecordingConfig{ProfileName: cmd.Profile}); err != nil {
		return fmt.Errorf("failed to configure recording: %w", err)
	}

	if err := recording.Start(ctx); err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}
	started := time.Now()

	state, err := recording.State(ctx)
	if err != nil {
		return fmt.Errorf("failed to read recording state: %w", err)
	}
	fmt.Printf("%s\n", ui.ProcessingStyle.Render(fmt.Sprintf("🔴 Recording with %s (state: %s)", cmd.Profile, state)))

	if cmd.Duration > 0 {
		fmt.Printf("Recording for %s (Ctrl-C stops early)...\n", cmd.Duration)
		select {
		case <-time.After(cmd.Duration):
		case <-ctx.Done():
			fmt.Println("\nInterrupted, stopping recording")
		}
	} else {
		fmt.Println("Recording until interrupted (Ctrl-C to stop)...")
		<-ctx.Done()
		fmt.Println()
	}

	// The stop call must go through even when the wait context was canceled
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := recording.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop recording: %w", err)
	}

	fmt.Printf("\n%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ Recorded %s on %s", time.Since(started).Round(time.Second), dev.Info.Serial)))
	return nil
}
