package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wearlab/ariactl/stream"
	"github.com/wearlab/ariactl/types"
	"github.com/wearlab/ariactl/ui"
)

type SubscribeCmd struct {
	IP         string `help:"Device Wi-Fi IP address (empty for USB via adb port forward)"`
	StreamPort int    `help:"Device stream feed port" default:"0"`
	Types      string `help:"Data types to subscribe to" default:"rgb,slam,imu,magneto,baro"`
	QueueSize  int    `help:"Per-type queue depth; when full the oldest record is dropped" default:"1"`
	SaveDir    string `help:"Write received camera frames into this directory" type:"path"`
}

// Run subscribes to a live device stream and shows a dashboard until the
// stream closes or the user quits.
func (cmd *SubscribeCmd) Run(appCtx *types.AppContext) error {
	dataTypes, err := stream.ParseDataTypes(cmd.Types)
	if err != nil {
		return err
	}

	host := cmd.IP
	if host == "" {
		host = appCtx.Config.DeviceIP
	}
	if host == "" {
		// USB path: the adb port forward puts the stream feed on localhost
		host = "127.0.0.1"
	}
	port := cmd.StreamPort
	if port == 0 {
		port = appCtx.Config.StreamPort
	}

	if cmd.SaveDir != "" {
		if err := os.MkdirAll(cmd.SaveDir, 0o755); err != nil {
			return fmt.Errorf("failed to create save directory: %w", err)
		}
	}

	subscriber := stream.NewSubscriber(stream.SubscriptionConfig{
		Host:      host,
		Port:      port,
		DataTypes: dataTypes,
		QueueSize: cmd.QueueSize,
	})

	program := tea.NewProgram(ui.NewDashboardModel(appCtx.Version))
	subscriber.SetObserver(&dashboardObserver{program: program, saveDir: cmd.SaveDir})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subErr := make(chan error, 1)
	go func() {
		err := subscriber.Run(ctx)
		subErr <- err
		program.Send(ui.StreamClosedMsg{})
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	cancel()

	if err := <-subErr; err != nil {
		return err
	}

	fmt.Printf("%s\n", ui.SuccessStyle.Render("✅ Unsubscribed"))
	return nil
}

// dashboardObserver feeds stream records into the dashboard, optionally
// persisting camera frames to disk.
type dashboardObserver struct {
	program *tea.Program
	saveDir string
}

func (o *dashboardObserver) OnImage(rec *stream.ImageRecord) {
	o.program.Send(ui.FrameMsg{
		CameraID:    rec.CameraID,
		Seq:         rec.Seq,
		TimestampNS: rec.TimestampNS,
		Width:       rec.Width,
		Height:      rec.Height,
	})

	if o.saveDir == "" {
		return
	}
	name := fmt.Sprintf("%s_%09d.jpg", rec.CameraID, rec.Seq)
	if err := os.WriteFile(filepath.Join(o.saveDir, name), rec.Data, 0o644); err != nil {
		o.program.Send(ui.StreamErrorMsg{Err: fmt.Errorf("failed to save frame: %w", err)})
	}
}

func (o *dashboardObserver) OnIMU(batch *stream.IMUBatch) {
	if len(batch.Samples) == 0 {
		return
	}
	last := batch.Samples[len(batch.Samples)-1]
	o.program.Send(ui.IMUMsg{
		ImuIdx:      batch.ImuIdx,
		TimestampNS: last.TimestampNS,
		Accel:       last.Accel,
		Gyro:        last.Gyro,
	})
}

func (o *dashboardObserver) OnMagneto(sample *stream.MagnetoSample) {
	o.program.Send(ui.MagnetoMsg{TimestampNS: sample.TimestampNS, Tesla: sample.Tesla})
}

func (o *dashboardObserver) OnBaro(sample *stream.BaroSample) {
	o.program.Send(ui.BaroMsg{TimestampNS: sample.TimestampNS, Pressure: sample.Pressure})
}

func (o *dashboardObserver) OnFailure(err error) {
	o.program.Send(ui.StreamErrorMsg{Err: err})
}
