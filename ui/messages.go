package ui

// TUI message types fed from the stream subscriber
type FrameMsg struct {
	CameraID    string
	Seq         uint64
	TimestampNS int64
	Width       int
	Height      int
}

type IMUMsg struct {
	ImuIdx      int
	TimestampNS int64
	Accel       [3]float64
	Gyro        [3]float64
}

type MagnetoMsg struct {
	TimestampNS int64
	Tesla       [3]float64
}

type BaroMsg struct {
	TimestampNS int64
	Pressure    float64
}

type StreamErrorMsg struct {
	Err error
}

// StreamClosedMsg ends the dashboard when the subscription terminates.
type StreamClosedMsg struct{}
