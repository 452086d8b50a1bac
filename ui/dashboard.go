package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Camera state tracking
type CameraState struct {
	Frames        uint64
	LastSeq       uint64
	LastTimestamp int64
	Width         int
	Height        int

	// FPS over the last tick window
	FPS            float64
	framesLastTick uint64
}

// Latest sensor readings shown in the sensor block
type SensorState struct {
	IMUTimestamp int64
	Accel        [3]float64
	Gyro         [3]float64

	MagnetoTimestamp int64
	Tesla            [3]float64

	BaroTimestamp int64
	Pressure      float64
}

// tickMsg drives the once-a-second FPS recomputation
type tickMsg time.Time

// DashboardModel is the live stream dashboard
type DashboardModel struct {
	cameras map[string]*CameraState
	sensors SensorState
	spinner spinner.Model

	lastError error
	closed    bool
	quitting  bool

	width  int
	height int

	Version string
}

// NewDashboardModel creates a dashboard for a live subscription
func NewDashboardModel(version string) DashboardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ProcessingStyle

	return DashboardModel{
		cameras: make(map[string]*CameraState),
		spinner: sp,
		Version: version,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(tick(), m.spinner.Tick)
}

// Update implements tea.Model
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case FrameMsg:
		cam, ok := m.cameras[msg.CameraID]
		if !ok {
			cam = &CameraState{}
			m.cameras[msg.CameraID] = cam
		}
		cam.Frames++
		cam.LastSeq = msg.Seq
		cam.LastTimestamp = msg.TimestampNS
		cam.Width = msg.Width
		cam.Height = msg.Height

	case IMUMsg:
		m.sensors.IMUTimestamp = msg.TimestampNS
		m.sensors.Accel = msg.Accel
		m.sensors.Gyro = msg.Gyro

	case MagnetoMsg:
		m.sensors.MagnetoTimestamp = msg.TimestampNS
		m.sensors.Tesla = msg.Tesla

	case BaroMsg:
		m.sensors.BaroTimestamp = msg.TimestampNS
		m.sensors.Pressure = msg.Pressure

	case StreamErrorMsg:
		m.lastError = msg.Err

	case StreamClosedMsg:
		m.closed = true
		return m, tea.Quit

	case tickMsg:
		for _, cam := range m.cameras {
			cam.FPS = float64(cam.Frames - cam.framesLastTick)
			cam.framesLastTick = cam.Frames
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m DashboardModel) View() string {
	if m.quitting {
		return "Unsubscribing...\n"
	}
	if m.closed {
		return "Stream closed.\n"
	}

	header := HeaderStyle.Render(fmt.Sprintf("ariactl subscribe %s", m.Version))

	cameraViews := []string{"Cameras:"}
	if len(m.cameras) == 0 {
		cameraViews = append(cameraViews, fmt.Sprintf("  %s waiting for frames...", m.spinner.View()))
	}
	for _, id := range m.cameraIDs() {
		cam := m.cameras[id]
		cameraViews = append(cameraViews, fmt.Sprintf("  %-18s %6d frames  %5.1f fps  %dx%d  ts %d",
			id, cam.Frames, cam.FPS, cam.Width, cam.Height, cam.LastTimestamp))
	}

	sensorViews := []string{"Sensors:"}
	if m.sensors.IMUTimestamp > 0 {
		sensorViews = append(sensorViews, fmt.Sprintf("  imu     accel [%7.3f %7.3f %7.3f] m/s²  gyro [%7.3f %7.3f %7.3f] rad/s",
			m.sensors.Accel[0], m.sensors.Accel[1], m.sensors.Accel[2],
			m.sensors.Gyro[0], m.sensors.Gyro[1], m.sensors.Gyro[2]))
	}
	if m.sensors.MagnetoTimestamp > 0 {
		sensorViews = append(sensorViews, fmt.Sprintf("  magneto [%.2e %.2e %.2e] T",
			m.sensors.Tesla[0], m.sensors.Tesla[1], m.sensors.Tesla[2]))
	}
	if m.sensors.BaroTimestamp > 0 {
		sensorViews = append(sensorViews, fmt.Sprintf("  baro    %.2f Pa", m.sensors.Pressure))
	}
	if len(sensorViews) == 1 {
		sensorViews = append(sensorViews, "  waiting for samples...")
	}

	sections := []string{
		header,
		strings.Join(cameraViews, "\n"),
		strings.Join(sensorViews, "\n"),
	}

	if m.lastError != nil {
		sections = append(sections, ErrorStyle.Render(fmt.Sprintf("⚠️  %v", m.lastError)))
	}

	sections = append(sections, "Controls: [q] Quit")

	return strings.Join(sections, "\n\n")
}

// cameraIDs returns the camera ids in a stable order for rendering
func (m DashboardModel) cameraIDs() []string {
	ids := make([]string, 0, len(m.cameras))
	for id := range m.cameras {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
