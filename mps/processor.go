// Package mps submits VRS recordings to the Machine Perception Services
// pipeline through the external aria_mps tool. The tool owns upload,
// cloud-side processing and result download; this package owns batching,
// skip detection and timeouts around it.
package mps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/wearlab/ariactl/vrs"
)

// Status describes the outcome of processing one recording.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// DefaultTimeout bounds a single aria_mps run. Cloud processing of a long
// session can legitimately take hours.
const DefaultTimeout = 2 * time.Hour

// Processor runs the MPS pipeline over recordings.
type Processor struct {
	Username string
	Password string
	Features []string // MPS feature names, e.g. EYE_GAZE, SLAM, HAND_TRACKING
	Timeout  time.Duration

	// runCommand is swapped out in tests
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Result holds the outcome of processing a single recording
type Result struct {
	RecordingPath string
	Status        Status
	Reason        string
	Duration      time.Duration
}

// NewProcessor creates a Processor with the given credentials and features.
func NewProcessor(username, password string, features []string, timeout time.Duration) *Processor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if len(features) == 0 {
		features = []string{"EYE_GAZE"}
	}

	return &Processor{
		Username: username,
		Password: password,
		Features: features,
		Timeout:  timeout,
		runCommand: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return newToolCommand(ctx, name, args...).CombinedOutput()
		},
	}
}

// newToolCommand builds a command whose cancellation kills the whole process
// group, not just the direct child. aria_mps spawns worker processes that
// must not outlive the timeout.
func newToolCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return os.ErrProcessDone
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 10 * time.Second
	return cmd
}

// IsProcessed reports whether all requested features already have MPS output
// for the recording.
func (p *Processor) IsProcessed(recordingPath string) bool {
	for _, feature := range p.Features {
		if !vrs.IsMPSProcessed(recordingPath, feature) {
			return false
		}
	}
	return true
}

// ProcessRecording submits one recording to aria_mps and waits for it to
// finish, bounded by the processor timeout.
func (p *Processor) ProcessRecording(ctx context.Context, recordingPath string) Result {
	result := Result{RecordingPath: recordingPath}

	if !vrs.IsVRSFile(recordingPath) {
		result.Status = StatusSkipped
		result.Reason = "not a VRS recording"
		return result
	}

	if p.IsProcessed(recordingPath) {
		result.Status = StatusSkipped
		result.Reason = "already processed"
		return result
	}

	args := []string{
		"single",
		"--input", recordingPath,
		"--username", p.Username,
		"--password", p.Password,
		"--features",
	}
	args = append(args, p.Features...)

	runCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	start := time.Now()
	output, err := p.runCommand(runCtx, "aria_mps", args...)
	result.Duration = time.Since(start)

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		result.Status = StatusTimedOut
		result.Reason = fmt.Sprintf("exceeded %s timeout", p.Timeout)
	case ctx.Err() == context.Canceled:
		result.Status = StatusFailed
		result.Reason = "canceled"
	case err != nil:
		result.Status = StatusFailed
		result.Reason = stderrTail(string(output), 3)
	default:
		result.Status = StatusProcessed
	}

	return result
}

// Summary aggregates per-recording results for the final report line.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
	TimedOut  int
}

// Add counts a result into the summary.
func (s *Summary) Add(r Result) {
	switch r.Status {
	case StatusProcessed:
		s.Processed++
	case StatusSkipped:
		s.Skipped++
	case StatusTimedOut:
		s.TimedOut++
	default:
		s.Failed++
	}
}

// String renders the summary for the end-of-run report.
func (s *Summary) String() string {
	return fmt.Sprintf("processed: %d, skipped: %d, failed: %d, timed out: %d",
		s.Processed, s.Skipped, s.Failed, s.TimedOut)
}

// stderrTail returns the last n non-empty lines of tool output, which is
// where aria_mps puts its actual failure reason.
func stderrTail(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	var kept []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, strings.TrimSpace(line))
		}
	}

	if len(kept) == 0 {
		return "aria_mps failed with no output"
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "; ")
}
