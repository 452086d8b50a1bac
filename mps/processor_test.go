package mps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	return NewProcessor("upenn_test", "hunter2", []string{"EYE_GAZE"}, time.Minute)
}

func createRecording(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake"), 0o644); err != nil {
		t.Fatalf("Failed to create recording: %v", err)
	}
	return path
}

func TestNewProcessor_Defaults(t *testing.T) {
	p := NewProcessor("u", "p", nil, 0)
	if p.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout %s, got %s", DefaultTimeout, p.Timeout)
	}
	if len(p.Features) != 1 || p.Features[0] != "EYE_GAZE" {
		t.Errorf("Expected default feature EYE_GAZE, got %v", p.Features)
	}
}

func TestProcessRecording_NotVRS(t *testing.T) {
	p := newTestProcessor(t)
	result := p.ProcessRecording(context.Background(), "clip.mp4")

	if result.Status != StatusSkipped {
		t.Errorf("Expected skipped status, got %s", result.Status)
	}
	if result.Reason != "not a VRS recording" {
		t.Errorf("Unexpected reason: %s", result.Reason)
	}
}

func TestProcessRecording_AlreadyProcessed(t *testing.T) {
	dir := t.TempDir()
	recording := createRecording(t, dir, "subj35_sess01.vrs")

	featureDir := filepath.Join(dir, "mps_subj35_sess01_vrs", "eye_gaze")
	if err := os.MkdirAll(featureDir, 0o755); err != nil {
		t.Fatalf("Failed to create feature dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(featureDir, "general_eye_gaze.csv"), []byte("ts"), 0o644); err != nil {
		t.Fatalf("Failed to create output: %v", err)
	}

	p := newTestProcessor(t)
	result := p.ProcessRecording(context.Background(), recording)

	if result.Status != StatusSkipped {
		t.Errorf("Expected skipped status, got %s", result.Status)
	}
	if result.Reason != "already processed" {
		t.Errorf("Unexpected reason: %s", result.Reason)
	}
}

func TestProcessRecording_Success(t *testing.T) {
	dir := t.TempDir()
	recording := createRecording(t, dir, "subj35_sess01.vrs")

	p := newTestProcessor(t)
	var gotArgs []string
	p.runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "aria_mps" {
			t.Errorf("Expected aria_mps invocation, got %s", name)
		}
		gotArgs = args
		return []byte("done"), nil
	}

	result := p.ProcessRecording(context.Background(), recording)
	if result.Status != StatusProcessed {
		t.Fatalf("Expected processed status, got %s (%s)", result.Status, result.Reason)
	}

	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"single", "--input " + recording, "--username upenn_test", "--password hunter2", "--features EYE_GAZE"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected args to contain %q, got: %s", want, joined)
		}
	}
}

func TestProcessRecording_Failure(t *testing.T) {
	dir := t.TempDir()
	recording := createRecording(t, dir, "subj35_sess01.vrs")

	p := newTestProcessor(t)
	p.runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("uploading...\nerror: authentication failed\n"), errors.New("exit status 1")
	}

	result := p.ProcessRecording(context.Background(), recording)
	if result.Status != StatusFailed {
		t.Fatalf("Expected failed status, got %s", result.Status)
	}
	if !strings.Contains(result.Reason, "authentication failed") {
		t.Errorf("Expected reason to carry tool output, got: %s", result.Reason)
	}
}

func TestProcessRecording_Timeout(t *testing.T) {
	dir := t.TempDir()
	recording := createRecording(t, dir, "subj35_sess01.vrs")

	p := NewProcessor("u", "p", []string{"EYE_GAZE"}, 10*time.Millisecond)
	p.runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	result := p.ProcessRecording(context.Background(), recording)
	if result.Status != StatusTimedOut {
		t.Fatalf("Expected timed out status, got %s", result.Status)
	}
	if !strings.Contains(result.Reason, "timeout") {
		t.Errorf("Expected timeout reason, got: %s", result.Reason)
	}
}

func TestProcessRecording_Canceled(t *testing.T) {
	dir := t.TempDir()
	recording := createRecording(t, dir, "subj35_sess01.vrs")

	ctx, cancel := context.WithCancel(context.Background())
	p := newTestProcessor(t)
	p.runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}

	result := p.ProcessRecording(ctx, recording)
	if result.Status != StatusFailed {
		t.Fatalf("Expected failed status for canceled run, got %s", result.Status)
	}
	if result.Reason != "canceled" {
		t.Errorf("Unexpected reason: %s", result.Reason)
	}
}

func TestNewToolCommand_KillsProcessGroup(t *testing.T) {
	cmd := newToolCommand(context.Background(), "aria_mps", "single")

	if cmd.SysProcAttr == nil || !cmd.SysProcAttr.Setpgid {
		t.Error("Expected the tool to run in its own process group")
	}
	if cmd.Cancel == nil {
		t.Error("Expected a cancel function that signals the process group")
	}
	if cmd.WaitDelay == 0 {
		t.Error("Expected a wait delay so cancellation cannot hang on inherited pipes")
	}

	// Before the process starts there is no group to signal
	if err := cmd.Cancel(); err == nil {
		t.Error("Expected cancel before start to report the process as done")
	}
}

func TestIsProcessed_MultiFeature(t *testing.T) {
	dir := t.TempDir()
	recording := createRecording(t, dir, "subj11_sess02.vrs")

	p := NewProcessor("u", "p", []string{"EYE_GAZE", "SLAM"}, time.Minute)

	gazeDir := filepath.Join(dir, "mps_subj11_sess02_vrs", "eye_gaze")
	if err := os.MkdirAll(gazeDir, 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(gazeDir, "out.csv"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	// Only one of two features has output
	if p.IsProcessed(recording) {
		t.Error("Expected recording with partial feature output to report unprocessed")
	}

	slamDir := filepath.Join(dir, "mps_subj11_sess02_vrs", "slam")
	if err := os.MkdirAll(slamDir, 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(slamDir, "trajectory.csv"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if !p.IsProcessed(recording) {
		t.Error("Expected recording with all feature output to report processed")
	}
}

func TestSummary(t *testing.T) {
	var s Summary
	s.Add(Result{Status: StatusProcessed})
	s.Add(Result{Status: StatusProcessed})
	s.Add(Result{Status: StatusSkipped})
	s.Add(Result{Status: StatusFailed})
	s.Add(Result{Status: StatusTimedOut})

	if s.Processed != 2 || s.Skipped != 1 || s.Failed != 1 || s.TimedOut != 1 {
		t.Errorf("Unexpected summary counts: %+v", s)
	}

	want := "processed: 2, skipped: 1, failed: 1, timed out: 1"
	if s.String() != want {
		t.Errorf("Summary.String() = %q, want %q", s.String(), want)
	}
}

func TestStderrTail(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"empty output", "", "aria_mps failed with no output"},
		{"single line", "error: bad input", "error: bad input"},
		{"keeps last lines", "a\nb\nc\nd\ne", "c; d; e"},
		{"skips blanks", "a\n\n\nb\n", "a; b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stderrTail(tt.output, 3); got != tt.want {
				t.Errorf("stderrTail() = %q, want %q", got, tt.want)
			}
		})
	}
}
