package vrs

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// sessionNameRegex matches the subjNN_sessMM recording naming convention.
var sessionNameRegex = regexp.MustCompile(`^subj(\d+)_sess(\d+)$`)

// IsVRSFile checks if the given path has the VRS recording extension
func IsVRSFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".vrs")
}

// ParseSession extracts the subject/session numbers from a recording
// filename. Returns false for recordings outside the naming convention.
func ParseSession(path string) (Session, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m := sessionNameRegex.FindStringSubmatch(stem)
	if m == nil {
		return Session{}, false
	}

	subject, err := strconv.Atoi(m[1])
	if err != nil {
		return Session{}, false
	}
	number, err := strconv.Atoi(m[2])
	if err != nil {
		return Session{}, false
	}

	return Session{Subject: subject, Number: number}, true
}

// MPSOutputDir returns the directory the MPS pipeline writes results to for
// the given recording: mps_<stem>_vrs next to the file.
func MPSOutputDir(recordingPath string) string {
	stem := strings.TrimSuffix(filepath.Base(recordingPath), filepath.Ext(recordingPath))
	return filepath.Join(filepath.Dir(recordingPath), fmt.Sprintf("mps_%s_vrs", stem))
}

// ExtractOutputDir returns the directory extracted frames are written to:
// <stem>_extracted next to the recording.
func ExtractOutputDir(recordingPath string) string {
	stem := strings.TrimSuffix(filepath.Base(recordingPath), filepath.Ext(recordingPath))
	return filepath.Join(filepath.Dir(recordingPath), stem+"_extracted")
}

// IsMPSProcessed checks whether the MPS pipeline already produced output for
// the recording and feature (a non-empty mps_<stem>_vrs/<feature>/ directory).
func IsMPSProcessed(recordingPath, feature string) bool {
	pattern := filepath.Join(MPSOutputDir(recordingPath), strings.ToLower(feature), "*")
	matches, err := filepath.Glob(pattern)
	return err == nil && len(matches) > 0
}

// IsExtracted checks whether frames were already extracted for the recording.
func IsExtracted(recordingPath string) bool {
	pattern := filepath.Join(ExtractOutputDir(recordingPath), "*")
	matches, err := filepath.Glob(pattern)
	return err == nil && len(matches) > 0
}

// CheckIntegrity validates the recording container with the vrs tool.
// Returns an error carrying the tool's first diagnostic line if the file is
// corrupted or unreadable.
func CheckIntegrity(recordingPath string) error {
	if _, err := os.Stat(recordingPath); err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}

	cmd := exec.Command("vrs", "check", recordingPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		outputStr := string(output)
		if strings.Contains(outputStr, "truncated") || strings.Contains(outputStr, "corrupt") {
			return fmt.Errorf("recording is corrupted: %s", firstLine(outputStr))
		}
		return fmt.Errorf("vrs check failed: %w\nOutput: %s", err, firstLine(outputStr))
	}

	return nil
}

// firstLine extracts just the first non-empty line from a multi-line string
func firstLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		return strings.TrimSpace(lines[0])
	}
	return "no additional information available"
}
