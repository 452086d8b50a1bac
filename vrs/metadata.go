package vrs

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

// streamLineRegex matches stream listing lines from the vrs tool, e.g.
// "214-1: RGB Camera Class #1 - device/aria".
var streamLineRegex = regexp.MustCompile(`^\s*(\d+-\d+):\s*(.+)$`)

// ListStreams returns the sensor streams contained in a recording, using the
// vrs tool's stream listing.
func ListStreams(recordingPath string) ([]StreamInfo, error) {
	cmd := exec.Command("vrs", "list", recordingPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to list streams: %w\nvrs output: %s", err, firstLine(string(output)))
	}

	var streams []StreamInfo
	for _, line := range strings.Split(string(output), "\n") {
		if m := streamLineRegex.FindStringSubmatch(line); m != nil {
			streams = append(streams, StreamInfo{ID: m[1], Label: strings.TrimSpace(m[2])})
		}
	}

	if len(streams) == 0 {
		return nil, fmt.Errorf("no streams found in %s", recordingPath)
	}

	return streams, nil
}

// HasStream checks whether the recording contains the given sensor stream.
func HasStream(recordingPath, streamID string) (bool, error) {
	streams, err := ListStreams(recordingPath)
	if err != nil {
		return false, err
	}

	for _, s := range streams {
		if s.ID == streamID {
			return true, nil
		}
	}
	return false, nil
}

// GetFileSize returns the size of a file in bytes
func GetFileSize(filePath string) (int64, error) {
	fi, err := os.Stat(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to get file size: %w", err)
	}
	return fi.Size(), nil
}
