package utils

import (
	"path/filepath"
	"strings"
)

// IsNetworkDrive detects if a file path is on a network-mounted drive.
// Recordings are large, so commands drop to a single worker when the input
// lives on a network share.
func IsNetworkDrive(filePath string) bool {
	// Windows UNC paths, checked before converting to an absolute path
	if strings.HasPrefix(filePath, "//") || strings.HasPrefix(filePath, "\\\\") {
		return true
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return false
	}

	// Common network mount prefixes on different platforms
	networkPrefixes := []string{
		"/mnt/",     // Linux NFS/SMB mounts
		"/media/",   // Linux removable/network media
		"/Volumes/", // macOS network volumes
	}

	for _, prefix := range networkPrefixes {
		if strings.HasPrefix(absPath, prefix) {
			return true
		}
	}

	// Filesystem type hints embedded in the mount path
	lowerPath := strings.ToLower(absPath)
	for _, indicator := range []string{"nfs", "cifs", "smb", "webdav", "sshfs"} {
		if strings.Contains(lowerPath, indicator) {
			return true
		}
	}

	return false
}
