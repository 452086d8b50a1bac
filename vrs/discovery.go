package vrs

import (
	"os"
	"path/filepath"
	"sort"
)

// FindRecordingsRecursively scans a directory tree for VRS recordings,
// returned in path order for stable processing.
func FindRecordingsRecursively(directory string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(directory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if IsVRSFile(path) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// ExpandPaths resolves a mix of files and directories into a flat list of
// recordings. Directories are scanned recursively, explicit files are kept
// as given (even without the .vrs extension the caller gets to decide).
func ExpandPaths(paths []string) ([]string, error) {
	var files []string

	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if fi.IsDir() {
			found, err := FindRecordingsRecursively(path)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}

		files = append(files, path)
	}

	return files, nil
}

// FilterPending splits recordings into those still needing work and those
// already done, using the given skip check.
func FilterPending(files []string, isDone func(string) bool) (pending, skipped []string) {
	for _, file := range files {
		if isDone(file) {
			skipped = append(skipped, file)
		} else {
			pending = append(pending, file)
		}
	}
	return pending, skipped
}
