package vrs

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/corona10/goimagehash"
	"github.com/nfnt/resize"
)

// ExtractOptions holds configuration for frame extraction
type ExtractOptions struct {
	StreamID       string // sensor stream to extract, defaults to the RGB camera
	FirstFrameOnly bool   // keep only the first frame (survey mode)
	DedupThreshold int    // hamming distance for dropping near-duplicate consecutive frames, <0 disables
	ThumbnailEdge  int    // longest edge for generated thumbnails, 0 disables
}

// DefaultExtractOptions returns the extraction defaults: full RGB stream,
// no de-duplication, no thumbnails.
func DefaultExtractOptions() *ExtractOptions {
	return &ExtractOptions{
		StreamID:       RGBStreamID,
		DedupThreshold: -1,
	}
}

// ExtractResult holds the results of a frame extraction operation
type ExtractResult struct {
	RecordingPath string
	OutputDir     string
	FramesWritten int
	FramesDropped int
	WasSkipped    bool
	SkipReason    string
	Error         error
}

// ExtractFrames pulls image frames from a recording into its output
// directory, delegating the container decoding to the external vrs tool.
func ExtractFrames(recordingPath string, options *ExtractOptions) *ExtractResult {
	result := &ExtractResult{
		RecordingPath: recordingPath,
		OutputDir:     ExtractOutputDir(recordingPath),
	}

	if !IsVRSFile(recordingPath) {
		result.WasSkipped = true
		result.SkipReason = "not a VRS recording"
		return result
	}

	if IsExtracted(recordingPath) {
		result.WasSkipped = true
		result.SkipReason = "already extracted"
		return result
	}

	streamID := options.StreamID
	if streamID == "" {
		streamID = RGBStreamID
	}

	// Corruption and missing cameras are reported up front, before the
	// extraction run touches the disk.
	if err := CheckIntegrity(recordingPath); err != nil {
		result.Error = err
		return result
	}

	hasStream, err := HasStream(recordingPath, streamID)
	if err != nil {
		result.Error = err
		return result
	}
	if !hasStream {
		result.WasSkipped = true
		result.SkipReason = fmt.Sprintf("recording has no stream %s", streamID)
		return result
	}

	if err := os.MkdirAll(result.OutputDir, 0o755); err != nil {
		result.Error = fmt.Errorf("failed to create output directory: %w", err)
		return result
	}

	// vrs extract-images writes one image per record of the filtered stream
	cmd := exec.Command("vrs", "extract-images", recordingPath,
		"--to", result.OutputDir,
		"+", streamID,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		result.Error = fmt.Errorf("failed to extract frames: %w\nvrs output: %s", err, firstLine(string(output)))
		return result
	}

	frames, err := listFrames(result.OutputDir)
	if err != nil {
		result.Error = err
		return result
	}

	if len(frames) == 0 {
		// Empty stream is a warning, not an error: the recording may simply
		// not carry the requested camera.
		result.WasSkipped = true
		result.SkipReason = fmt.Sprintf("stream %s produced no frames", streamID)
		return result
	}

	// The vrs tool has no frame-count limit, so survey mode trims afterwards.
	if options.FirstFrameOnly && len(frames) > 1 {
		for _, frame := range frames[1:] {
			if err := os.Remove(frame); err != nil {
				result.Error = fmt.Errorf("failed to trim extracted frames: %w", err)
				return result
			}
		}
		result.FramesDropped += len(frames) - 1
		frames = frames[:1]
	}

	if !options.FirstFrameOnly && options.DedupThreshold >= 0 {
		kept, dropped, err := dedupFrames(frames, options.DedupThreshold)
		if err != nil {
			result.Error = err
			return result
		}
		frames = kept
		result.FramesDropped += dropped
	}

	if options.ThumbnailEdge > 0 {
		if err := generateThumbnails(frames, options.ThumbnailEdge); err != nil {
			result.Error = err
			return result
		}
	}

	result.FramesWritten = len(frames)
	return result
}

// listFrames returns the extracted image files in the directory, sorted by
// name so frame order follows record order.
func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var frames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			frames = append(frames, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(frames)
	return frames, nil
}

// dedupFrames removes consecutive frames whose perceptual hash is within
// threshold of the previous kept frame.
func dedupFrames(frames []string, threshold int) (kept []string, dropped int, err error) {
	var lastHash *goimagehash.ImageHash

	for _, frame := range frames {
		hash, err := frameHash(frame)
		if err != nil {
			return nil, 0, err
		}

		if lastHash != nil {
			distance, err := lastHash.Distance(hash)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to compare frames: %w", err)
			}
			if distance <= threshold {
				if err := os.Remove(frame); err != nil {
					return nil, 0, fmt.Errorf("failed to drop duplicate frame: %w", err)
				}
				dropped++
				continue
			}
		}

		kept = append(kept, frame)
		lastHash = hash
	}

	return kept, dropped, nil
}

// frameHash calculates the perceptual hash of an extracted frame
func frameHash(path string) (*goimagehash.ImageHash, error) {
	img, err := decodeImage(path)
	if err != nil {
		return nil, err
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate perceptual hash: %w", err)
	}

	return hash, nil
}

// generateThumbnails writes a <name>_thumb.jpg next to each frame, resized
// so the longest edge is maxEdge.
func generateThumbnails(frames []string, maxEdge int) error {
	for _, frame := range frames {
		img, err := decodeImage(frame)
		if err != nil {
			return err
		}

		bounds := img.Bounds()
		var thumb image.Image
		if bounds.Dx() >= bounds.Dy() {
			thumb = resize.Resize(uint(maxEdge), 0, img, resize.Lanczos3)
		} else {
			thumb = resize.Resize(0, uint(maxEdge), img, resize.Lanczos3)
		}

		ext := filepath.Ext(frame)
		thumbPath := strings.TrimSuffix(frame, ext) + "_thumb.jpg"
		out, err := os.Create(thumbPath)
		if err != nil {
			return fmt.Errorf("failed to create thumbnail: %w", err)
		}

		if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 85}); err != nil {
			_ = out.Close()
			return fmt.Errorf("failed to encode thumbnail: %w", err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("failed to write thumbnail: %w", err)
		}
	}

	return nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", filepath.Base(path), err)
	}

	return img, nil
}
