package cmd

import (
	"fmt"
	"sync"

	"github.com/wearlab/ariactl/types"
	"github.com/wearlab/ariactl/ui"
	"github.com/wearlab/ariactl/utils"
	"github.com/wearlab/ariactl/vrs"
)

type ExtractCmd struct {
	Paths      []string `arg:"" name:"paths" help:"VRS recordings or directories to scan" type:"path"`
	Stream     string   `help:"Sensor stream to extract" default:"214-1"`
	FirstFrame bool     `help:"Extract only the first frame of each recording"`
	Dedup      int      `help:"Drop consecutive near-duplicate frames within this hamming distance (-1 disables)" default:"-1"`
	Thumbnails int      `help:"Generate thumbnails with this longest edge in pixels (0 disables)" default:"0"`
	Workers    int      `help:"Number of parallel workers" default:"0"`
}

// Run extracts image frames from recordings into per-recording output
// directories, skipping recordings that were already extracted.
func (cmd *ExtractCmd) Run(appCtx *types.AppContext) error {
	if err := utils.ValidateDependencies(utils.ToolVRS); err != nil {
		return err
	}

	files, err := vrs.ExpandPaths(cmd.Paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("%s\n", ui.InfoStyle.Render("No VRS recordings found"))
		return nil
	}

	options := &vrs.ExtractOptions{
		StreamID:       cmd.Stream,
		FirstFrameOnly: cmd.FirstFrame,
		DedupThreshold: cmd.Dedup,
		ThumbnailEdge:  cmd.Thumbnails,
	}

	workers := cmd.Workers
	if workers <= 0 {
		workers = defaultWorkerCount(files)
	}
	if workers > len(files) {
		workers = len(files)
	}

	fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("ariactl extract %s", appCtx.Version)))
	fmt.Println(ui.ProcessingStyle.Render(fmt.Sprintf("Extracting frames from %d recordings with %d workers:", len(files), workers)))

	cat := openCatalog(appCtx)
	if cat != nil {
		defer func() { _ = cat.Close() }()
		observeRecordings(cat, files)
	}

	jobs := make(chan string, len(files))
	results := make(chan *vrs.ExtractResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				results <- vrs.ExtractFrames(file, options)
			}
		}()
	}

	for _, file := range files {
		jobs <- file
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var extracted, skipped, failed int
	for result := range results {
		switch {
		case result.Error != nil:
			failed++
			fmt.Printf("%s\n", ui.ErrorStyle.Render(fmt.Sprintf("❌ %s: %v", result.RecordingPath, result.Error)))
		case result.WasSkipped:
			skipped++
			fmt.Printf("⏭️  %s: %s\n", result.RecordingPath, result.SkipReason)
		default:
			extracted++
			line := fmt.Sprintf("✅ %s → %s (%d frames", result.RecordingPath, result.OutputDir, result.FramesWritten)
			if result.FramesDropped > 0 {
				line += fmt.Sprintf(", %d dropped", result.FramesDropped)
			}
			line += ")"
			fmt.Printf("%s\n", ui.SuccessStyle.Render(line))
			if cat != nil {
				if err := cat.SetExtractState(result.RecordingPath, "extracted"); err != nil {
					fmt.Printf("⚠️  catalog update failed for %s: %v\n", result.RecordingPath, err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", ui.InfoStyle.Render(fmt.Sprintf("✅ Extracted: %d, ⏭️ Skipped: %d, ❌ Failed: %d", extracted, skipped, failed)))

	if failed > 0 {
		return fmt.Errorf("%d recording(s) failed to extract", failed)
	}
	return nil
}
