package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/wearlab/ariactl/catalog"
	"github.com/wearlab/ariactl/mps"
	"github.com/wearlab/ariactl/types"
	"github.com/wearlab/ariactl/ui"
	"github.com/wearlab/ariactl/utils"
	"github.com/wearlab/ariactl/vrs"
)

type MPSCmd struct {
	Paths    []string      `arg:"" name:"paths" help:"VRS recordings or directories to scan" type:"path"`
	Features []string      `help:"MPS features to request" default:"EYE_GAZE"`
	Workers  int           `help:"Number of parallel workers" default:"0"`
	Timeout  time.Duration `help:"Per-recording processing timeout" default:"2h"`
}

// Run submits pending recordings to the MPS pipeline with a worker pool,
// skipping anything that already has output for all requested features.
func (cmd *MPSCmd) Run(appCtx *types.AppContext) error {
	if err := utils.ValidateDependencies(utils.ToolAriaMPS); err != nil {
		return err
	}
	if !appCtx.Config.HasMPSCredentials() {
		return fmt.Errorf("MPS credentials missing: set ARIA_MPS_USERNAME and ARIA_MPS_PASSWORD")
	}

	files, err := vrs.ExpandPaths(cmd.Paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("%s\n", ui.InfoStyle.Render("No VRS recordings found"))
		return nil
	}

	processor := mps.NewProcessor(appCtx.Config.MPSUsername, appCtx.Config.MPSPassword, cmd.Features, cmd.Timeout)

	pending, skipped := vrs.FilterPending(files, processor.IsProcessed)
	for _, file := range skipped {
		fmt.Printf("⏭️  %s already processed\n", file)
	}

	var summary mps.Summary
	summary.Skipped = len(skipped)

	if len(pending) == 0 {
		fmt.Printf("\n%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ Nothing to do (%s)", summary.String())))
		return nil
	}

	cat := openCatalog(appCtx)
	if cat != nil {
		defer func() { _ = cat.Close() }()
		observeRecordings(cat, files)
	}

	workers := cmd.Workers
	if workers <= 0 {
		workers = defaultWorkerCount(pending)
	}

	fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("ariactl mps %s", appCtx.Version)))
	fmt.Println(ui.ProcessingStyle.Render(fmt.Sprintf("Processing %d recordings with %d workers:", len(pending), workers)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs := make(chan string, len(pending))
	results := make(chan mps.Result, len(pending))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for file := range jobs {
				fmt.Printf("Worker %d: Processing %s\n", workerID+1, file)
				results <- processor.ProcessRecording(ctx, file)
			}
		}(i)
	}

	for _, file := range pending {
		jobs <- file
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for result := range results {
		summary.Add(result)
		reportResult(result)
		if cat != nil && result.Status != mps.StatusSkipped {
			if err := cat.SetMPSState(result.RecordingPath, string(result.Status)); err != nil {
				fmt.Printf("⚠️  catalog update failed for %s: %v\n", result.RecordingPath, err)
			}
		}
	}

	fmt.Printf("\n%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ Done (%s)", summary.String())))

	if summary.Failed > 0 || summary.TimedOut > 0 {
		return fmt.Errorf("%d recording(s) did not process", summary.Failed+summary.TimedOut)
	}
	return nil
}

// reportResult prints one per-recording outcome line.
func reportResult(result mps.Result) {
	switch result.Status {
	case mps.StatusProcessed:
		fmt.Printf("%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ %s (%s)", result.RecordingPath, result.Duration.Round(time.Second))))
	case mps.StatusSkipped:
		fmt.Printf("⏭️  %s: %s\n", result.RecordingPath, result.Reason)
	case mps.StatusTimedOut:
		fmt.Printf("%s\n", ui.ErrorStyle.Render(fmt.Sprintf("⏱️  %s: %s", result.RecordingPath, result.Reason)))
	default:
		fmt.Printf("%s\n", ui.ErrorStyle.Render(fmt.Sprintf("❌ %s: %s", result.RecordingPath, result.Reason)))
	}
}

// defaultWorkerCount picks a worker count for the given files: one worker
// when any of them lives on a network drive, otherwise one per CPU.
func defaultWorkerCount(files []string) int {
	for _, file := range files {
		if utils.IsNetworkDrive(file) {
			fmt.Printf("⚠️  Network drive detected, using 1 worker for optimal performance\n")
			return 1
		}
	}
	return runtime.NumCPU()
}

// openCatalog opens the session catalog, degrading to a warning on failure so
// a broken catalog never blocks processing.
func openCatalog(appCtx *types.AppContext) *catalog.Catalog {
	cat, err := catalog.Open(appCtx.Config.CatalogPath)
	if err != nil {
		fmt.Printf("⚠️  session catalog unavailable: %v\n", err)
		return nil
	}
	return cat
}

// recordingObserver is the catalog surface observeRecordings needs.
type recordingObserver interface {
	Observe(path string, size int64) error
}

// observeRecordings records the discovered files in the catalog. Failures are
// per-file warnings; the remaining files still get observed.
func observeRecordings(cat recordingObserver, files []string) {
	for _, file := range files {
		size, err := vrs.GetFileSize(file)
		if err != nil {
			size = 0
		}
		if err := cat.Observe(file, size); err != nil {
			fmt.Printf("⚠️  catalog update failed for %s: %v\n", file, err)
		}
	}
}
