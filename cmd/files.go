package cmd

import (
	"fmt"
	"time"

	"github.com/wearlab/ariactl/device"
	"github.com/wearlab/ariactl/ticsync"
	"github.com/wearlab/ariactl/types"
	"github.com/wearlab/ariactl/ui"
	"github.com/wearlab/ariactl/utils"
)

type FilesCmd struct {
	List FilesListCmd `cmd:"" help:"List recordings stored on connected devices"`
	Pull FilesPullCmd `cmd:"" help:"Download recordings from connected devices"`
}

// listAllRecordings gathers recordings from every connected Aria device.
func listAllRecordings(adb *device.ADB) ([]device.DeviceRecording, error) {
	devices, err := adb.ListDevices()
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no Aria devices connected over USB")
	}

	var recordings []device.DeviceRecording
	for _, dev := range devices {
		found, err := adb.ListRecordings(dev.Serial)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, found...)
	}
	return recordings, nil
}

type FilesListCmd struct {
	Ticsync bool `help:"Group recordings by shared ticsync session"`
}

// Run lists recordings on all connected devices, flat or grouped by shared
// ticsync session.
func (cmd *FilesListCmd) Run(appCtx *types.AppContext) error {
	if err := utils.ValidateDependencies(utils.ToolADB); err != nil {
		return err
	}

	recordings, err := listAllRecordings(device.NewADB())
	if err != nil {
		return err
	}
	if len(recordings) == 0 {
		fmt.Printf("%s\n", ui.InfoStyle.Render("No recordings on connected devices"))
		return nil
	}

	if !cmd.Ticsync {
		fmt.Printf("%s\n", ui.InfoStyle.Render(fmt.Sprintf("Found %d recordings:", len(recordings))))
		for _, rec := range recordings {
			printRecording("  ", rec)
		}
		return nil
	}

	groups, plain := ticsync.GroupRecordings(recordings)

	fmt.Printf("%s\n", ui.InfoStyle.Render(fmt.Sprintf("Found %d ticsync sessions:", len(groups))))
	for _, group := range groups {
		fmt.Printf("\nSession %s:\n", group.SharedSessionID)
		if group.Server != nil {
			printRecording("  [server] ", *group.Server)
		}
		for _, rec := range group.Clients {
			printRecording("  [client] ", rec)
		}
		if group.MissingClients() {
			fmt.Printf("%s\n", ui.ErrorStyle.Render("  ⚠️  no client recordings in this session"))
		}
	}

	if len(plain) > 0 {
		fmt.Printf("\nRecordings outside any ticsync session:\n")
		for _, rec := range plain {
			printRecording("  ", rec)
		}
	}

	return nil
}

func printRecording(prefix string, rec device.DeviceRecording) {
	line := fmt.Sprintf("%s%s on %s", prefix, rec.UUID, rec.Serial)
	if ended := rec.EndedAt(); !ended.IsZero() {
		line += fmt.Sprintf(" (ended %s)", ended.Format(time.RFC3339))
	}
	fmt.Println(line)
}

type FilesPullCmd struct {
	Session   string `help:"Pull only recordings of this shared ticsync session"`
	UUID      string `help:"Pull only this recording"`
	OutputDir string `help:"Directory to download into" type:"path" default:"."`
}

// Run downloads recordings from connected devices, optionally filtered to one
// shared ticsync session or one recording.
func (cmd *FilesPullCmd) Run(appCtx *types.AppContext) error {
	if err := utils.ValidateDependencies(utils.ToolADB); err != nil {
		return err
	}

	adb := device.NewADB()
	recordings, err := listAllRecordings(adb)
	if err != nil {
		return err
	}

	var selected []device.DeviceRecording
	for _, rec := range recordings {
		if cmd.Session != "" && rec.Meta.SharedSessionID != cmd.Session {
			continue
		}
		if cmd.UUID != "" && rec.UUID != cmd.UUID {
			continue
		}
		selected = append(selected, rec)
	}
	if len(selected) == 0 {
		return fmt.Errorf("no recordings matched the given filters")
	}

	fmt.Printf("%s\n", ui.ProcessingStyle.Render(fmt.Sprintf("Pulling %d recordings to %s:", len(selected), cmd.OutputDir)))

	var failed int
	for _, rec := range selected {
		localPath, err := adb.Pull(rec.Serial, rec.UUID, cmd.OutputDir)
		if err != nil {
			failed++
			fmt.Printf("%s\n", ui.ErrorStyle.Render(fmt.Sprintf("❌ %s: %v", rec.UUID, err)))
			continue
		}
		fmt.Printf("%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ %s", localPath)))
	}

	if failed > 0 {
		return fmt.Errorf("%d recording(s) failed to download", failed)
	}
	fmt.Printf("\n%s\n", ui.SuccessStyle.Render("✅ Download complete."))
	return nil
}
