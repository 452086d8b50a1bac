package main

import (
	_ "image/jpeg"
	_ "image/png"

	"github.com/alecthomas/kong"

	"github.com/wearlab/ariactl/cmd"
	"github.com/wearlab/ariactl/config"
	"github.com/wearlab/ariactl/types"
)

var Version = "dev"

type CLI struct {
	Mps       cmd.MPSCmd       `cmd:"" help:"Process recordings through the MPS pipeline"`
	Extract   cmd.ExtractCmd   `cmd:"" help:"Extract camera frames from recordings"`
	Connect   cmd.ConnectCmd   `cmd:"" help:"Connect to a device and show its status"`
	Record    cmd.RecordCmd    `cmd:"" help:"Run a recording on a device"`
	Stream    cmd.StreamCmd    `cmd:"" help:"Control on-device streaming"`
	Subscribe cmd.SubscribeCmd `cmd:"" help:"Watch a live device stream"`
	Files     cmd.FilesCmd     `cmd:"" help:"Manage recordings on device storage"`
	Ticsync   cmd.TicsyncCmd   `cmd:"" help:"Time-synchronized multi-device recordings"`
	Sessions  cmd.SessionsCmd  `cmd:"" help:"Show the local session catalog"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("ariactl"),
		kong.Description("Toolkit for Project Aria recordings: MPS processing, frame extraction and device control"),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	ctx.FatalIfErrorf(err)

	appCtx := &types.AppContext{Version: Version, Config: cfg}
	err = ctx.Run(appCtx)
	ctx.FatalIfErrorf(err)
}
