package cmd

import (
	"fmt"
	"time"

	"github.com/wearlab/ariactl/catalog"
	"github.com/wearlab/ariactl/types"
	"github.com/wearlab/ariactl/ui"
	"github.com/wearlab/ariactl/vrs"
)

type SessionsCmd struct{}

// Run lists every recording the catalog has seen and its processing state.
func (cmd *SessionsCmd) Run(appCtx *types.AppContext) error {
	cat, err := catalog.Open(appCtx.Config.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to open session catalog: %w", err)
	}
	defer func() { _ = cat.Close() }()

	entries, err := cat.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(entries) == 0 {
		fmt.Printf("%s\n", ui.InfoStyle.Render("No sessions in the catalog yet; run 'ariactl mps' or 'ariactl extract' first"))
		return nil
	}

	fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("ariactl sessions %s", appCtx.Version)))
	fmt.Printf("%s\n\n", ui.InfoStyle.Render(fmt.Sprintf("%d recordings in %s:", len(entries), appCtx.Config.CatalogPath)))

	for _, entry := range entries {
		fmt.Printf("%s\n", entry.Path)
		if session, ok := vrs.ParseSession(entry.Path); ok {
			fmt.Printf("  subject %d, session %d\n", session.Subject, session.Number)
		}
		fmt.Printf("  size: %s, mps: %s, extract: %s, seen: %s\n",
			formatBytes(entry.SizeBytes),
			orDash(entry.MPSState),
			orDash(entry.ExtractState),
			entry.FirstSeen.Format(time.RFC3339))
	}

	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatBytes renders a size in human-readable units
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
