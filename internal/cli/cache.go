package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/agentpack/agentpack/internal/cache"
	"github.com/agentpack/agentpack/internal/ui"
)

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the content cache",
		Commands: []*cli.Command{
			{
				Name:  "info",
				Usage: "Show cache location and size",
				Action: func(_ context.Context, _ *cli.Command) error {
					c, err := cache.Default()
					if err != nil {
						return err
					}
					info, err := c.Stat()
					if err != nil {
						return err
					}
					fmt.Printf("path:    %s\n", info.Path)
					fmt.Printf("entries: %d\n", info.Entries)
					fmt.Printf("size:    %s\n", formatBytes(info.Bytes))
					return nil
				},
			},
			{
				Name:      "clear",
				Usage:     "Remove cached entries, optionally matching a pattern",
				UsageText: "agentpack cache clear [owner/repo/name]",
				Action: func(_ context.Context, cmd *cli.Command) error {
					c, err := cache.Default()
					if err != nil {
						return err
					}
					pattern := cmd.Args().First()
					removed, err := c.Clear(pattern)
					if err != nil {
						return err
					}
					fmt.Println(ui.StatusSuccess(fmt.Sprintf("removed %d cache entries", removed)))
					return nil
				},
			},
		},
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
