package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentpack/agentpack/internal/cache"
	"github.com/agentpack/agentpack/internal/config"
	"github.com/agentpack/agentpack/internal/fetch"
	"github.com/agentpack/agentpack/internal/sdk"
	"github.com/agentpack/agentpack/internal/syncer"
	"github.com/agentpack/agentpack/internal/tool"
	"github.com/agentpack/agentpack/internal/ui"
	"github.com/agentpack/agentpack/internal/ui/tui"
)

func loadProjectConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}
	return config.Load(config.Find(cwd))
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Install declared resources for every target tool",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "prune",
				Usage: "Remove installed resources no longer declared",
			},
			&cli.StringSliceFlag{
				Name:    "tool",
				Aliases: []string{"t"},
				Usage:   "Target tool (repeatable, overrides the manifest)",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Never prompt; use the manifest or default tools",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadProjectConfig()
			if err != nil {
				return err
			}

			table := tool.DefaultTable()
			tools := cmd.StringSlice("tool")
			if len(tools) == 0 {
				tools = cfg.Tools
				if !cfg.ToolsDeclared() && !cmd.Bool("yes") && isInteractive() {
					picked, err := pickTools(table, cfg)
					if err != nil {
						return err
					}
					if picked != nil {
						tools = picked
					}
				}
			}

			s := syncer.New(fetch.NewGitFetcher(), table)
			result, err := s.Run(ctx, cfg, syncer.Options{
				Prune: cmd.Bool("prune"),
				Tools: tools,
			})
			if err != nil {
				return err
			}

			fmt.Print(ui.RenderSyncResult(result, tools))
			if !result.Success() {
				return fmt.Errorf("%d dependencies failed to sync", len(result.Failures()))
			}
			return nil
		},
	}
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// pickTools prompts for a tool selection and persists it to the manifest,
// so the question is asked once per project. A cancelled picker returns
// nil and the caller falls back to the defaults.
func pickTools(table *tool.Table, cfg *config.Config) ([]string, error) {
	result, err := tui.RunToolPicker(table, cfg.Tools)
	if err != nil {
		return nil, fmt.Errorf("tool selection failed: %w", err)
	}
	if result.Action != tui.ToolPickerActionConfirm {
		return nil, nil
	}

	cfg.SetTools(result.Tools)
	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("failed to record tool selection: %w", err)
	}
	return result.Tools, nil
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Declare a dependency in the project manifest",
		UsageText: "agentpack add [options] <handle-or-path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Usage: "Resource type: skill, command, agent, or rule",
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "Repository name when the resource is not in the default repo",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("add requires exactly one handle or path")
			}
			ref := cmd.Args().Get(0)

			cfg, err := loadProjectConfig()
			if err != nil {
				return err
			}

			dep := config.Dependency{
				Type:   cmd.String("type"),
				Source: cmd.String("source"),
			}
			if strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") || strings.HasPrefix(ref, "/") {
				dep.Path = ref
				dep.Source = ""
			} else {
				dep.Handle = ref
			}

			if err := dep.Validate(); err != nil {
				return err
			}
			if err := cfg.AddDependency(dep); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}

			fmt.Println(ui.StatusSuccess(fmt.Sprintf("added %s", dep.Identifier())))
			fmt.Println(ui.Dim("run `agentpack sync` to install"))
			return nil
		},
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Remove a declared dependency",
		UsageText: "agentpack remove <handle-or-path>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("remove requires exactly one handle or path")
			}
			ref := cmd.Args().Get(0)

			cfg, err := loadProjectConfig()
			if err != nil {
				return err
			}

			removed, ok := cfg.RemoveDependency(ref)
			if !ok {
				return fmt.Errorf("no dependency matches %q", ref)
			}
			if err := cfg.Save(); err != nil {
				return err
			}

			fmt.Println(ui.StatusSuccess(fmt.Sprintf("removed %s", removed.Identifier())))
			fmt.Println(ui.Dim("run `agentpack sync --prune` to uninstall"))
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List declared dependencies",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadProjectConfig()
			if err != nil {
				return err
			}

			if len(cfg.Dependencies) == 0 {
				fmt.Println(ui.Dim("no dependencies declared"))
				return nil
			}

			fmt.Println(ui.Header("Dependencies"))
			for _, dep := range cfg.Dependencies {
				kind := "remote"
				if dep.IsLocal() {
					kind = "local"
				}
				fmt.Printf("  %s %s %s\n",
					ui.Bold(dep.Identifier()),
					ui.Dim(string(dep.ResourceType())),
					ui.Dim("("+kind+")"))
			}
			fmt.Println()
			fmt.Printf("tools: %s\n", strings.Join(cfg.Tools, ", "))
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a resource's content without installing it",
		UsageText: "agentpack show [options] <handle>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "revision",
				Usage: "Revision to cache the resource under (defaults to latest)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("show requires exactly one handle")
			}

			c, err := cache.Default()
			if err != nil {
				return err
			}
			hub := sdk.New(fetch.NewGitFetcher(), c, tool.DefaultTable())

			res, err := hub.Load(ctx, cmd.Args().Get(0), cmd.String("revision"))
			if err != nil {
				return err
			}
			content, err := res.Content()
			if err != nil {
				return err
			}
			os.Stdout.Write(content)
			return nil
		},
	}
}

func toolsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "List supported target tools",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadProjectConfig()
			if err != nil {
				return err
			}
			active := make(map[string]bool, len(cfg.Tools))
			for _, name := range cfg.Tools {
				active[name] = true
			}

			titler := cases.Title(language.English)
			for _, a := range tool.DefaultTable().All() {
				display := a.DisplayName
				if display == "" {
					display = titler.String(a.Name)
				}
				layout := "nested"
				if a.FlattensNames {
					layout = "flat"
				}
				line := fmt.Sprintf("%-12s %s  %s", a.Name, ui.Dim(display), ui.Dim(layout))
				if active[a.Name] {
					line = ui.StatusSuccess(line)
				} else {
					line = "  " + line
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
