package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/presto/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "presto",
		Usage:   "PR review comment workflow: reconstruct threads, triage, draft and post replies",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: cmd.Workflow,
		Commands: []*cli.Command{
			cmd.AnalyzeCommand(),
			cmd.SearchCommand(),
			cmd.ReplyCommand(),
			cmd.DraftCommand(),
			cmd.PostCommand(),
			cmd.SkipCommand(),
			cmd.CleanupCommand(),
			cmd.ConfigCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
