package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

// SearchCommand returns the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search a PR's comments for a substring",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Override the provider to use",
			},
		},
		ArgsUsage: "PR_NUMBER QUERY",
		Action:    runSearch,
	}
}

func runSearch(c *cli.Context) error {
	pr, err := prArg(c)
	if err != nil {
		return err
	}
	if c.NArg() < 2 {
		return fmt.Errorf("missing required argument: search query")
	}
	query := c.Args().Get(1)

	env, err := setup(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	data, err := fetchPR(ctx, env, pr)
	if err != nil {
		return err
	}

	printSearchResults(data, query)
	return nil
}
