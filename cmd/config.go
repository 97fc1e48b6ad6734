package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/presto/internal/config"
)

// ConfigCommand returns the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize a new configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "presto.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Show the effective configuration with secrets redacted",
				Action: runConfigShow,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration file",
				Action: runConfigValidate,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("[general]")
	fmt.Printf("default_provider = %q\n", cfg.General.DefaultProvider)
	fmt.Printf("sessions_dir = %q\n", cfg.General.SessionsDir)
	fmt.Printf("log_level = %q\n\n", cfg.General.LogLevel)

	fmt.Println("[github]")
	fmt.Printf("repo = %q\n", cfg.GitHub.Repo)
	fmt.Printf("token = %q\n\n", redact(cfg.GitHub.Token))

	fmt.Println("[gitlab]")
	fmt.Printf("url = %q\n", cfg.GitLab.URL)
	fmt.Printf("project = %q\n", cfg.GitLab.Project)
	fmt.Printf("token = %q\n", redact(cfg.GitLab.Token))
	return nil
}

func runConfigValidate(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Println("Configuration is valid")
	return nil
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}
