package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/presto/internal/config"
	"github.com/presto/internal/logging"
	"github.com/presto/internal/providers"
	"github.com/presto/internal/providers/github"
	"github.com/presto/internal/providers/gitlab"
	"github.com/presto/internal/session"
	"github.com/presto/internal/threads"
)

// appEnv bundles everything a command needs: loaded config, logger,
// the configured provider and the repo it points at, and the session store.
type appEnv struct {
	cfg      *config.Config
	log      zerolog.Logger
	provider providers.Provider
	repo     string
	store    *session.Store
}

func setup(c *cli.Context) (*appEnv, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	providerName := cfg.General.DefaultProvider
	if override := c.String("provider"); override != "" {
		providerName = override
	}
	cfg.General.DefaultProvider = providerName

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.General.LogLevel
	if c.Bool("verbose") {
		level = "debug"
	}
	log := logging.New(level)

	provider, repo, err := createProvider(providerName, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	return &appEnv{
		cfg:      cfg,
		log:      log,
		provider: provider,
		repo:     repo,
		store:    session.NewStore(cfg.General.SessionsDir, log),
	}, nil
}

func createProvider(name string, cfg *config.Config, log zerolog.Logger) (providers.Provider, string, error) {
	switch name {
	case "github":
		p, err := github.New(cfg.GitHub, log)
		if err != nil {
			return nil, "", err
		}
		return p, cfg.GitHub.Repo, nil
	case "gitlab":
		p, err := gitlab.New(cfg.GitLab, log)
		if err != nil {
			return nil, "", err
		}
		return p, cfg.GitLab.Project, nil
	default:
		return nil, "", fmt.Errorf("unsupported provider: %s", name)
	}
}

// prArg parses the positional PR number argument.
func prArg(c *cli.Context) (int, error) {
	if c.NArg() < 1 {
		return 0, fmt.Errorf("missing required argument: PR number")
	}
	pr, err := strconv.Atoi(c.Args().Get(0))
	if err != nil || pr <= 0 {
		return 0, fmt.Errorf("invalid PR number: %s", c.Args().Get(0))
	}
	return pr, nil
}

// resolveSession loads the session named by --session, or discovers the
// latest one for the PR.
func resolveSession(c *cli.Context, env *appEnv, pr int) (*session.Session, error) {
	if dir := c.String("session"); dir != "" {
		return env.store.Load(dir)
	}
	sess, err := env.store.Discover(env.repo, pr)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, fmt.Errorf("no session for PR #%d: run analyze first", pr)
		}
		return nil, err
	}
	return sess, nil
}

// providerGateway adapts a provider to the posting gateway for one PR.
type providerGateway struct {
	provider providers.Provider
	pr       int
}

func (g providerGateway) PostReply(ctx context.Context, originalCommentID, content string, kind threads.Kind) (string, error) {
	return g.provider.PostReply(ctx, g.pr, originalCommentID, content, kind)
}
