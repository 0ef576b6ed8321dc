package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/colonyops/inbox/internal/core/config"
	"github.com/colonyops/inbox/internal/core/logging"
	"github.com/colonyops/inbox/internal/inbox"
	"github.com/colonyops/inbox/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

type ServeCmd struct {
	flags *Flags

	addr     string
	token    string
	failRate float64
	store    string
	origins  []string
	seed     bool
	pprof    string
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run a local notifications API for development",
		UsageText: "inbox serve [--addr 127.0.0.1:8787] [--token T] [--fail-rate 0.2] [--store memory]",
		Description: `Serves the notifications REST API from a store kept apart from the client
cache. Point api.base_url at it to exercise the remote path.

--fail-rate answers that fraction of requests with 503, which drives clients
into local mode.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (defaults to server.addr)",
				Destination: &cmd.addr,
			},
			&cli.StringFlag{
				Name:        "token",
				Usage:       "require this bearer token (defaults to server.token)",
				Sources:     cli.EnvVars("INBOX_SERVER_TOKEN"),
				Destination: &cmd.token,
			},
			&cli.FloatFlag{
				Name:        "fail-rate",
				Usage:       "fraction of requests to fail with 503 (0-1)",
				Destination: &cmd.failRate,
			},
			&cli.StringFlag{
				Name:        "store",
				Usage:       "server store backend (sqlite, file, redis, memory)",
				Value:       string(config.BackendSQLite),
				Destination: &cmd.store,
			},
			&cli.StringSliceFlag{
				Name:        "origin",
				Usage:       "allowed CORS origin (repeatable, default *)",
				Destination: &cmd.origins,
			},
			&cli.BoolFlag{
				Name:        "seed",
				Usage:       "seed sample notifications into an empty store",
				Destination: &cmd.seed,
			},
			pprofFlag(&cmd.pprof),
		},
		Action: cmd.run,
	})

	return app
}

// options resolves flags over the server config section.
func (cmd *ServeCmd) options(c *cli.Command, cfg config.ServerConfig) (addr string, opts []server.Option, err error) {
	addr = cfg.Addr
	if cmd.addr != "" {
		addr = cmd.addr
	}

	token := cfg.Token
	if c.IsSet("token") {
		token = cmd.token
	}

	failRate := cfg.FailRate
	if c.IsSet("fail-rate") {
		failRate = cmd.failRate
	}
	if failRate < 0 || failRate > 1 {
		return "", nil, fmt.Errorf("--fail-rate must be between 0 and 1, got %v", failRate)
	}

	opts = []server.Option{
		server.WithLogger(logging.Component("server")),
		server.WithToken(token),
		server.WithFailRate(failRate),
		server.WithRateLimit(cfg.RateLimit, cfg.Burst),
	}
	if len(cmd.origins) > 0 {
		opts = append(opts, server.WithAllowedOrigins(cmd.origins...))
	}
	return addr, opts, nil
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config

	backend := config.Backend(cmd.store)
	if !backend.IsValid() {
		return fmt.Errorf("unknown --store %q", cmd.store)
	}

	addr, opts, err := cmd.options(c, cfg.Server)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closer, err := OpenStore(ctx, backend, cfg, cfg.ServerDataDir())
	if err != nil {
		return fmt.Errorf("open %s store: %w", backend, err)
	}
	if closer != nil {
		defer func() {
			if err := closer(); err != nil {
				log.Error().Err(err).Msg("failed to close server store")
			}
		}()
	}

	stopProfiler, err := startProfiler(ctx, cmd.pprof)
	if err != nil {
		return err
	}
	defer stopProfiler()

	srv := server.New(ctx, store, opts...)
	if cmd.seed && srv.Cache().SeedIfEmpty(inbox.SampleRecords(time.Now())) {
		log.Info().Msg("seeded server store with sample notifications")
	}

	_, _ = fmt.Fprintf(c.Root().ErrWriter, "serving notifications API on http://%s\n", addr)
	return srv.ListenAndServe(ctx, addr)
}
