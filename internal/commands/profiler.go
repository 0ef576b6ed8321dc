package commands

import (
	"context"
	"time"

	"github.com/colonyops/inbox/internal/core/logging"
	"github.com/colonyops/inbox/internal/profiler"
	"github.com/urfave/cli/v3"
)

func pprofFlag(dest *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "pprof",
		Usage:       "serve pprof handlers on this address (e.g. 127.0.0.1:6060)",
		Sources:     cli.EnvVars("INBOX_PPROF"),
		Destination: dest,
	}
}

// startProfiler starts a pprof server when addr is set. The returned stop
// func is always safe to call.
func startProfiler(ctx context.Context, addr string) (stop func(), err error) {
	if addr == "" {
		return func() {}, nil
	}

	s := profiler.New(addr, logging.Component("profiler"))
	if err := s.Start(ctx); err != nil {
		return func() {}, err
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}, nil
}
