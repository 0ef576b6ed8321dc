package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/inbox/internal/core/styles"
	"github.com/colonyops/inbox/internal/inbox"
	"github.com/colonyops/inbox/internal/inbox/probe"
	"github.com/colonyops/inbox/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type StatusCmd struct {
	flags *Flags
	app   *App

	probe      bool
	timeout    time.Duration
	jsonOutput bool
}

// NewStatusCmd creates a new status command
func NewStatusCmd(flags *Flags, app *App) *StatusCmd {
	return &StatusCmd{flags: flags, app: app}
}

// Register adds the status command to the application
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "status",
		Usage:     "Show the inbox mode and local cache size",
		UsageText: "inbox status [--probe] [--json]",
		Description: `Reports whether the inbox talks to the remote API or serves from the local
cache. --probe pings the API health endpoint first; with --offline it
reports the probe result without leaving local mode.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "probe",
				Usage:       "ping the remote health endpoint",
				Destination: &cmd.probe,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Usage:       "health probe timeout",
				Value:       5 * time.Second,
				Destination: &cmd.timeout,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

type statusReport struct {
	inbox.Status
	Backend       string `json:"backend"`
	Remote        string `json:"remote,omitempty"`
	Reachable     *bool  `json:"reachable,omitempty"`
	StorageErrors int64  `json:"storageErrors"`
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	svc, err := cmd.app.Service(ctx)
	if err != nil {
		return err
	}

	report := statusReport{
		Backend: string(cmd.flags.Config.Store.Backend),
	}

	if client := cmd.app.Client(); client != nil {
		report.Remote = client.BaseURL()
		if cmd.probe {
			reachable := cmd.ping(ctx, svc, client)
			report.Reachable = &reachable
		}
	}

	report.Status = svc.Status()
	report.StorageErrors = cmd.app.StorageErrors()

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.NewLineWriter(out).Write(report)
	}

	styled := isTerminal(out)
	var b strings.Builder
	fmt.Fprintf(&b, "mode     %s\n", modeBadge(styled, report.Mode))
	fmt.Fprintf(&b, "backend  %s\n", report.Backend)
	if report.Remote != "" {
		fmt.Fprintf(&b, "remote   %s", report.Remote)
		if report.Reachable != nil {
			if *report.Reachable {
				b.WriteString(" " + paint(styled, styles.SuccessStyle, "(reachable)"))
			} else {
				b.WriteString(" " + paint(styled, styles.ErrorStyle, "(unreachable)"))
			}
		}
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "remote   %s\n", paint(styled, styles.MutedStyle, "not configured"))
	}
	fmt.Fprintf(&b, "local    %d notification(s)\n", report.LocalCount)
	if report.StorageErrors > 0 {
		fmt.Fprintf(&b, "storage  %s\n", paint(styled, styles.WarningStyle, fmt.Sprintf("%d error(s) absorbed", report.StorageErrors)))
	}

	_, _ = fmt.Fprint(out, b.String())
	return nil
}

// ping checks the health endpoint. Outside --offline a successful probe from
// local mode resets the backend connection.
func (cmd *StatusCmd) ping(ctx context.Context, svc *inbox.Service, checker probe.Checker) bool {
	if !cmd.flags.Offline && svc.Mode() == inbox.ModeLocalOnly {
		return probe.Once(ctx, svc, checker, cmd.timeout)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cmd.timeout)
	defer cancel()
	return checker.Health(pingCtx) == nil
}
