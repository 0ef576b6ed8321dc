package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/inbox/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type UnreadCmd struct {
	flags *Flags
	app   *App

	jsonOutput bool
}

// NewUnreadCmd creates a new unread command
func NewUnreadCmd(flags *Flags, app *App) *UnreadCmd {
	return &UnreadCmd{flags: flags, app: app}
}

// Register adds the unread command to the application
func (cmd *UnreadCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "unread",
		Usage:     "Print the number of unread notifications",
		UsageText: "inbox unread [--json]",
		Flags: []cli.Flag{
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

func (cmd *UnreadCmd) run(ctx context.Context, c *cli.Command) error {
	svc, err := cmd.app.Service(ctx)
	if err != nil {
		return err
	}

	n := svc.UnreadCount(ctx)
	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.NewLineWriter(out).Write(map[string]any{
			"unreadCount": n,
			"mode":        svc.Mode(),
		})
	}

	_, _ = fmt.Fprintln(out, n)
	return nil
}
