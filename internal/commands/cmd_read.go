package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/inbox/internal/core/styles"
	"github.com/urfave/cli/v3"
)

type ReadCmd struct {
	flags *Flags
	app   *App

	all bool
}

// NewReadCmd creates a new read command
func NewReadCmd(flags *Flags, app *App) *ReadCmd {
	return &ReadCmd{flags: flags, app: app}
}

// Register adds the read command to the application
func (cmd *ReadCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "read",
		Usage:     "Mark notifications as read",
		UsageText: "inbox read <id>... | inbox read --all",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "all",
				Aliases:     []string{"a"},
				Usage:       "mark every notification read",
				Destination: &cmd.all,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ReadCmd) run(ctx context.Context, c *cli.Command) error {
	ids := c.Args().Slice()
	if cmd.all == (len(ids) > 0) {
		return errors.New("pass notification ids or --all")
	}

	svc, err := cmd.app.Service(ctx)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	styled := isTerminal(out)

	if cmd.all {
		n := svc.MarkAllRead(ctx)
		_, _ = fmt.Fprintln(out, paint(styled, styles.SuccessStyle, fmt.Sprintf("marked %d notification(s) read", n)))
		return nil
	}

	var missed int
	for _, id := range ids {
		if svc.MarkRead(ctx, id) {
			_, _ = fmt.Fprintln(out, paint(styled, styles.SuccessStyle, "read "+id))
			continue
		}
		missed++
		_, _ = fmt.Fprintln(c.Root().ErrWriter, paint(styled, styles.WarningStyle, id+": not found or already read"))
	}

	if missed == len(ids) {
		return cli.Exit("", 1)
	}
	return nil
}
