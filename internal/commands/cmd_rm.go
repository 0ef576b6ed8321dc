package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/inbox/internal/core/styles"
	"github.com/urfave/cli/v3"
)

type RmCmd struct {
	flags *Flags
	app   *App

	all bool
}

// NewRmCmd creates a new rm command
func NewRmCmd(flags *Flags, app *App) *RmCmd {
	return &RmCmd{flags: flags, app: app}
}

// Register adds the rm command to the application
func (cmd *RmCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "rm",
		Usage:     "Delete notifications",
		UsageText: "inbox rm <id>... | inbox rm --all",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "delete every notification",
				Destination: &cmd.all,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RmCmd) run(ctx context.Context, c *cli.Command) error {
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
		n := svc.DeleteAll(ctx)
		_, _ = fmt.Fprintln(out, paint(styled, styles.SuccessStyle, fmt.Sprintf("deleted %d notification(s)", n)))
		return nil
	}

	var missed int
	for _, id := range ids {
		if svc.Delete(ctx, id) {
			_, _ = fmt.Fprintln(out, paint(styled, styles.SuccessStyle, "deleted "+id))
			continue
		}
		missed++
		_, _ = fmt.Fprintln(c.Root().ErrWriter, paint(styled, styles.WarningStyle, id+": not found"))
	}

	if missed == len(ids) {
		return cli.Exit("", 1)
	}
	return nil
}
