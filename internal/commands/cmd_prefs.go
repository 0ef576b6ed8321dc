package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/colonyops/inbox/internal/core/notification"
	"github.com/colonyops/inbox/internal/core/styles"
	"github.com/colonyops/inbox/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type PrefsCmd struct {
	flags *Flags
	app   *App

	jsonOutput bool
	input      iojson.FileReader[notification.PreferencesPatch]

	email      bool
	push       bool
	telegram   bool
	quietHours bool
	quietStart string
	quietEnd   string
	enable     []string
	disable    []string
}

// NewPrefsCmd creates a new prefs command
func NewPrefsCmd(flags *Flags, app *App) *PrefsCmd {
	return &PrefsCmd{flags: flags, app: app}
}

// Register adds the prefs command to the application
func (cmd *PrefsCmd) Register(app *cli.Command) *cli.Command {
	jsonFlag := func() cli.Flag {
		return &cli.BoolFlag{
			Name:        "json",
			Usage:       "output as JSON",
			Destination: &cmd.jsonOutput,
		}
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "prefs",
		Usage: "Show or change notification preferences",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show notification preferences",
				UsageText: "inbox prefs show [--json]",
				Flags:     []cli.Flag{jsonFlag()},
				Action:    cmd.runShow,
			},
			{
				Name:      "set",
				Usage:     "Change notification preferences",
				UsageText: "inbox prefs set [--email=false] [--quiet-hours --quiet-start 22:00] [--disable marketing] | inbox prefs set -f patch.json",
				Description: `Applies a partial update. Only the flags you pass are changed; everything
else keeps its stored (or default) value.`,
				Flags: []cli.Flag{
					jsonFlag(),
					cmd.input.Flag(),
					&cli.BoolFlag{Name: "email", Usage: "email channel", Destination: &cmd.email},
					&cli.BoolFlag{Name: "push", Usage: "push channel", Destination: &cmd.push},
					&cli.BoolFlag{Name: "telegram", Usage: "telegram channel", Destination: &cmd.telegram},
					&cli.BoolFlag{Name: "quiet-hours", Usage: "enable quiet hours", Destination: &cmd.quietHours},
					&cli.StringFlag{Name: "quiet-start", Usage: "quiet hours start (HH:MM)", Destination: &cmd.quietStart},
					&cli.StringFlag{Name: "quiet-end", Usage: "quiet hours end (HH:MM)", Destination: &cmd.quietEnd},
					&cli.StringSliceFlag{Name: "enable", Usage: "enable a notification type (repeatable)", Destination: &cmd.enable},
					&cli.StringSliceFlag{Name: "disable", Usage: "disable a notification type (repeatable)", Destination: &cmd.disable},
				},
				Action: cmd.runSet,
			},
		},
	})

	return app
}

func (cmd *PrefsCmd) runShow(ctx context.Context, c *cli.Command) error {
	svc, err := cmd.app.Service(ctx)
	if err != nil {
		return err
	}
	return cmd.print(c, svc.Preferences(ctx))
}

func (cmd *PrefsCmd) patch(c *cli.Command) (notification.PreferencesPatch, error) {
	if cmd.input.Set() {
		return cmd.input.Read()
	}

	var p notification.PreferencesPatch
	if c.IsSet("email") {
		p.Email = notification.Bool(cmd.email)
	}
	if c.IsSet("push") {
		p.Push = notification.Bool(cmd.push)
	}
	if c.IsSet("telegram") {
		p.Telegram = notification.Bool(cmd.telegram)
	}

	if c.IsSet("quiet-hours") || c.IsSet("quiet-start") || c.IsSet("quiet-end") {
		qh := &notification.QuietHoursPatch{}
		if c.IsSet("quiet-hours") {
			qh.Enabled = notification.Bool(cmd.quietHours)
		}
		if c.IsSet("quiet-start") {
			qh.Start = notification.String(cmd.quietStart)
		}
		if c.IsSet("quiet-end") {
			qh.End = notification.String(cmd.quietEnd)
		}
		p.QuietHours = qh
	}

	for _, t := range cmd.enable {
		if slices.Contains(cmd.disable, t) {
			return p, fmt.Errorf("type %q is both enabled and disabled", t)
		}
	}
	if len(cmd.enable)+len(cmd.disable) > 0 {
		p.Types = make(map[notification.Type]bool, len(cmd.enable)+len(cmd.disable))
		for _, t := range cmd.enable {
			p.Types[notification.Type(t)] = true
		}
		for _, t := range cmd.disable {
			p.Types[notification.Type(t)] = false
		}
	}

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid preferences: %w", err)
	}
	return p, nil
}

func (cmd *PrefsCmd) runSet(ctx context.Context, c *cli.Command) error {
	patch, err := cmd.patch(c)
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return errors.New("nothing to change; pass at least one preference flag")
	}

	svc, err := cmd.app.Service(ctx)
	if err != nil {
		return err
	}
	return cmd.print(c, svc.UpdatePreferences(ctx, patch))
}

func (cmd *PrefsCmd) print(c *cli.Command, p notification.Preferences) error {
	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, c.Root().ErrWriter, p)
	}

	styled := isTerminal(out)
	onOff := func(b bool) string {
		if b {
			return paint(styled, styles.SuccessStyle, "on")
		}
		return paint(styled, styles.MutedStyle, "off")
	}

	var b strings.Builder
	fmt.Fprintln(&b, paint(styled, styles.HeaderStyle, "Channels"))
	fmt.Fprintf(&b, "  email     %s\n", onOff(p.Email))
	fmt.Fprintf(&b, "  push      %s\n", onOff(p.Push))
	fmt.Fprintf(&b, "  telegram  %s\n", onOff(p.Telegram))

	fmt.Fprintln(&b, paint(styled, styles.HeaderStyle, "Types"))
	types := make([]string, 0, len(p.Types))
	for t := range p.Types {
		types = append(types, string(t))
	}
	slices.Sort(types)
	for _, t := range types {
		fmt.Fprintf(&b, "  %-10s%s\n", t, onOff(p.Types[notification.Type(t)]))
	}

	fmt.Fprintln(&b, paint(styled, styles.HeaderStyle, "Quiet hours"))
	fmt.Fprintf(&b, "  %s  %s-%s\n", onOff(p.QuietHours.Enabled), p.QuietHours.Start, p.QuietHours.End)

	_, _ = fmt.Fprint(out, b.String())
	return nil
}
