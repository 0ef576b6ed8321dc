package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/colonyops/inbox/internal/core/notification"
	"github.com/colonyops/inbox/internal/core/styles"
	"github.com/colonyops/inbox/pkg/iojson"
	"github.com/colonyops/inbox/pkg/tmpl"
	"github.com/urfave/cli/v3"
)

type LsCmd struct {
	flags *Flags
	app   *App

	// flags
	typ        string
	typeGlob   string
	unread     bool
	read       bool
	limit      int
	jsonOutput bool
	format     string
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags, app *App) *LsCmd {
	return &LsCmd{flags: flags, app: app}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List notifications",
		UsageText: "inbox ls [--type TYPE] [--type-glob PATTERN] [--unread|--read] [--limit N] [--json|--format TMPL]",
		Description: `Lists notifications newest first. The remote API is used when reachable;
otherwise the local cache answers and the inbox stays local until reset.

--type-glob matches types with doublestar patterns, e.g. "booking_*".
--format renders each record with a Go template, e.g. '{{.ID}} {{.Title | upper}}'.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "type",
				Aliases:     []string{"t"},
				Usage:       "only show this notification type",
				Destination: &cmd.typ,
			},
			&cli.StringFlag{
				Name:        "type-glob",
				Usage:       "only show types matching a glob pattern",
				Destination: &cmd.typeGlob,
			},
			&cli.BoolFlag{
				Name:        "unread",
				Aliases:     []string{"u"},
				Usage:       "only show unread notifications",
				Destination: &cmd.unread,
			},
			&cli.BoolFlag{
				Name:        "read",
				Usage:       "only show read notifications",
				Destination: &cmd.read,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "maximum number of notifications (0 for all)",
				Destination: &cmd.limit,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "render each notification with a Go template",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) filter() (notification.Filter, error) {
	if cmd.unread && cmd.read {
		return notification.Filter{}, errors.New("--unread and --read are mutually exclusive")
	}
	if cmd.typ != "" && cmd.typeGlob != "" {
		return notification.Filter{}, errors.New("--type and --type-glob are mutually exclusive")
	}
	if cmd.typeGlob != "" && !doublestar.ValidatePattern(cmd.typeGlob) {
		return notification.Filter{}, fmt.Errorf("invalid --type-glob pattern %q", cmd.typeGlob)
	}
	if cmd.limit < 0 {
		return notification.Filter{}, errors.New("--limit must not be negative")
	}

	f := notification.Filter{Type: notification.Type(cmd.typ)}
	switch {
	case cmd.unread:
		f.IsRead = notification.Bool(false)
	case cmd.read:
		f.IsRead = notification.Bool(true)
	}

	// The glob is applied after fetching, so the limit has to be too.
	if cmd.typeGlob == "" {
		f.Limit = cmd.limit
	}
	return f, nil
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	filter, err := cmd.filter()
	if err != nil {
		return err
	}

	var formatter func(notification.Record) (string, error)
	if cmd.format != "" {
		t, err := tmpl.Parse(cmd.format)
		if err != nil {
			return fmt.Errorf("parse --format: %w", err)
		}
		formatter = func(r notification.Record) (string, error) { return tmpl.Execute(t, r) }
	}

	svc, err := cmd.app.Service(ctx)
	if err != nil {
		return err
	}

	res := svc.List(ctx, filter)
	records := res.Notifications
	if cmd.typeGlob != "" {
		records = matchTypeGlob(records, cmd.typeGlob, cmd.limit)
	}

	out := c.Root().Writer

	switch {
	case cmd.jsonOutput:
		lw := iojson.NewLineWriter(out)
		for _, r := range records {
			if err := lw.Write(r); err != nil {
				return fmt.Errorf("encode notification: %w", err)
			}
		}
		return nil
	case formatter != nil:
		for _, r := range records {
			line, err := formatter(r)
			if err != nil {
				return fmt.Errorf("render notification %s: %w", r.ID, err)
			}
			_, _ = fmt.Fprintln(out, line)
		}
		return nil
	}

	styled := isTerminal(out)
	if len(records) == 0 {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, "No notifications")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, paint(styled, styles.HeaderStyle, " \tID\tTYPE\tTITLE\tAGE"))
	for _, r := range records {
		icon, titleStyle := styles.IconRead, styles.ReadStyle
		if !r.IsRead {
			icon, titleStyle = styles.IconUnread, styles.UnreadStyle
		}
		if !r.Synced {
			icon += styles.IconUnsynced
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			icon,
			paint(styled, styles.IDStyle, r.ID),
			paint(styled, styles.TypeStyle(string(r.Type)), styles.IconForType(r.Type)+" "+string(r.Type)),
			paint(styled, titleStyle, r.Title),
			paint(styled, styles.TimeStyle, tmpl.Ago(r.CreatedAt)),
		)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\n%d unread %s\n", res.UnreadCount, sourceBadge(styled, res.Source))
	return nil
}

// matchTypeGlob keeps records whose type matches pattern, up to limit when
// limit is positive. The pattern must already be validated.
func matchTypeGlob(records []notification.Record, pattern string, limit int) []notification.Record {
	out := make([]notification.Record, 0, len(records))
	for _, r := range records {
		if ok, _ := doublestar.Match(pattern, string(r.Type)); !ok {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
