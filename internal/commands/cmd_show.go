package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/colonyops/inbox/internal/core/notification"
	"github.com/colonyops/inbox/internal/core/styles"
	"github.com/colonyops/inbox/internal/inbox"
	"github.com/colonyops/inbox/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type ShowCmd struct {
	flags *Flags
	app   *App

	jsonOutput bool
	markRead   bool
	width      int
}

// NewShowCmd creates a new show command
func NewShowCmd(flags *Flags, app *App) *ShowCmd {
	return &ShowCmd{flags: flags, app: app}
}

// Register adds the show command to the application
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show a single notification",
		UsageText: "inbox show <id> [--json] [--mark-read]",
		Description: `Renders one notification as markdown with its metadata. {name}
placeholders in the message are filled from metadata.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
			&cli.BoolFlag{
				Name:        "mark-read",
				Aliases:     []string{"r"},
				Usage:       "mark the notification read after showing it",
				Destination: &cmd.markRead,
			},
			&cli.IntFlag{
				Name:        "width",
				Usage:       "word wrap width for rendered output",
				Value:       80,
				Destination: &cmd.width,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("notification id is required")
	}

	svc, err := cmd.app.Service(ctx)
	if err != nil {
		return err
	}

	rec, ok := findRecord(ctx, svc, id)
	if !ok {
		return fmt.Errorf("notification %q not found", id)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		if err := iojson.WriteWith(out, c.Root().ErrWriter, rec); err != nil {
			return err
		}
	} else {
		rendered, err := cmd.render(rec, isTerminal(out))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(out, rendered)
	}

	if cmd.markRead && !rec.IsRead {
		svc.MarkRead(ctx, rec.ID)
	}
	return nil
}

// findRecord looks id up through the façade so the remote service is
// preferred when available.
func findRecord(ctx context.Context, svc *inbox.Service, id string) (notification.Record, bool) {
	res := svc.List(ctx, notification.Filter{})
	i := slices.IndexFunc(res.Notifications, func(r notification.Record) bool { return r.ID == id })
	if i < 0 {
		return notification.Record{}, false
	}
	return res.Notifications[i], true
}

func (cmd *ShowCmd) render(rec notification.Record, styled bool) (string, error) {
	md := recordMarkdown(rec)
	if !styled {
		return md, nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(cmd.width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	return r.Render(md)
}

func recordMarkdown(rec notification.Record) string {
	var b strings.Builder

	status := "read"
	if !rec.IsRead {
		status = "unread"
	}

	fmt.Fprintf(&b, "# %s %s\n\n", styles.IconForType(rec.Type), rec.Title)
	if msg := renderMessage(rec); msg != "" {
		fmt.Fprintf(&b, "%s\n\n", msg)
	}
	fmt.Fprintf(&b, "- **ID:** `%s`\n", rec.ID)
	fmt.Fprintf(&b, "- **Type:** %s\n", rec.Type)
	fmt.Fprintf(&b, "- **Status:** %s\n", status)
	fmt.Fprintf(&b, "- **Created:** %s\n", rec.CreatedAt.Format("2006-01-02 15:04"))
	if !rec.Synced {
		b.WriteString("- **Synced:** no\n")
	}
	if rec.ActionURL != "" {
		fmt.Fprintf(&b, "- **Action:** %s\n", rec.ActionURL)
	}

	if len(rec.Metadata) > 0 {
		b.WriteString("\n## Metadata\n\n")
		keys := make([]string, 0, len(rec.Metadata))
		for k := range rec.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- **%s:** %s\n", k, rec.Metadata[k].String())
		}
	}

	return b.String()
}
