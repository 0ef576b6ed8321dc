package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/colonyops/inbox/internal/core/notification"
	"github.com/colonyops/inbox/internal/core/styles"
	"github.com/colonyops/inbox/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type AddCmd struct {
	flags *Flags
	app   *App

	input iojson.FileReader[notification.Draft]

	typ        string
	title      string
	message    string
	actionURL  string
	meta       []string
	jsonOutput bool
}

// NewAddCmd creates a new add command
func NewAddCmd(flags *Flags, app *App) *AddCmd {
	return &AddCmd{flags: flags, app: app}
}

// Register adds the add command to the application
func (cmd *AddCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "add",
		Usage:     "Create a notification",
		UsageText: "inbox add --type TYPE --title TITLE [--message MSG] [--meta k=v]... | inbox add -f draft.json",
		Description: `Stores a notification in the local cache and, unless the inbox is local only,
pushes it to the remote API. A failed push leaves the record marked unsynced.

Metadata values are parsed as JSON when possible (--meta count=3 stores a
number) and kept as strings otherwise.

With -f the draft is read as JSON:

  {"type": "system", "title": "Hello", "metadata": {"who": "world"}}`,
		Flags: []cli.Flag{
			cmd.input.Flag(),
			&cli.StringFlag{
				Name:        "type",
				Aliases:     []string{"t"},
				Usage:       "notification type",
				Value:       string(notification.TypeSystem),
				Destination: &cmd.typ,
			},
			&cli.StringFlag{
				Name:        "title",
				Usage:       "notification title",
				Destination: &cmd.title,
			},
			&cli.StringFlag{
				Name:        "message",
				Aliases:     []string{"m"},
				Usage:       "notification body; {name} placeholders are filled from metadata",
				Destination: &cmd.message,
			},
			&cli.StringFlag{
				Name:        "action-url",
				Usage:       "link opened by the notification",
				Destination: &cmd.actionURL,
			},
			&cli.StringSliceFlag{
				Name:        "meta",
				Usage:       "metadata entry as key=value (repeatable)",
				Destination: &cmd.meta,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output the created record as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *AddCmd) draft() (notification.Draft, error) {
	if cmd.input.Set() {
		if cmd.title != "" || cmd.message != "" || len(cmd.meta) > 0 {
			return notification.Draft{}, errors.New("--file cannot be combined with --title, --message or --meta")
		}
		return cmd.input.Read()
	}

	meta, err := parseMeta(cmd.meta)
	if err != nil {
		return notification.Draft{}, err
	}

	d := notification.Draft{
		Type:      notification.Type(cmd.typ),
		Title:     cmd.title,
		Message:   cmd.message,
		ActionURL: cmd.actionURL,
		Metadata:  meta,
	}
	if err := d.Validate(); err != nil {
		return notification.Draft{}, fmt.Errorf("invalid notification: %w", err)
	}
	return d, nil
}

func (cmd *AddCmd) run(ctx context.Context, c *cli.Command) error {
	d, err := cmd.draft()
	if err != nil {
		return err
	}

	svc, err := cmd.app.Service(ctx)
	if err != nil {
		return err
	}

	rec := svc.Create(ctx, d)
	svc.Wait()

	// Re-read so the output reflects the outcome of the push.
	if synced, ok := svc.Cache().Get(rec.ID); ok {
		rec = synced
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.NewLineWriter(out).Write(rec)
	}

	styled := isTerminal(out)
	msg := "created " + rec.ID
	if !rec.Synced {
		msg += " (not synced)"
	}
	_, _ = fmt.Fprintln(out, paint(styled, styles.SuccessStyle, msg))
	return nil
}

// parseMeta turns key=value pairs into metadata. Values that parse as JSON keep
// their JSON type.
func parseMeta(pairs []string) (notification.Metadata, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	meta := make(notification.Metadata, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --meta %q: expected key=value", pair)
		}

		var v notification.Value
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = notification.StringValue(raw)
		}
		meta[key] = v
	}
	return meta, nil
}
