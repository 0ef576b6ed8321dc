package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/inbox/internal/core/config"
	"github.com/colonyops/inbox/internal/core/styles"
	"github.com/colonyops/inbox/pkg/iojson"
	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "inbox config validate [options]",
				Description: "Validates the configuration file and environment overrides, then lists non-fatal warnings.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

type validationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type validationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []validationError          `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

func validate(cfg *config.Config, configPath string) validationResult {
	res := validationResult{Valid: true, Warnings: cfg.Warnings()}

	err := cfg.ValidateDeep(configPath)
	if err == nil {
		return res
	}

	res.Valid = false
	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			res.Errors = append(res.Errors, validationError{Field: fe.Field, Message: fe.Err.Error()})
		}
		return res
	}
	res.Errors = append(res.Errors, validationError{Message: err.Error()})
	return res
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	result := validate(cmd.flags.Config, cmd.flags.ConfigPath)

	out := c.Root().Writer
	if cmd.format == "json" {
		if err := iojson.WriteWith(out, c.Root().ErrWriter, result); err != nil {
			return err
		}
		if !result.Valid {
			return cli.Exit("", 1)
		}
		return nil
	}

	styled := isTerminal(out)

	for _, warn := range result.Warnings {
		_, _ = fmt.Fprintln(out, paint(styled, styles.WarningStyle, "warning ")+warn.Category+": "+warn.Message)
		if warn.Item != "" {
			_, _ = fmt.Fprintf(out, "  Item: %s\n", warn.Item)
		}
	}

	for _, e := range result.Errors {
		prefix := paint(styled, styles.ErrorStyle, "error ")
		if e.Field != "" {
			_, _ = fmt.Fprintf(out, "%s%s: %s\n", prefix, e.Field, e.Message)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s%s\n", prefix, e.Message)
	}

	_, _ = fmt.Fprintln(out)
	if result.Valid {
		_, _ = fmt.Fprintln(out, paint(styled, styles.SuccessStyle, "Configuration is valid"))
		return nil
	}

	_, _ = fmt.Fprintln(out, paint(styled, styles.ErrorStyle, fmt.Sprintf("%d error(s) found", len(result.Errors))))
	return cli.Exit("", 1)
}
