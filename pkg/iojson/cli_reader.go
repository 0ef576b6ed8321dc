package iojson

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// FileReader reads a T from the --file flag, or from stdin when the flag is
// empty. If T has a Validate() error method it is called after decoding.
type FileReader[T any] struct {
	fileFlagValue string

	// Stdin overrides os.Stdin; a non-nil Stdin is never treated as a terminal.
	Stdin io.Reader
}

// Flag returns the --file/-f flag bound to fr.
func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "path to JSON file (use - for stdin)",
		Destination: &fr.fileFlagValue,
	}
}

// Set reports whether --file was given.
func (fr *FileReader[T]) Set() bool {
	return fr.fileFlagValue != ""
}

// Read decodes the input, rejecting unknown fields.
func (fr *FileReader[T]) Read() (T, error) {
	var reader io.Reader
	var input T

	switch {
	case fr.fileFlagValue != "" && fr.fileFlagValue != "-":
		f, err := os.Open(fr.fileFlagValue)
		if err != nil {
			return input, fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		reader = f
	case fr.Stdin != nil:
		reader = fr.Stdin
	default:
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return input, fmt.Errorf("no input provided (stdin is a terminal); use -f flag or pipe JSON input")
		}
		reader = os.Stdin
	}

	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		return input, fmt.Errorf("decode JSON: %w", err)
	}

	if v, ok := any(input).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return input, fmt.Errorf("invalid input: %w", err)
		}
	}

	return input, nil
}
