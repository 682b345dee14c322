package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-isatty"
	"github.com/quadlang/quad/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var red = color.New(color.FgRed).SprintFunc()

// exitError carries the exit status of a program executed by `quadc run`.
type exitError struct {
	status int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.status)
}

func fatal(msg interface{}) {
	var s string
	switch msg := msg.(type) {
	case string:
		s = msg
	case error:
		s = msg.Error()
	default:
		s = fmt.Sprintf("%v", msg)
	}
	fmt.Fprintf(os.Stderr, "%s\n", red(s))
	os.Exit(1)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func useColor() bool {
	return !viper.GetBool("no-color") && isTerminal(os.Stderr)
}

// Reads global flags from Viper and adjusts the environment accordingly.
func processGlobalFlags() {
	if viper.GetBool("no-color") {
		color.NoColor = true
	}
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("log-level")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !useColor()}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// formatError renders compiler diagnostics with source excerpts. Errors
// that carry no position are returned as is.
func formatError(err error) string {
	formatter := errors.NewFormatter(useColor())

	if multiErr, ok := err.(interface {
		ToFormattedMultiple() []*errors.FormattedError
	}); ok {
		return formatter.FormatMultiple(multiErr.ToFormattedMultiple())
	}

	var merr *multierror.Error
	if errors.As(err, &merr) {
		var formatted []*errors.FormattedError
		for _, e := range merr.Errors {
			f, ok := e.(errors.FormattableError)
			if !ok {
				return err.Error()
			}
			formatted = append(formatted, f.ToFormatted())
		}
		return formatter.FormatMultiple(formatted)
	}

	if formattable, ok := err.(errors.FormattableError); ok {
		return formatter.Format(formattable.ToFormatted())
	}
	return err.Error()
}
