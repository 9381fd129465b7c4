package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/opd-ai/go-dockbar/internal/bar"
	"github.com/opd-ai/go-dockbar/internal/text"
)

// commandErrorText replaces output that cannot be shown.
const commandErrorText = "error"

// Command runs a shell command and shows the first line of its output.
// With a zero interval the command runs once. A periodic command that keeps
// exiting with a failure is paused by a breaker instead of being spawned on
// every tick.
type Command struct {
	attrs    text.Attributes
	command  string
	interval time.Duration
	logger   *slog.Logger
	breaker  *breaker

	run   func(ctx context.Context, command string) ([]byte, error)
	after func(time.Duration) <-chan time.Time

	runs int
}

// NewCommand creates a command widget running command through sh -c.
func NewCommand(attrs text.Attributes, command string, interval time.Duration, logger *slog.Logger) *Command {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Command{
		attrs:    attrs,
		command:  command,
		interval: interval,
		logger:   logger,
		breaker:  newBreaker(DefaultFailureThreshold, DefaultBreakerCooldown),
		run:      runShell,
		after:    time.After,
	}
}

func runShell(ctx context.Context, command string) ([]byte, error) {
	return exec.CommandContext(ctx, "sh", "-c", command).Output()
}

// Next implements bar.Producer.
func (c *Command) Next(ctx context.Context) (text.Block, error) {
	for {
		if c.runs > 0 {
			if c.interval <= 0 {
				return nil, bar.ErrEndOfStream
			}
			if err := sleep(ctx, c.after, c.interval); err != nil {
				return nil, err
			}
		}
		c.runs++
		if !c.breaker.allow() {
			continue
		}

		out, err := c.run(ctx, c.command)
		if err == nil {
			c.breaker.success()
			return c.attrs.Block(firstLine(out)), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %q: %w", c.command, err)
		}
		if c.breaker.failure() && c.interval > 0 {
			c.logger.Warn("command keeps failing, pausing it",
				"command", c.command, "failures", c.breaker.failures, "pause", c.breaker.cooldown)
		} else {
			c.logger.Debug("command exited with failure", "command", c.command, "exit_code", exitErr.ExitCode())
		}
		if len(out) == 0 {
			return c.attrs.Block(commandErrorText), nil
		}
		return c.attrs.Block(firstLine(out)), nil
	}
}

// firstLine returns the trimmed first non-empty line of out, or "error"
// when that line is not valid UTF-8.
func firstLine(out []byte) string {
	s := strings.TrimLeft(string(out), "\r\n")
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	if !utf8.ValidString(s) {
		return commandErrorText
	}
	return strings.TrimSpace(s)
}
