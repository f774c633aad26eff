// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package share implements the outbound share/clipboard boundary. Dispatch
// runs through an external command so the user can wire up whatever share
// mechanism the platform offers; the clipboard fallback covers platforms
// without one.
package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fieldsync/fieldsync/internal/logger"
	"github.com/fieldsync/fieldsync/internal/report"
)

// DefaultCancelExitCode is the exit code treated as a user cancellation.
// Interactive pickers conventionally exit with 130 when aborted.
const DefaultCancelExitCode = 130

// ErrNoClipboardTool is returned when no supported clipboard utility is
// installed.
var ErrNoClipboardTool = errors.New("no clipboard tool found (tried wl-copy, xclip, xsel)")

// CommandSharer pipes the share payload to a user-configured command. A
// zero exit status is a success, the configured cancel exit code maps to
// report.ErrCancelled, anything else is a dispatch failure.
type CommandSharer struct {
	name           string
	command        []string
	cancelExitCode int
	logger         *logger.Logger
}

// NewCommandSharer returns a CommandSharer running the given argv. The
// payload is written to the command's stdin.
func NewCommandSharer(command []string, log *logger.Logger) (*CommandSharer, error) {
	if len(command) == 0 {
		return nil, errors.New("share command must not be empty")
	}
	return &CommandSharer{
		name:           "command",
		command:        command,
		cancelExitCode: DefaultCancelExitCode,
		logger:         log,
	}, nil
}

// Name returns the name of the sharer.
func (s *CommandSharer) Name() string {
	return s.name
}

// Share dispatches the payload through the configured command.
func (s *CommandSharer) Share(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, s.command[0], s.command[1:]...)
	cmd.Stdin = strings.NewReader(text)
	stderr := bytes.NewBuffer(nil)
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == s.cancelExitCode {
		return report.ErrCancelled
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return fmt.Errorf("share command failed: %w: %s", err, msg)
	}
	return fmt.Errorf("share command failed: %w", err)
}

// ClipboardSharer copies the share payload to the system clipboard. It is
// the fallback when no share command is configured.
type ClipboardSharer struct {
	name   string
	logger *logger.Logger

	// lookPath is swappable for tests.
	lookPath func(file string) (string, error)
}

// clipboardTools lists supported clipboard utilities with their arguments,
// in preference order.
var clipboardTools = [][]string{
	{"wl-copy"},
	{"xclip", "-selection", "clipboard"},
	{"xsel", "--clipboard", "--input"},
}

// NewClipboardSharer returns a ClipboardSharer.
func NewClipboardSharer(log *logger.Logger) *ClipboardSharer {
	return &ClipboardSharer{
		name:     "clipboard",
		logger:   log,
		lookPath: exec.LookPath,
	}
}

// Name returns the name of the sharer.
func (s *ClipboardSharer) Name() string {
	return s.name
}

// Share copies the payload to the clipboard using the first available
// clipboard utility. Copying cannot be cancelled, it either succeeds or
// fails.
func (s *ClipboardSharer) Share(ctx context.Context, text string) error {
	for _, tool := range clipboardTools {
		path, err := s.lookPath(tool[0])
		if err != nil {
			continue
		}

		cmd := exec.CommandContext(ctx, path, tool[1:]...)
		cmd.Stdin = strings.NewReader(text)
		if err = cmd.Run(); err != nil {
			return fmt.Errorf("failed to copy to clipboard with %s: %w", tool[0], err)
		}
		return nil
	}
	return ErrNoClipboardTool
}
