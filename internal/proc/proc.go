// Package proc runs external commands with a deadline and captures their
// output. It is the only place codex-relay spawns subprocesses.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single command invocation.
	DefaultTimeout = 180 * time.Second
	// DefaultWaitDelay is how long Wait keeps draining pipes after a kill.
	DefaultWaitDelay = 2 * time.Second
)

// goos is a package-level var to allow test injection.
var goos = runtime.GOOS

// Output is what a finished command produced.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Error describes a failed invocation: spawn failure, non-zero exit or
// timeout.
type Error struct {
	Command string
	Reason  string
	Stderr  string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Command, e.Reason)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Runner executes commands. The zero value is usable and applies
// DefaultTimeout.
type Runner struct {
	Timeout   time.Duration
	WaitDelay time.Duration
	Logger    *slog.Logger
}

// NewRunner creates a Runner with the given timeout.
func NewRunner(timeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{Timeout: timeout, WaitDelay: DefaultWaitDelay, Logger: logger}
}

// Executable maps a bare command name to the form the platform expects.
// npm-installed CLIs such as codex are .cmd shims on Windows.
func Executable(name string) string {
	if goos == "windows" && filepath.Ext(name) == "" {
		return name + ".cmd"
	}
	return name
}

// Run executes exe with args and returns its captured output.
func (r *Runner) Run(ctx context.Context, exe string, args []string) (Output, error) {
	return r.RunStreamed(ctx, exe, args, nil)
}

// RunStreamed executes exe with args, calling onChunk with each piece of
// stdout as it arrives. The full stdout is still returned in Output.
// A panic inside onChunk is recovered and logged.
func (r *Runner) RunStreamed(ctx context.Context, exe string, args []string, onChunk func(string)) (Output, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := r.logger()
	logger.Debug("running command", "exe", exe, "args", len(args))

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr
	if onChunk == nil {
		cmd.Stdout = &stdout
	} else {
		cmd.Stdout = &chunkWriter{buf: &stdout, onChunk: onChunk, logger: logger}
	}

	start := time.Now()
	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}
	if out.Stderr != "" {
		logger.Debug("command stderr", "exe", exe, "stderr", out.Stderr)
	}

	if err != nil {
		perr := &Error{Command: exe, Stderr: out.Stderr, Err: err}
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			perr.Reason = fmt.Sprintf("timed out after %s", timeout)
			perr.Err = context.DeadlineExceeded
		case errors.As(err, &exitErr):
			perr.Reason = fmt.Sprintf("exited with code %d", exitErr.ExitCode())
		case ctx.Err() != nil:
			perr.Reason = "cancelled"
			perr.Err = ctx.Err()
		default:
			perr.Reason = "failed to start"
		}
		logger.Warn("command failed", "exe", exe, "reason", perr.Reason, "elapsed", time.Since(start))
		return out, perr
	}

	logger.Debug("command finished", "exe", exe, "bytes", len(out.Stdout), "elapsed", time.Since(start))
	return out, nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chunkWriter tees stdout into buf and forwards every write to onChunk.
type chunkWriter struct {
	buf     *bytes.Buffer
	onChunk func(string)
	logger  *slog.Logger
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	w.emit(string(p))
	return n, err
}

func (w *chunkWriter) emit(chunk string) {
	defer func() {
		if rec := recover(); rec != nil {
			w.logger.Warn("stdout chunk callback panicked", "panic", rec)
		}
	}()
	w.onChunk(chunk)
}
