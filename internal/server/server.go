// Package server supervises the X server process.
package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"hakurei.app/xdm/internal/message"
)

const (
	// PollInterval is the granularity at which readiness is reported relative to the timeout.
	PollInterval = 50 * time.Millisecond

	// DefaultDisplay is used when the server command names no display.
	DefaultDisplay = ":0"
)

// ErrStartTimeout is returned by [Start] if the server does not signal readiness in time.
var ErrStartTimeout = errors.New("server startup timed out")

// TimeoutError is returned by [Start] when Deadline passed before readiness. It matches [ErrStartTimeout].
type TimeoutError struct{ Deadline time.Time }

func (e *TimeoutError) Error() string        { return ErrStartTimeout.Error() }
func (e *TimeoutError) Is(target error) bool { return target == ErrStartTimeout }

// Message returns a user-facing error message.
func (e *TimeoutError) Message() string { return "server startup timed out" }

// StartError is returned by [Start] if the server process could not be created or executed.
type StartError struct {
	// Step is "fork" or "exec".
	Step string
	Err  error
}

func (e *StartError) Unwrap() error { return e.Err }
func (e *StartError) Error() string { return "cannot " + e.Step + " x server: " + e.Err.Error() }

// Message returns a user-facing error message.
func (e *StartError) Message() string {
	if e.Step == "exec" {
		return "server execution failed: " + e.Err.Error()
	}
	return "cannot fork to run x server: " + e.Err.Error()
}

// Handle is a running X server.
type Handle struct {
	Pid     int
	Display string
	// Ready is set once the server signalled readiness.
	Ready    bool
	Deadline time.Time

	cmd  *exec.Cmd
	done chan struct{}
	k    syscallDispatcher
}

// Exited is closed once the server process has been reaped.
func (h *Handle) Exited() <-chan struct{} { return h.done }

// DisplayName returns the first argument of command beginning with ':', or [DefaultDisplay].
func DisplayName(command []string) string {
	for _, arg := range command {
		if strings.HasPrefix(arg, ":") {
			return arg
		}
	}
	return DefaultDisplay
}

// Start starts the X server and waits until it signals readiness, timeout elapses or ctx is done.
func Start(ctx context.Context, command []string, timeout time.Duration, msg message.Msg) (*Handle, error) {
	return start(ctx, direct{}, command, timeout, msg)
}

func start(ctx context.Context, k syscallDispatcher, command []string, timeout time.Duration, msg message.Msg) (*Handle, error) {
	if len(command) == 0 {
		return nil, &StartError{"exec", syscall.EINVAL}
	}

	// registered before the server exists so an early signal is not lost
	ready := make(chan os.Signal, 1)
	k.notify(ready, syscall.SIGUSR1)
	defer k.stop(ready)

	r, w, err := os.Pipe()
	if err != nil {
		return nil, &StartError{"fork", err}
	}
	h := &Handle{Display: DisplayName(command), done: make(chan struct{}), k: k}
	h.cmd = exec.Command(k.executable(msg))
	h.cmd.Args = append([]string{helperName}, command...)
	h.cmd.ExtraFiles = []*os.File{w}
	h.cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}

	err = k.start(h.cmd)
	if closeErr := w.Close(); closeErr != nil {
		msg.Verbosef("cannot close status pipe: %v", closeErr)
	}
	if err != nil {
		_ = r.Close()
		return nil, &StartError{"fork", err}
	}
	h.Pid = h.cmd.Process.Pid
	h.Deadline = time.Now().Add(timeout)
	msg.Verbosef("x server process %d started", h.Pid)

	go func() {
		if err := h.cmd.Wait(); err != nil {
			msg.Verbosef("x server process %d: %v", h.Pid, err)
		}
		close(h.done)
	}()

	// the helper reports exec failure as a decimal errno, success closes the pipe empty
	status := make(chan error, 1)
	go func() {
		defer r.Close()
		data, err := io.ReadAll(r)
		if err == nil && len(data) > 0 {
			if n, convErr := strconv.Atoi(string(data)); convErr != nil {
				err = convErr
			} else {
				err = syscall.Errno(n)
			}
		}
		status <- err
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ready:
			h.Ready = true
			// a regenerating server signals again
			k.ignore(syscall.SIGUSR1)
			msg.GetLogger().Printf("x server started (display %s, pid %d)", h.Display, h.Pid)
			return h, nil

		case err = <-status:
			if err != nil {
				return nil, &StartError{"exec", err}
			}
			status = nil

		case <-timer.C:
			h.kill(msg)
			return nil, &TimeoutError{h.Deadline}

		case <-ctx.Done():
			h.kill(msg)
			return nil, ctx.Err()
		}
	}
}

func (h *Handle) kill(msg message.Msg) {
	if err := Terminate(h); err != nil && !errors.Is(err, os.ErrProcessDone) {
		msg.Verbosef("cannot terminate x server: %v", err)
	}
}

// Terminate sends SIGTERM to the server without waiting for it.
func Terminate(h *Handle) error {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return os.ErrProcessDone
	}
	return h.k.signal(h.cmd, syscall.SIGTERM)
}
