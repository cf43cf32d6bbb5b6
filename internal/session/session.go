// Package session runs a graphical session under the privileges of an authenticated account.
package session

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"syscall"
	"time"

	"hakurei.app/xdm/internal/auth"
	"hakurei.app/xdm/internal/config"
	"hakurei.app/xdm/internal/message"
	"hakurei.app/xdm/internal/setup"
)

const (
	// ExitSetup is the helper exit code when session parameters could not be received.
	ExitSetup = 122
	// ExitPrivilege is the helper exit code when the security context could not be applied.
	ExitPrivilege = 123
	// ExitExec is the helper exit code when the session command could not be executed.
	ExitExec = 127

	// DefaultShell is used for accounts without a login shell.
	DefaultShell = "/bin/sh"
)

// StartError is returned by [Supervisor.Start] if the session could not be started.
type StartError struct {
	// Step is "groups", "fork" or "setup".
	Step string
	Err  error
}

func (e *StartError) Unwrap() error { return e.Err }
func (e *StartError) Error() string { return "cannot " + e.Step + " session: " + e.Err.Error() }

// Message returns a user-facing error message.
func (e *StartError) Message() string {
	switch e.Step {
	case "groups":
		return "cannot resolve supplementary groups: " + e.Err.Error()
	case "fork":
		return "cannot fork to run session: " + e.Err.Error()
	default:
		return "cannot send session parameters: " + e.Err.Error()
	}
}

// Params is everything the session helper needs to become the session.
type Params struct {
	Uid    int      `cbor:"uid"`
	Gid    int      `cbor:"gid"`
	Groups []int    `cbor:"groups"`
	Home   string   `cbor:"home"`
	Argv   []string `cbor:"argv"`
	Env    []string `cbor:"env"`
	// Path is searched for Argv[0] if it contains no slash.
	Path string `cbor:"path"`
}

// Accounts resolves supplementary groups of an account.
type Accounts interface {
	Groups(name string, gid int) ([]int, error)
}

// Supervisor starts sessions for authenticated accounts.
type Supervisor struct {
	// Command is the window manager argv. If empty, the login shell runs Script.
	Command []string
	// Path is the search path of the session.
	Path string
	// Script is appended to the home directory to form the startup script.
	Script string
	// WaitDelay is how long a cancelled session has to exit before it is killed.
	WaitDelay time.Duration

	accounts Accounts
	msg      message.Msg
	k        syscallDispatcher
}

// New returns a [Supervisor] configured by c.
func New(c *config.SessionConfig, accounts Accounts, msg message.Msg) *Supervisor {
	return &Supervisor{
		Command:   c.Command,
		Path:      c.Path,
		Script:    c.Script,
		WaitDelay: c.WaitDelay,

		accounts: accounts,
		msg:      msg,
		k:        direct{},
	}
}

func loginShell(a *auth.Account) string {
	if a.Shell == "" {
		return DefaultShell
	}
	return a.Shell
}

// Argv returns the session command of a and whether it is driven by the login shell.
func (s *Supervisor) Argv(a *auth.Account) (argv []string, shell bool) {
	if len(s.Command) > 0 {
		return slices.Clone(s.Command), false
	}
	return []string{loginShell(a), a.Home + s.Script}, true
}

// Environ returns the complete environment of a session of a on display.
func (s *Supervisor) Environ(a *auth.Account, display string, shell bool) []string {
	env := []string{
		"HOME=" + a.Home,
		"DISPLAY=" + display,
		"LOGNAME=" + a.Username,
		"USER=" + a.Username,
		"SHELL=" + loginShell(a),
	}
	if shell {
		env = append(env, "PATH="+s.Path)
	}
	return env
}

// Params returns the helper parameters of a session of a on display.
func (s *Supervisor) Params(a *auth.Account, display string) (*Params, error) {
	groups, err := s.accounts.Groups(a.Username, a.Gid)
	if err != nil {
		return nil, &StartError{"groups", err}
	}
	argv, shell := s.Argv(a)
	return &Params{
		Uid:    a.Uid,
		Gid:    a.Gid,
		Groups: groups,
		Home:   a.Home,
		Argv:   argv,
		Env:    s.Environ(a, display, shell),
		Path:   s.Path,
	}, nil
}

// Handle is a running session.
type Handle struct {
	Pid     int
	Account *auth.Account

	cmd *exec.Cmd
	msg message.Msg
}

// Start starts a session for a on display. Cancelling ctx sends SIGTERM to the
// session and kills it if it is still running after WaitDelay.
func (s *Supervisor) Start(ctx context.Context, a *auth.Account, display string) (*Handle, error) {
	p, err := s.Params(a, display)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, s.k.executable(s.msg))
	cmd.Args = []string{helperName}
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = s.WaitDelay

	fd, enc, err := setup.Setup(&cmd.ExtraFiles)
	if err != nil {
		return nil, &StartError{"fork", err}
	}
	cmd.Env = []string{setupEnv + "=" + strconv.Itoa(fd)}
	if s.msg.IsVerbose() {
		cmd.Env = append(cmd.Env, verboseEnv+"=1")
	}

	err = s.k.start(cmd)
	// the helper holds its own copy of the read end
	_ = cmd.ExtraFiles[fd-3].Close()
	if err != nil {
		_ = enc.Close()
		return nil, &StartError{"fork", err}
	}

	h := &Handle{Pid: cmd.Process.Pid, Account: a, cmd: cmd, msg: s.msg}
	if err = enc.Encode(p); err != nil {
		_ = cmd.Process.Kill()
		_ = h.Wait()
		return nil, &StartError{"setup", err}
	}
	s.msg.GetLogger().Printf("session started (pid %d)", h.Pid)
	return h, nil
}

// Wait blocks until the session exits. The exit status of the session is
// logged and not returned. A non-nil error is returned only if the session
// could not be waited for.
func (h *Handle) Wait() error {
	err := h.cmd.Wait()
	h.msg.GetLogger().Printf("session finished (pid %d)", h.Pid)

	var exitError *exec.ExitError
	if !errors.As(err, &exitError) {
		return err
	}
	switch code := exitError.ExitCode(); code {
	case ExitSetup:
		h.msg.GetLogger().Printf("session %d did not receive its parameters", h.Pid)
	case ExitPrivilege:
		h.msg.GetLogger().Printf("session %d could not drop privileges to %s", h.Pid, h.Account.Username)
	case ExitExec:
		h.msg.GetLogger().Printf("session %d could not execute the session command", h.Pid)
	default:
		h.msg.Verbosef("session %d: %v", h.Pid, err)
	}
	return nil
}
