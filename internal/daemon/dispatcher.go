package daemon

import (
	"context"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"
	"hakurei.app/xdm/internal/auth"
	"hakurei.app/xdm/internal/config"
	"hakurei.app/xdm/internal/message"
	"hakurei.app/xdm/internal/server"
	"hakurei.app/xdm/internal/setup"
	"hakurei.app/xdm/internal/xcb"
)

// syscallDispatcher provides methods that make state-dependent system calls as part of their behaviour.
type syscallDispatcher interface {
	// geteuid provides [os.Geteuid].
	geteuid() int
	// lookupEnv provides [os.LookupEnv].
	lookupEnv(key string) (string, bool)
	// environ provides [os.Environ].
	environ() []string
	// executable provides [setup.MustExecutable].
	executable(msg message.Msg) string
	// start starts [os/exec.Cmd].
	start(c *exec.Cmd) error
	// openFile provides [os.OpenFile].
	openFile(name string, flag int, perm os.FileMode) (*os.File, error)
	// dup2 provides [unix.Dup2].
	dup2(oldfd, newfd int) error
	// exit provides [os.Exit].
	exit(code int)

	// startServer provides [server.Start].
	startServer(ctx context.Context, command []string, timeout time.Duration, msg message.Msg) (*server.Handle, error)
	// terminateServer provides [server.Terminate].
	terminateServer(h *server.Handle) error
	// connect provides [xcb.Connect].
	connect(display string) (Display, error)
	// softReset provides [server.SoftReset].
	softReset(d server.Display) (int, error)
	// greeter returns the [Greeter] presenting the login dialog on conn.
	greeter(conn Display, c *config.Config, msg message.Msg) Greeter
	// sessions returns the [Launcher] of sessions configured by c.
	sessions(c *config.Config, msg message.Msg) Launcher
	// after provides [time.After].
	after(d time.Duration) <-chan time.Time
}

// direct implements syscallDispatcher on the current kernel.
type direct struct{}

func (direct) geteuid() int                        { return os.Geteuid() }
func (direct) lookupEnv(key string) (string, bool) { return os.LookupEnv(key) }
func (direct) environ() []string                   { return os.Environ() }
func (direct) executable(msg message.Msg) string   { return setup.MustExecutable(msg) }
func (direct) start(c *exec.Cmd) error             { return c.Start() }
func (direct) openFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}
func (direct) dup2(oldfd, newfd int) error { return unix.Dup2(oldfd, newfd) }
func (direct) exit(code int)               { os.Exit(code) }

func (direct) startServer(ctx context.Context, command []string, timeout time.Duration, msg message.Msg) (*server.Handle, error) {
	return server.Start(ctx, command, timeout, msg)
}
func (direct) terminateServer(h *server.Handle) error { return server.Terminate(h) }

func (direct) connect(display string) (Display, error) {
	conn, err := xcb.Connect(display)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (direct) softReset(d server.Display) (int, error) { return server.SoftReset(d) }

func (direct) greeter(conn Display, c *config.Config, msg message.Msg) Greeter {
	return &dialogGreeter{
		conn:     conn,
		c:        &c.Dialog,
		accounts: auth.New(c.Accounts.Passwd, c.Accounts.Shadow, c.Accounts.Group, msg),
		msg:      msg,
	}
}

func (direct) sessions(c *config.Config, msg message.Msg) Launcher {
	return supervisor{newSupervisor(c, msg)}
}

func (direct) after(d time.Duration) <-chan time.Time { return time.After(d) }
