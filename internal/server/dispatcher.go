package server

import (
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"hakurei.app/xdm/internal/message"
	"hakurei.app/xdm/internal/setup"
)

type osFile interface {
	Write(p []byte) (n int, err error)
	Close() error
}

// syscallDispatcher provides methods that make state-dependent system calls as part of their behaviour.
type syscallDispatcher interface {
	// executable provides [setup.MustExecutable].
	executable(msg message.Msg) string
	// start starts [os/exec.Cmd].
	start(c *exec.Cmd) error
	// signal signals the underlying process of [os/exec.Cmd].
	signal(c *exec.Cmd, sig os.Signal) error
	// notify provides [signal.Notify].
	notify(c chan<- os.Signal, sig ...os.Signal)
	// stop provides [signal.Stop].
	stop(c chan<- os.Signal)
	// ignore provides [signal.Ignore].
	ignore(sig ...os.Signal)

	// newFile provides [os.NewFile].
	newFile(fd uintptr, name string) osFile
	// closeOnExec provides [syscall.CloseOnExec].
	closeOnExec(fd int)
	// lookPath provides [exec.LookPath].
	lookPath(file string) (string, error)
	// environ provides [os.Environ].
	environ() []string
	// exec provides [syscall.Exec].
	exec(argv0 string, argv, envv []string) error
	// exit provides [os.Exit].
	exit(code int)
}

// direct implements syscallDispatcher on the current kernel.
type direct struct{}

func (direct) executable(msg message.Msg) string           { return setup.MustExecutable(msg) }
func (direct) start(c *exec.Cmd) error                     { return c.Start() }
func (direct) signal(c *exec.Cmd, sig os.Signal) error     { return c.Process.Signal(sig) }
func (direct) notify(c chan<- os.Signal, sig ...os.Signal) { signal.Notify(c, sig...) }
func (direct) stop(c chan<- os.Signal)                     { signal.Stop(c) }
func (direct) ignore(sig ...os.Signal)                     { signal.Ignore(sig...) }

func (direct) newFile(fd uintptr, name string) osFile { return os.NewFile(fd, name) }
func (direct) closeOnExec(fd int)                     { syscall.CloseOnExec(fd) }
func (direct) lookPath(file string) (string, error)   { return exec.LookPath(file) }
func (direct) environ() []string                      { return os.Environ() }

func (direct) exec(argv0 string, argv, envv []string) error {
	return syscall.Exec(argv0, argv, envv)
}
func (direct) exit(code int) { os.Exit(code) }
