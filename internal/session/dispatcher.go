package session

import (
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
	"hakurei.app/xdm/internal/message"
	"hakurei.app/xdm/internal/setup"
)

// syscallDispatcher provides methods that make state-dependent system calls as part of their behaviour.
type syscallDispatcher interface {
	// executable provides [setup.MustExecutable].
	executable(msg message.Msg) string
	// start starts [os/exec.Cmd].
	start(c *exec.Cmd) error

	// lockOSThread provides [runtime.LockOSThread].
	lockOSThread()
	// receive provides [setup.Receive].
	receive(key string, e any, fdp *uintptr) (closeFunc func() error, err error)
	// setresgid provides [unix.Setresgid] with all three ids set to gid.
	setresgid(gid int) error
	// setgroups provides [unix.Setgroups].
	setgroups(gids []int) error
	// setresuid provides [unix.Setresuid] with all three ids set to uid.
	setresuid(uid int) error
	// chdir provides [os.Chdir].
	chdir(dir string) error
	// lookPath provides [exec.LookPath].
	lookPath(file string) (string, error)
	// exec provides [syscall.Exec].
	exec(argv0 string, argv, envv []string) error
	// exit provides [os.Exit].
	exit(code int)
}

// direct implements syscallDispatcher on the current kernel.
type direct struct{}

func (direct) executable(msg message.Msg) string { return setup.MustExecutable(msg) }
func (direct) start(c *exec.Cmd) error           { return c.Start() }

func (direct) lockOSThread() { runtime.LockOSThread() }
func (direct) receive(key string, e any, fdp *uintptr) (func() error, error) {
	return setup.Receive(key, e, fdp)
}
func (direct) setresgid(gid int) error              { return unix.Setresgid(gid, gid, gid) }
func (direct) setgroups(gids []int) error           { return unix.Setgroups(gids) }
func (direct) setresuid(uid int) error              { return unix.Setresuid(uid, uid, uid) }
func (direct) chdir(dir string) error               { return os.Chdir(dir) }
func (direct) lookPath(file string) (string, error) { return exec.LookPath(file) }
func (direct) exec(argv0 string, argv, envv []string) error {
	return syscall.Exec(argv0, argv, envv)
}
func (direct) exit(code int) { os.Exit(code) }
