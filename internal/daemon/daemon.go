// Package daemon implements the xdm process lifecycle: detaching from the
// terminal, redirecting output, and the control loop serving logins.
package daemon

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
	"hakurei.app/xdm/internal/message"
)

// detachedEnv is set in the environment of the detached daemon.
const detachedEnv = "XDM_DETACHED"

// ErrPrivilege is returned by [CheckPrivilege] if the process is not running as root.
var ErrPrivilege = errors.New("this program must be run as root")

// LogError is returned by [RedirectLog] if the log file could not be installed.
type LogError struct {
	Path string
	Err  error
}

func (e *LogError) Unwrap() error   { return e.Err }
func (e *LogError) Error() string   { return "log " + e.Path + ": " + e.Err.Error() }
func (e *LogError) Message() string { return "cannot open log file " + e.Path + ": " + e.Err.Error() }

// DisableCoreDump clears the dumpable attribute of the process, which holds
// credentials while the login dialog is shown.
func DisableCoreDump() error { return unix.Prctl(unix.PR_SET_DUMPABLE, 0, 0, 0, 0) }

// CheckPrivilege returns [ErrPrivilege] if the effective user id is not 0.
func CheckPrivilege() error { return checkPrivilege(direct{}) }

func checkPrivilege(k syscallDispatcher) error {
	if k.geteuid() != 0 {
		return ErrPrivilege
	}
	return nil
}

// RedirectLog appends standard output and standard error to the file at pathname.
func RedirectLog(pathname string) error { return redirectLog(direct{}, pathname) }

func redirectLog(k syscallDispatcher, pathname string) error {
	f, err := k.openFile(pathname, os.O_WRONLY|os.O_APPEND|os.O_CREATE|syscall.O_CLOEXEC, 0600)
	if err != nil {
		return &LogError{pathname, err}
	}
	defer f.Close()

	fd := int(f.Fd())
	for _, target := range []int{1, 2} {
		if err = k.dup2(fd, target); err != nil {
			return &LogError{pathname, err}
		}
	}
	return nil
}

// Detach re-executes the daemon in a new session with standard streams on
// /dev/null and exits. It returns immediately in the detached process.
func Detach(msg message.Msg) error { return detach(direct{}, msg, os.Args) }

func detach(k syscallDispatcher, msg message.Msg, args []string) error {
	if _, ok := k.lookupEnv(detachedEnv); ok {
		return nil
	}

	cmd := exec.Command(k.executable(msg))
	cmd.Args = args
	cmd.Env = append(k.environ(), detachedEnv+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := k.start(cmd); err != nil {
		return err
	}
	msg.Verbose("detached from the controlling terminal")
	msg.BeforeExit()
	k.exit(0)
	return nil
}
