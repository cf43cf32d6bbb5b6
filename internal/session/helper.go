package session

import (
	"log"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"hakurei.app/xdm/internal/message"
)

const (
	// helperName is the argv0 of the process becoming the session.
	helperName = "xdm-session"

	// setupEnv names the setup pipe fd in the helper environment.
	setupEnv = "XDM_SESSION_SETUP"
	// verboseEnv enables verbose output in the helper if set.
	verboseEnv = "XDM_VERBOSE"
)

// PrivilegeError describes a failed step of the privilege drop.
type PrivilegeError struct {
	// Step is one of "setresgid", "setgroups", "setresuid" or "chdir".
	Step string
	Err  error
}

func (e *PrivilegeError) Unwrap() error   { return e.Err }
func (e *PrivilegeError) Error() string   { return e.Step + ": " + e.Err.Error() }
func (e *PrivilegeError) Message() string { return "cannot drop privileges: " + e.Error() }

// TryArgv0 runs the session helper and never returns if the last element of argv0 is "xdm-session".
// If a nil msg is passed, the system logger is used instead.
func TryArgv0(msg message.Msg) {
	if len(os.Args) == 0 || path.Base(os.Args[0]) != helperName {
		return
	}
	if msg == nil {
		log.SetPrefix(helperName + ": ")
		log.SetFlags(0)
		msg = message.New(log.Default())
	}
	if _, ok := os.LookupEnv(verboseEnv); ok {
		msg.SwapVerbose(true)
	}
	helperEntrypoint(direct{}, msg)
}

// applySecurityContext switches the calling thread to the credentials in p and
// enters the home directory. Steps run in a fixed order and the first failure
// stops the sequence, so the user id is never changed after a failed group change.
func applySecurityContext(k syscallDispatcher, p *Params) error {
	if err := k.setresgid(p.Gid); err != nil {
		return &PrivilegeError{"setresgid", err}
	}
	if err := k.setgroups(p.Groups); err != nil {
		return &PrivilegeError{"setgroups", err}
	}
	if err := k.setresuid(p.Uid); err != nil {
		return &PrivilegeError{"setresuid", err}
	}
	if err := k.chdir(p.Home); err != nil {
		return &PrivilegeError{"chdir", err}
	}
	return nil
}

// resolve searches searchPath for file if it contains no slash.
func resolve(k syscallDispatcher, file, searchPath string) (string, error) {
	if strings.Contains(file, "/") {
		return file, nil
	}
	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" {
			continue
		}
		if pathname, err := k.lookPath(filepath.Join(dir, file)); err == nil {
			return pathname, nil
		}
	}
	return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
}

func helperEntrypoint(k syscallDispatcher, msg message.Msg) {
	// credentials are changed on this thread and inherited by exec
	k.lockOSThread()

	var p Params
	if closeSetup, err := k.receive(setupEnv, &p, nil); err != nil {
		msg.GetLogger().Printf("cannot receive session parameters: %v", err)
		msg.BeforeExit()
		k.exit(ExitSetup)
		return
	} else if err = closeSetup(); err != nil {
		msg.Verbosef("cannot close setup pipe: %v", err)
	}
	if len(p.Argv) == 0 {
		msg.GetLogger().Print("empty session command")
		msg.BeforeExit()
		k.exit(ExitSetup)
		return
	}

	if err := applySecurityContext(k, &p); err != nil {
		message.PrintError(msg, "cannot drop privileges:", err)
		msg.BeforeExit()
		k.exit(ExitPrivilege)
		return
	}
	msg.Verbosef("running as %d:%d in %s", p.Uid, p.Gid, p.Home)

	pathname, err := resolve(k, p.Argv[0], p.Path)
	if err == nil {
		if err = k.exec(pathname, p.Argv, p.Env); err == nil {
			return
		}
	}
	msg.GetLogger().Printf("cannot execute %s: %v", p.Argv[0], err)
	msg.BeforeExit()
	k.exit(ExitExec)
}
