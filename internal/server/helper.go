package server

import (
	"errors"
	"log"
	"os"
	"path"
	"strconv"
	"strings"
	"syscall"

	"hakurei.app/xdm/internal/message"
)

const (
	// helperName is the argv0 of the process exec-ing the X server.
	helperName = "xdm-xserver"
	// statusFd is the status pipe in the helper.
	statusFd = 3
)

// TryArgv0 runs the X server helper and never returns if the last element of argv0 is "xdm-xserver".
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
	helperEntrypoint(direct{}, msg, os.Args[1:])
}

// helperEntrypoint replaces the helper with the X server. SIGUSR1 is ignored
// across exec, which makes the server signal its parent once it is ready.
func helperEntrypoint(k syscallDispatcher, msg message.Msg, args []string) {
	status := k.newFile(statusFd, "status")
	fail := func(err error) {
		var errno syscall.Errno
		if !errors.As(err, &errno) {
			errno = syscall.ENOENT
		}
		if _, writeErr := status.Write([]byte(strconv.Itoa(int(errno)))); writeErr != nil {
			msg.GetLogger().Printf("cannot report exec failure: %v", writeErr)
		}
		msg.BeforeExit()
		k.exit(1)
	}

	if len(args) == 0 {
		fail(syscall.EINVAL)
		return
	}
	pathname := args[0]
	if !strings.Contains(pathname, "/") {
		var err error
		if pathname, err = k.lookPath(pathname); err != nil {
			fail(err)
			return
		}
	}

	k.ignore(syscall.SIGUSR1)
	k.closeOnExec(statusFd)
	if err := k.exec(pathname, args, k.environ()); err != nil {
		fail(err)
	}
}
