package setup

import (
	"os"
	"sync"

	"hakurei.app/xdm/internal/message"
)

var (
	executable     string
	executableOnce sync.Once
)

func copyExecutable(msg message.Msg) {
	if name, err := os.Executable(); err != nil {
		msg.BeforeExit()
		msg.GetLogger().Fatalf("cannot read executable path: %v", err)
	} else {
		executable = name
	}
}

// MustExecutable returns the path to the running executable, terminating the program if it cannot be determined.
func MustExecutable(msg message.Msg) string {
	executableOnce.Do(func() { copyExecutable(msg) })
	return executable
}
