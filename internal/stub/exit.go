package stub

const (
	// PanicExit is a magic panic value treated as a simulated exit.
	PanicExit = 0xdeadbeef

	panicFailNow = 0xcafe0000 + iota
	panicFatal
	panicFatalf
)

// HandleExit must be deferred before calling with the stub.
func HandleExit() {
	r := recover()
	if r == PanicExit {
		return
	}
	if r != nil {
		panic(r)
	}
}

// HandleExitCode recovers a simulated exit carrying an exit code and stores it in code.
// It must be deferred before calling with the stub.
func HandleExitCode(code *int) {
	r := recover()
	if c, ok := r.(ExitCode); ok {
		*code = int(c)
		return
	}
	if r != nil {
		panic(r)
	}
}

// ExitCode is a panic value representing a simulated exit with a status code.
type ExitCode int
