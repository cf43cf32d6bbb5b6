// Package message provides the logging and user-facing error reporting shared by xdm processes.
package message

import (
	"errors"
	"log"
	"os"
	"sync/atomic"
)

// Error is an error with a user-facing message.
type Error interface {
	// Message returns a user-facing error message.
	Message() string

	error
}

// GetMessage returns whether an error implements [Error], and the message if it does.
func GetMessage(err error) (string, bool) {
	var e Error
	if !errors.As(err, &e) || e == nil {
		return "", false
	}
	return e.Message(), true
}

// Msg is the output interface passed to every long-lived xdm component.
type Msg interface {
	// GetLogger returns the address of the underlying [log.Logger].
	GetLogger() *log.Logger

	// IsVerbose atomically loads the verbose state.
	IsVerbose() bool
	// SwapVerbose atomically stores a new verbose state and returns the previous value.
	SwapVerbose(verbose bool) bool
	// Verbose prints to the underlying logger if verbose is enabled.
	Verbose(v ...any)
	// Verbosef prints to the underlying logger if verbose is enabled.
	Verbosef(format string, v ...any)

	// Suspend causes the underlying logger to withhold output until Resume.
	Suspend() bool
	// Resume dumps withheld output and returns whether output was suspended.
	Resume() bool
	// BeforeExit is called before the process exits.
	BeforeExit()
}

// defaultMsg is the default implementation of [Msg].
type defaultMsg struct {
	verbose atomic.Bool

	logger *log.Logger
	*Suspendable
}

// New returns a [Msg] taking over the writer of logger.
// If logger is nil, the standard logger is used with the prefix "xdm: ".
func New(logger *log.Logger) Msg {
	if logger == nil {
		logger = log.New(log.Writer(), "xdm: ", 0)
	}

	s, ok := logger.Writer().(*Suspendable)
	if !ok {
		s = &Suspendable{Downstream: logger.Writer()}
		logger.SetOutput(s)
	}
	return &defaultMsg{logger: logger, Suspendable: s}
}

func (msg *defaultMsg) GetLogger() *log.Logger { return msg.logger }

func (msg *defaultMsg) IsVerbose() bool               { return msg.verbose.Load() }
func (msg *defaultMsg) SwapVerbose(verbose bool) bool { return msg.verbose.Swap(verbose) }
func (msg *defaultMsg) Verbose(v ...any) {
	if msg.verbose.Load() {
		msg.logger.Println(v...)
	}
}
func (msg *defaultMsg) Verbosef(format string, v ...any) {
	if msg.verbose.Load() {
		msg.logger.Printf(format, v...)
	}
}

// Resume calls [Suspendable.Resume] and prints a message if buffer was filled
// while suspended or encountered an error while dumping the buffer.
func (msg *defaultMsg) Resume() bool {
	resumed, dropped, _, err := msg.Suspendable.Resume()
	if err != nil {
		// probably going to fail as well, write it anyway
		msg.logger.Printf("cannot dump buffer on resume: %v", err)
	}
	if resumed && dropped > 0 {
		msg.logger.Printf("dropped %d bytes while output is suspended", dropped)
	}
	return resumed
}

// BeforeExit prints a message if called while output is suspended.
func (msg *defaultMsg) BeforeExit() {
	if msg.Resume() {
		msg.logger.Printf("beforeExit reached on suspended output")
	}
}

// PrintError prints the user-facing message of err if available,
// or falls back to printing fallback followed by err.
func PrintError(msg Msg, fallback string, err error) {
	if m, ok := GetMessage(err); ok {
		msg.GetLogger().Print(m)
		return
	}
	msg.GetLogger().Println(fallback, err)
}

// Fatal prints err via [PrintError] and exits with status 1.
func Fatal(msg Msg, fallback string, err error) {
	PrintError(msg, fallback, err)
	msg.BeforeExit()
	exit(1)
}

// exit provides [os.Exit] and is replaced in tests.
var exit = os.Exit
