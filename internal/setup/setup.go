// Package setup passes parameters from xdm to the helper processes it re-executes itself as.
//
// Parameters are encoded as CBOR and written to a pipe inherited by the
// helper. The helper locates the read end through an environment variable.
package setup

import (
	"errors"
	"os"
	"strconv"
	"syscall"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrReceiveEnv is returned by [Receive] if the environment variable is not set.
	ErrReceiveEnv = errors.New("environment variable not set")
	// ErrFdFormat is returned by [Receive] if the environment variable does not hold a file descriptor.
	ErrFdFormat = errors.New("bad file descriptor representation")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic("setup: CBOR encoder initialization failed: " + err.Error())
	}
	if decMode, err = (cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}).DecMode(); err != nil {
		panic("setup: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encoder writes setup parameters to the pipe and closes it.
type Encoder struct {
	w *os.File
}

// Encode writes v and closes the write end of the pipe.
// Encode must only be called after the helper is started.
func (e *Encoder) Encode(v any) error {
	err := encMode.NewEncoder(e.w).Encode(v)
	if closeErr := e.w.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Close closes the write end of the pipe without sending anything.
func (e *Encoder) Close() error { return e.w.Close() }

// Setup appends the read end of a pipe for setup params transmission and returns its fd in the child.
func Setup(extraFiles *[]*os.File) (int, *Encoder, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return -1, nil, err
	}
	fd := 3 + len(*extraFiles)
	*extraFiles = append(*extraFiles, r)
	return fd, &Encoder{w}, nil
}

// Receive retrieves the setup fd named by the environment variable key and decodes params into e.
// The fd is stored in fdp if it is not nil.
func Receive(key string, e any, fdp *uintptr) (func() error, error) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return nil, ErrReceiveEnv
	}
	fd, err := strconv.Atoi(s)
	if err != nil {
		return nil, ErrFdFormat
	}
	if fd < 0 {
		return nil, syscall.EBADF
	}

	f := os.NewFile(uintptr(fd), "setup")
	if f == nil {
		return nil, syscall.EBADF
	}
	if fdp != nil {
		*fdp = f.Fd()
	}
	return f.Close, decMode.NewDecoder(f).Decode(e)
}
