package setup_test

import (
	"errors"
	"os"
	"reflect"
	"strconv"
	"syscall"
	"testing"

	"hakurei.app/xdm/internal/setup"
)

func TestReceiveErrors(t *testing.T) {
	t.Run("not set", func(t *testing.T) {
		const key = "XDM_TEST_ENV_NOT_SET"
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("Unsetenv: error = %v", err)
		}

		if _, err := setup.Receive(key, nil, nil); !errors.Is(err, setup.ErrReceiveEnv) {
			t.Errorf("Receive: error = %v, want %v", err, setup.ErrReceiveEnv)
		}
	})

	t.Run("format", func(t *testing.T) {
		const key = "XDM_TEST_ENV_FORMAT"
		t.Setenv(key, "")

		if _, err := setup.Receive(key, nil, nil); !errors.Is(err, setup.ErrFdFormat) {
			t.Errorf("Receive: error = %v, want %v", err, setup.ErrFdFormat)
		}
	})

	t.Run("range", func(t *testing.T) {
		const key = "XDM_TEST_ENV_RANGE"
		t.Setenv(key, "-1")

		if _, err := setup.Receive(key, nil, nil); !errors.Is(err, syscall.EBADF) {
			t.Errorf("Receive: error = %v, want %v", err, syscall.EBADF)
		}
	})
}

func TestSetupReceive(t *testing.T) {
	const key = "XDM_TEST_SETUP_RECEIVE"

	type payload struct {
		Args    []string
		Uid     int
		Verbose bool
	}
	want := payload{[]string{"/bin/sh", "/home/alice/.xinitrc"}, 1000, true}

	extraFiles := make([]*os.File, 0, 1)
	fd, encoder, err := setup.Setup(&extraFiles)
	if err != nil {
		t.Fatalf("Setup: error = %v", err)
	}
	if fd != 3 {
		t.Fatalf("Setup: fd = %d, want 3", fd)
	}
	if len(extraFiles) != 1 {
		t.Fatalf("extraFiles: len = %d, want 1", len(extraFiles))
	}

	encoderDone := make(chan error, 1)
	go func() { encoderDone <- encoder.Encode(want) }()

	dupFd, err := syscall.Dup(int(extraFiles[0].Fd()))
	if err != nil {
		t.Fatalf("Dup: error = %v", err)
	}
	syscall.CloseOnExec(dupFd)
	t.Setenv(key, strconv.Itoa(dupFd))
	if err = extraFiles[0].Close(); err != nil {
		t.Fatalf("Close: error = %v", err)
	}

	var (
		got   payload
		gotFd uintptr
	)
	closeFile, err := setup.Receive(key, &got, &gotFd)
	if err != nil {
		t.Fatalf("Receive: error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Receive: %#v, want %#v", got, want)
	}
	if int(gotFd) != dupFd {
		t.Errorf("Receive: fd = %d, want %d", gotFd, dupFd)
	}

	if err = <-encoderDone; err != nil {
		t.Errorf("Encode: error = %v", err)
	}
	if err = closeFile(); err != nil {
		t.Errorf("Close: error = %v", err)
	}
}
