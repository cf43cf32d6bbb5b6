package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"hakurei.app/xdm/internal/config"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	c := config.Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: error = %v", err)
	}
	if want := []string{"/usr/bin/Xorg", ":3", "vt5"}; !reflect.DeepEqual(c.Server.Command, want) {
		t.Errorf("Server.Command: %q, want %q", c.Server.Command, want)
	}
	if c.Server.Timeout != 15*time.Second {
		t.Errorf("Server.Timeout: %v", c.Server.Timeout)
	}
	if c.Session.Path != "/usr/local/bin:/usr/X11R6/bin:/usr/bin:/bin" {
		t.Errorf("Session.Path: %q", c.Session.Path)
	}
	if c.Session.Script != "/.xinitrc" {
		t.Errorf("Session.Script: %q", c.Session.Script)
	}
	if c.ResetDelay != 2*time.Second || c.Dialog.FailDelay != time.Second {
		t.Errorf("delays: %v %v", c.ResetDelay, c.Dialog.FailDelay)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		data   string
		want   func(c *config.Config)
		errStr string
	}{
		{"empty", "", func(*config.Config) {}, ""},

		{"merge", `
server:
  timeout: 2s
session:
  command: [/usr/bin/twm]
dialog:
  greet: hello
`, func(c *config.Config) {
			c.Server.Timeout = 2 * time.Second
			c.Session.Command = []string{"/usr/bin/twm"}
			c.Dialog.Greet = "hello"
		}, ""},

		{"replace command", `
server:
  command: [/usr/bin/Xvfb, ":9"]
`, func(c *config.Config) {
			c.Server.Command = []string{"/usr/bin/Xvfb", ":9"}
		}, ""},

		{"unknown field", "nonexistent: true\n", nil,
			"yaml: unmarshal errors:\n  line 1: field nonexistent not found in type config.Config"},

		{"invalid timeout", "server: {timeout: 0s}\n", nil,
			"invalid server.timeout: must be positive"},

		{"empty command", "server: {command: []}\n", nil,
			"invalid server.command: must not be empty"},

		{"invalid dimensions", "dialog: {width: -1}\n", nil,
			"invalid dialog: dimensions must be positive"},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := config.Default()
			err := got.Decode(strings.NewReader(tc.data))
			if tc.errStr != "" {
				if err == nil || err.Error() != tc.errStr {
					t.Fatalf("Decode: error = %v, want %q", err, tc.errStr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: error = %v", err)
			}

			want := config.Default()
			tc.want(want)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Decode:\n%#v\nwant\n%#v", got, want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("missing explicit", func(t *testing.T) {
		t.Parallel()

		pathname := filepath.Join(t.TempDir(), "nonexistent.yaml")
		_, err := config.Load(pathname)
		var loadError *config.LoadError
		if !errors.As(err, &loadError) || loadError.Path != pathname || !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Load: error = %v", err)
		}
	})

	t.Run("file", func(t *testing.T) {
		t.Parallel()

		pathname := filepath.Join(t.TempDir(), "xdm.yaml")
		if err := os.WriteFile(pathname, []byte("log: \"\"\nreset_delay: 5s\n"), 0600); err != nil {
			t.Fatal(err)
		}
		got, err := config.Load(pathname)
		if err != nil {
			t.Fatalf("Load: error = %v", err)
		}
		want := config.Default()
		want.Log = ""
		want.ResetDelay = 5 * time.Second
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Load: %#v, want %#v", got, want)
		}
	})

	t.Run("invalid message", func(t *testing.T) {
		t.Parallel()

		pathname := filepath.Join(t.TempDir(), "xdm.yaml")
		if err := os.WriteFile(pathname, []byte("dialog: {font_size: 0}\n"), 0600); err != nil {
			t.Fatal(err)
		}
		_, err := config.Load(pathname)
		var loadError *config.LoadError
		if !errors.As(err, &loadError) {
			t.Fatalf("Load: error = %v", err)
		}
		if want := "configuration " + pathname + ": invalid dialog.font_size: must be positive"; loadError.Message() != want {
			t.Errorf("Message: %q, want %q", loadError.Message(), want)
		}
	})
}
