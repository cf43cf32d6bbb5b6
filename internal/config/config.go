// Package config holds the load-time configuration of xdm and xds.
//
// Compiled defaults are returned by [Default]. An optional YAML file
// overrides any subset of fields; fields absent from the file keep their
// default value.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when none is specified.
const DefaultPath = "/etc/xdm.yaml"

// Config is the complete configuration surface.
type Config struct {
	// Console receives log output when no log file is configured.
	Console string `yaml:"console"`
	// Log is the log file opened after detaching. Empty selects Console.
	Log string `yaml:"log"`

	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Accounts AccountsConfig `yaml:"accounts"`
	Dialog   DialogConfig   `yaml:"dialog"`

	// ResetDelay is the pause after each soft reset.
	ResetDelay time.Duration `yaml:"reset_delay"`
}

// ServerConfig configures the X server process.
type ServerConfig struct {
	// Command is the server argv. The first argument starting with ':'
	// names the display.
	Command []string `yaml:"command"`
	// Timeout bounds the wait for the server readiness signal.
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig configures the user session.
type SessionConfig struct {
	// Command is the window manager argv. When empty, the account's shell
	// runs Home+Script and PATH is set to Path.
	Command []string `yaml:"command"`
	Path    string   `yaml:"path"`
	Script  string   `yaml:"script"`
	// WaitDelay is how long a terminated session gets before SIGKILL.
	WaitDelay time.Duration `yaml:"wait_delay"`
}

// AccountsConfig names the account database files.
type AccountsConfig struct {
	Passwd string `yaml:"passwd"`
	Shadow string `yaml:"shadow"`
	Group  string `yaml:"group"`
}

// DialogConfig configures the login dialog.
type DialogConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Font is one of goregular, gomono, gobold or a path to a TrueType or OpenType file.
	Font     string  `yaml:"font"`
	FontSize float64 `yaml:"font_size"`

	Background string `yaml:"background"`
	GreetColor string `yaml:"greet_color"`
	TextColor  string `yaml:"text_color"`

	Greet          string `yaml:"greet"`
	LoginPrompt    string `yaml:"login_prompt"`
	PasswordPrompt string `yaml:"password_prompt"`
	FailMessage    string `yaml:"fail_message"`

	// FailDelay is how long FailMessage stays on screen.
	FailDelay time.Duration `yaml:"fail_delay"`
}

// Default returns the compiled defaults.
func Default() *Config {
	return &Config{
		Console: "/dev/console",
		Log:     "/var/log/xdm.log",
		Server: ServerConfig{
			Command: []string{"/usr/bin/Xorg", ":3", "vt5"},
			Timeout: 15 * time.Second,
		},
		Session: SessionConfig{
			Path:      "/usr/local/bin:/usr/X11R6/bin:/usr/bin:/bin",
			Script:    "/.xinitrc",
			WaitDelay: 5 * time.Second,
		},
		Accounts: AccountsConfig{
			Passwd: "/etc/passwd",
			Shadow: "/etc/shadow",
			Group:  "/etc/group",
		},
		Dialog: DialogConfig{
			Width:          400,
			Height:         200,
			Font:           "goregular",
			FontSize:       14,
			Background:     "black",
			GreetColor:     "white",
			TextColor:      "gray",
			Greet:          "Welcome",
			LoginPrompt:    "login: ",
			PasswordPrompt: "password: ",
			FailMessage:    "login failed",
			FailDelay:      time.Second,
		},
		ResetDelay: 2 * time.Second,
	}
}

// Decode overlays the YAML document read from r onto c.
func (c *Config) Decode(r io.Reader) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return c.Validate()
}

// Validate reports the first field holding an unusable value.
func (c *Config) Validate() error {
	switch {
	case len(c.Server.Command) == 0:
		return &FieldError{"server.command", "must not be empty"}
	case c.Server.Timeout <= 0:
		return &FieldError{"server.timeout", "must be positive"}
	case c.Session.WaitDelay < 0:
		return &FieldError{"session.wait_delay", "must not be negative"}
	case c.Accounts.Passwd == "":
		return &FieldError{"accounts.passwd", "must not be empty"}
	case c.Dialog.Width <= 0 || c.Dialog.Height <= 0:
		return &FieldError{"dialog", "dimensions must be positive"}
	case c.Dialog.FontSize <= 0:
		return &FieldError{"dialog.font_size", "must be positive"}
	case c.Dialog.FailDelay < 0:
		return &FieldError{"dialog.fail_delay", "must not be negative"}
	case c.ResetDelay < 0:
		return &FieldError{"reset_delay", "must not be negative"}
	}
	return nil
}

// Load returns the defaults overlaid with the file at pathname.
// An empty pathname selects [DefaultPath], which may be absent.
func Load(pathname string) (*Config, error) {
	c := Default()
	optional := pathname == ""
	if optional {
		pathname = DefaultPath
	}

	data, err := os.ReadFile(pathname)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, &LoadError{pathname, err}
	}
	if err = c.Decode(bytes.NewReader(data)); err != nil {
		return nil, &LoadError{pathname, err}
	}
	return c, nil
}

// FieldError describes an invalid configuration value.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return "invalid " + e.Field + ": " + e.Reason }

// LoadError is returned by [Load] when the file cannot be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Unwrap() error { return e.Err }
func (e *LoadError) Error() string { return "cannot load " + e.Path + ": " + e.Err.Error() }

// Message returns a user-facing error message.
func (e *LoadError) Message() string {
	var fieldError *FieldError
	if errors.As(e.Err, &fieldError) {
		return fmt.Sprintf("configuration %s: %s", e.Path, fieldError.Error())
	}
	return e.Error()
}
