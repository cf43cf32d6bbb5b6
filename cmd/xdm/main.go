// xdm starts an X server, presents a login dialog on it and runs the session
// of every user who logs in, resetting the server in between.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"hakurei.app/xdm/internal/auth"
	"hakurei.app/xdm/internal/config"
	"hakurei.app/xdm/internal/daemon"
	"hakurei.app/xdm/internal/info"
	"hakurei.app/xdm/internal/message"
	"hakurei.app/xdm/internal/server"
	"hakurei.app/xdm/internal/session"
)

// options holds the parsed command line.
type options struct {
	version    bool
	config     string
	foreground bool
	verbose    bool
	checkAuth  string
}

func parse(args []string, out io.Writer) (*options, error) {
	var o options
	flagSet := pflag.NewFlagSet("xdm", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.BoolVarP(&o.version, "version", "v", false, "print the version and exit")
	flagSet.StringVar(&o.config, "config", "", "path to the configuration file (default "+config.DefaultPath+")")
	flagSet.BoolVar(&o.foreground, "foreground", false, "do not detach from the controlling terminal")
	flagSet.BoolVar(&o.verbose, "verbose", false, "print debug messages")
	flagSet.StringVar(&o.checkAuth, "check-auth", "", "read a password for `USER` from the terminal and report whether it is accepted")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if flagSet.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", flagSet.Arg(0))
	}
	return &o, nil
}

func main() {
	// helper processes never return from these
	server.TryArgv0(nil)
	session.TryArgv0(nil)

	log.SetPrefix("xdm: ")
	log.SetFlags(0)
	msg := message.New(log.Default())

	if err := daemon.DisableCoreDump(); err != nil {
		log.Printf("cannot disable core dumps: %v", err)
	}

	o, err := parse(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	} else if err != nil {
		log.Print(err)
		os.Exit(2)
	}
	if o.version {
		fmt.Println("xdm " + info.Version())
		os.Exit(0)
	}
	msg.SwapVerbose(o.verbose)

	c, err := config.Load(o.config)
	if err != nil {
		message.Fatal(msg, "cannot load configuration:", err)
	}

	if o.checkAuth != "" {
		if err = checkAuth(msg, c, o.checkAuth); err != nil {
			message.Fatal(msg, "cannot authenticate:", err)
		}
		msg.BeforeExit()
		os.Exit(0)
	}

	if err = daemon.CheckPrivilege(); err != nil {
		message.Fatal(msg, "privilege check failed:", err)
	}

	if !o.foreground {
		// withheld until the log file is installed
		msg.Suspend()
		if err = daemon.Detach(msg); err != nil {
			msg.Resume()
			message.Fatal(msg, "cannot detach:", err)
		}
		pathname := c.Log
		if pathname == "" {
			pathname = c.Console
		}
		err = daemon.RedirectLog(pathname)
		msg.Resume()
		if err != nil {
			message.Fatal(msg, "cannot redirect output:", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop() // unreachable

	msg.Verbosef("xdm %s serving on %s", info.Version(), server.DisplayName(c.Server.Command))
	if err = daemon.New(c, msg).Run(ctx); err != nil {
		message.Fatal(msg, "cannot serve logins:", err)
	}
	msg.BeforeExit()
	os.Exit(0)
}

// errRejected is returned by checkAuth for a credential that was not accepted.
var errRejected = errors.New("credential rejected")

// checkAuth reads a password for username without echo and authenticates it.
func checkAuth(msg message.Msg, c *config.Config, username string) error {
	fmt.Fprint(os.Stderr, "password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	defer clear(password)

	db := auth.New(c.Accounts.Passwd, c.Accounts.Shadow, c.Accounts.Group, msg)
	a, outcome, err := db.Authenticate([]byte(username), password)
	if err != nil {
		return err
	}
	if outcome != auth.OK {
		fmt.Println(outcome)
		return errRejected
	}
	fmt.Println(outcome, a)
	return nil
}
