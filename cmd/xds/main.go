// xds starts an X server, runs a single session on it for the named user
// without authentication, and exits once the session ends.
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

	"hakurei.app/xdm/internal/auth"
	"hakurei.app/xdm/internal/config"
	"hakurei.app/xdm/internal/daemon"
	"hakurei.app/xdm/internal/message"
	"hakurei.app/xdm/internal/server"
	"hakurei.app/xdm/internal/session"
)

// options holds the parsed command line.
type options struct {
	config   string
	verbose  bool
	username string
}

func parse(args []string, out io.Writer) (*options, error) {
	var o options
	flagSet := pflag.NewFlagSet("xds", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.Usage = func() {
		fmt.Fprintln(out, "usage: xds [--config FILE] [--verbose] USERNAME")
		flagSet.PrintDefaults()
	}
	flagSet.StringVar(&o.config, "config", "", "path to the configuration file (default "+config.DefaultPath+")")
	flagSet.BoolVar(&o.verbose, "verbose", false, "print debug messages")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return nil, fmt.Errorf("expected exactly one username, got %d arguments", flagSet.NArg())
	}
	o.username = flagSet.Arg(0)
	return &o, nil
}

func main() {
	server.TryArgv0(nil)
	session.TryArgv0(nil)

	log.SetPrefix("xds: ")
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
	msg.SwapVerbose(o.verbose)

	c, err := config.Load(o.config)
	if err != nil {
		message.Fatal(msg, "cannot load configuration:", err)
	}
	if err = daemon.CheckPrivilege(); err != nil {
		message.Fatal(msg, "privilege check failed:", err)
	}

	a, err := auth.New(c.Accounts.Passwd, c.Accounts.Shadow, c.Accounts.Group, msg).Lookup(o.username)
	if err != nil {
		message.Fatal(msg, "cannot look up "+o.username+":", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop() // unreachable

	controller := daemon.New(c, msg)
	controller.Account, controller.Once = a, true
	if err = controller.Run(ctx); err != nil {
		message.Fatal(msg, "cannot run session:", err)
	}
	msg.BeforeExit()
	os.Exit(0)
}
