package daemon

import (
	"context"
	"errors"
	"os"

	"hakurei.app/xdm/internal/auth"
	"hakurei.app/xdm/internal/config"
	"hakurei.app/xdm/internal/message"
	"hakurei.app/xdm/internal/server"
)

// State is the state shared between the stages of the control loop.
type State struct {
	// Server is the running X server, nil before startup completes.
	Server *server.Handle
	// Display is the connection to Server, nil if no dialog is shown.
	Display Display
}

// Controller serves sessions on one X server until its context is done.
type Controller struct {
	Config *config.Config
	// Account is the account of every session. If nil, accounts are
	// obtained by presenting the login dialog.
	Account *auth.Account
	// Once stops the controller after the first session.
	Once bool

	State
	msg message.Msg
	k   syscallDispatcher
}

// New returns a [Controller] configured by c.
func New(c *config.Config, msg message.Msg) *Controller {
	return &Controller{Config: c, msg: msg, k: direct{}}
}

// Run starts the X server and serves sessions on it. The server is terminated
// before Run returns. Run returns nil once ctx is done, and an error only if
// serving could not continue.
func (c *Controller) Run(ctx context.Context) error {
	var err error
	if c.Server, err = c.k.startServer(ctx, c.Config.Server.Command, c.Config.Server.Timeout, c.msg); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer c.terminate()

	var greeter Greeter = fixedGreeter{c.Account}
	if c.Account == nil {
		if c.Display, err = c.k.connect(c.Server.Display); err != nil {
			return err
		}
		defer c.Display.Close()
		greeter = c.k.greeter(c.Display, c.Config, c.msg)
	}
	sessions := c.k.sessions(c.Config, c.msg)

	for ctx.Err() == nil {
		if err = c.serve(ctx, greeter, sessions); err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
		if c.Once || ctx.Err() != nil {
			break
		}

		if c.Display != nil {
			var n int
			if n, err = c.k.softReset(c.Display); err != nil {
				return err
			}
			c.msg.Verbosef("soft reset disconnected %d clients", n)
		}

		select {
		case <-ctx.Done():
		case <-c.k.after(c.Config.ResetDelay):
		}
	}
	c.msg.Verbose("terminating")
	return nil
}

// serve runs a single session to completion.
func (c *Controller) serve(ctx context.Context, greeter Greeter, sessions Launcher) error {
	a, err := greeter.Next(ctx)
	if err != nil {
		return err
	}
	c.msg.Verbosef("starting session for %s", a)

	s, err := sessions.Start(ctx, a, c.Server.Display)
	if err != nil {
		return err
	}
	if err = s.Wait(); err != nil {
		c.msg.GetLogger().Printf("cannot wait for session: %v", err)
	}
	return nil
}

func (c *Controller) terminate() {
	if err := c.k.terminateServer(c.Server); err != nil && !errors.Is(err, os.ErrProcessDone) {
		c.msg.GetLogger().Printf("cannot terminate x server: %v", err)
	}
}
