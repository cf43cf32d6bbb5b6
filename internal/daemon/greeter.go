package daemon

import (
	"context"
	"errors"

	"hakurei.app/xdm/internal/auth"
	"hakurei.app/xdm/internal/config"
	"hakurei.app/xdm/internal/dialog"
	"hakurei.app/xdm/internal/form"
	"hakurei.app/xdm/internal/message"
	"hakurei.app/xdm/internal/server"
	"hakurei.app/xdm/internal/session"
)

// Display is the X connection held by the daemon for the lifetime of the server.
type Display interface {
	dialog.Display
	server.Display
	Close()
}

// Greeter produces the account of the next session.
type Greeter interface {
	Next(ctx context.Context) (*auth.Account, error)
}

// Session is a running session.
type Session interface {
	Wait() error
}

// Launcher starts sessions.
type Launcher interface {
	Start(ctx context.Context, a *auth.Account, display string) (Session, error)
}

// fixedGreeter always produces the same account.
type fixedGreeter struct{ account *auth.Account }

func (g fixedGreeter) Next(context.Context) (*auth.Account, error) { return g.account, nil }

// dialogGreeter maps the login dialog for every attempt and unmaps it once a credential is accepted.
type dialogGreeter struct {
	conn     Display
	c        *config.DialogConfig
	accounts form.Authenticator
	msg      message.Msg
}

func (g *dialogGreeter) Next(ctx context.Context) (a *auth.Account, err error) {
	var d *dialog.Dialog
	if d, err = dialog.Open(g.conn, g.c, g.msg); err != nil {
		return
	}
	defer func() { err = errors.Join(err, d.Close()) }()

	var f *form.Form
	if f, err = form.New(d, d, g.accounts, g.msg); err != nil {
		return
	}
	defer func() { err = errors.Join(err, f.Close()) }()
	f.FailMessage, f.FailDelay = g.c.FailMessage, g.c.FailDelay

	return f.Run(ctx)
}

func newSupervisor(c *config.Config, msg message.Msg) *session.Supervisor {
	return session.New(&c.Session,
		auth.New(c.Accounts.Passwd, c.Accounts.Shadow, c.Accounts.Group, msg), msg)
}

// supervisor adapts [session.Supervisor] to [Launcher].
type supervisor struct{ s *session.Supervisor }

func (s supervisor) Start(ctx context.Context, a *auth.Account, display string) (Session, error) {
	h, err := s.s.Start(ctx, a, display)
	if err != nil {
		return nil, err
	}
	return h, nil
}
