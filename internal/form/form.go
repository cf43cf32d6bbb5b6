// Package form implements the login form state machine.
package form

import (
	"context"
	"errors"
	"time"

	"hakurei.app/xdm/internal/auth"
	"hakurei.app/xdm/internal/message"
	"hakurei.app/xdm/internal/secret"
)

// Capacity is the size in bytes of each credential buffer.
const Capacity = 255

// State is the input state of a [Form].
type State int

const (
	EnteringUsername State = iota
	EnteringPassword
	Rejected
)

func (s State) String() string {
	switch s {
	case EnteringUsername:
		return "entering username"
	case EnteringPassword:
		return "entering password"
	case Rejected:
		return "rejected"
	default:
		return "invalid state"
	}
}

// EventType is the kind of an [Event].
type EventType int

const (
	// Expose requests a redraw.
	Expose EventType = iota
	// KeyPress carries a resolved keysym.
	KeyPress
)

// Event is an input event delivered to a [Form].
type Event struct {
	Type   EventType
	Keysym Keysym
}

// Source delivers input events. NextEvent blocks until an event arrives or ctx is done.
type Source interface {
	NextEvent(ctx context.Context) (Event, error)
}

// Renderer draws the dialog with text in the username field.
type Renderer interface {
	Draw(text string) error
	Bell() error
}

// Authenticator verifies a credential.
type Authenticator interface {
	Authenticate(username, password []byte) (*auth.Account, auth.Outcome, error)
}

// Form collects a username and password and authenticates them.
type Form struct {
	// FailMessage is drawn for FailDelay after a rejected attempt.
	FailMessage string
	FailDelay   time.Duration

	state    State
	username *secret.Buffer
	password *secret.Buffer

	source   Source
	renderer Renderer
	auth     Authenticator
	msg      message.Msg
}

// New allocates the credential buffers of a [Form]. The caller must call Close.
func New(source Source, renderer Renderer, a Authenticator, msg message.Msg) (*Form, error) {
	if msg == nil {
		msg = message.New(nil)
	}

	f := &Form{
		FailMessage: "login failed",
		FailDelay:   time.Second,
		source:      source,
		renderer:    renderer,
		auth:        a,
		msg:         msg,
	}
	var err error
	if f.username, err = secret.New(Capacity); err != nil {
		return nil, err
	}
	if f.password, err = secret.New(Capacity); err != nil {
		_ = f.username.Close()
		return nil, err
	}
	return f, nil
}

// State returns the current input state.
func (f *Form) State() State { return f.state }

// Close wipes and releases the credential buffers.
func (f *Form) Close() error {
	return errors.Join(f.username.Close(), f.password.Close())
}

// Run handles events until a credential is accepted, returning its account.
// A non-nil error is returned if ctx is done or a collaborator fails.
func (f *Form) Run(ctx context.Context) (*auth.Account, error) {
	defer f.wipe()
	for {
		ev, err := f.source.NextEvent(ctx)
		if err != nil {
			return nil, err
		}
		if a, err := f.Handle(ctx, ev); err != nil || a != nil {
			return a, err
		}
	}
}

// Handle applies a single event, returning the account once a credential is accepted.
func (f *Form) Handle(ctx context.Context, ev Event) (*auth.Account, error) {
	if ev.Type != KeyPress {
		if ev.Type == Expose {
			return nil, f.redraw()
		}
		return nil, nil
	}

	switch ev.Keysym {
	case KeysymBackSpace:
		f.active().Backspace()

	case KeysymReturn, KeysymKPEnter:
		if f.state == EnteringUsername {
			f.state = EnteringPassword
			return nil, nil
		}
		return f.submit(ctx)

	default:
		r, ok := ev.Keysym.Rune()
		if !ok {
			return nil, nil
		}
		// overflow is dropped without affecting existing content
		f.active().AppendRune(r)
	}

	if f.state == EnteringUsername {
		return nil, f.redraw()
	}
	return nil, nil
}

func (f *Form) active() *secret.Buffer {
	if f.state == EnteringPassword {
		return f.password
	}
	return f.username
}

func (f *Form) redraw() error { return f.renderer.Draw(f.username.String()) }

func (f *Form) wipe() {
	f.username.Wipe()
	f.password.Wipe()
}

// submit authenticates the buffered credential. The password buffer is wiped before it returns.
func (f *Form) submit(ctx context.Context) (*auth.Account, error) {
	a, outcome, err := f.auth.Authenticate(f.username.Bytes(), f.password.Bytes())
	f.password.Wipe()
	if err != nil {
		f.wipe()
		f.state = EnteringUsername
		return nil, err
	}

	if outcome == auth.OK {
		f.msg.Verbosef("authenticated %s", a)
		f.wipe()
		f.state = EnteringUsername
		return a, nil
	}

	f.msg.Verbosef("authentication failed: %s", outcome)
	f.state = Rejected
	f.wipe()
	if err = f.renderer.Bell(); err != nil {
		return nil, err
	}
	if err = f.renderer.Draw(f.FailMessage); err != nil {
		return nil, err
	}

	t := time.NewTimer(f.FailDelay)
	select {
	case <-t.C:
	case <-ctx.Done():
		t.Stop()
		return nil, ctx.Err()
	}

	f.state = EnteringUsername
	return nil, f.redraw()
}
