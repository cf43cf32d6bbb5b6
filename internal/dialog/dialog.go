// Package dialog displays the login dialog on an X display and feeds its input to a form.
package dialog

import (
	"context"
	"errors"
	"image/color"
	"time"

	"golang.org/x/sys/unix"

	"hakurei.app/xdm/internal/config"
	"hakurei.app/xdm/internal/form"
	"hakurei.app/xdm/internal/message"
	"hakurei.app/xdm/internal/xcb"
)

// pollTimeout bounds each wait for X events so cancellation is observed.
const pollTimeout = 100 * time.Millisecond

// Display is the subset of [xcb.Conn] used by [Dialog].
type Display interface {
	Root() uint32
	Size() (width, height int)
	Format() (xcb.Format, error)
	Fd() int

	CreateWindow(x, y, width, height int, background, eventMask uint32) (uint32, error)
	MapWindow(window uint32) error
	DestroyWindow(window uint32) error
	SetInputFocus(window uint32) error
	WarpPointer(x, y int) error
	DefineCursor(window uint32, shape uint16) error
	Bell(percent int8) error
	CreateGC(drawable uint32) (uint32, error)
	FreeGC(gc uint32) error
	PutImage(drawable, gc uint32, width, height, x, y, stride int, data []byte) error
	Flush() error

	PollEvent() (xcb.Event, bool, error)
	Keysyms(keycode uint8) (uint32, uint32)
}

// Dialog is a mapped login dialog window. It implements [form.Source] and [form.Renderer].
type Dialog struct {
	conn   Display
	format xcb.Format
	window uint32
	gc     uint32

	layout
	pixmap []byte
	msg    message.Msg
}

var (
	_ form.Source   = new(Dialog)
	_ form.Renderer = new(Dialog)
)

// Open creates and maps the dialog window centred on the display.
func Open(conn Display, c *config.DialogConfig, msg message.Msg) (*Dialog, error) {
	if msg == nil {
		msg = message.New(nil)
	}

	displayWidth, displayHeight := conn.Size()
	if displayWidth < c.Width || displayHeight < c.Height {
		return nil, &DimensionError{Width: c.Width, Height: c.Height, TooBig: true}
	}

	d := &Dialog{conn: conn, msg: msg}
	d.width, d.height = c.Width, c.Height
	d.greet, d.loginPrompt, d.passwordPrompt = c.Greet, c.LoginPrompt, c.PasswordPrompt

	var err error
	if d.face, err = loadFont(c.Font, c.FontSize); err != nil {
		return nil, err
	}
	metrics := d.face.Metrics()
	d.fontHeight = (metrics.Ascent + metrics.Descent).Ceil()

	for _, v := range []struct {
		name string
		p    *color.RGBA
	}{
		{c.Background, &d.background},
		{c.GreetColor, &d.greetColor},
		{c.TextColor, &d.textColor},
	} {
		if *v.p, err = parseColor(v.name); err != nil {
			return nil, err
		}
	}
	if err = d.check(); err != nil {
		return nil, err
	}
	if d.format, err = conn.Format(); err != nil {
		return nil, err
	}
	// validates the pixel format before anything is created
	if d.pixmap, _, err = zpixmap(nil, d.render(""), d.format); err != nil {
		return nil, err
	}

	if d.window, err = conn.CreateWindow(
		(displayWidth-c.Width)/2, (displayHeight-c.Height)/2, c.Width, c.Height,
		pixel(d.background), xcb.EventMaskKey|xcb.EventMaskExpose,
	); err != nil {
		return nil, err
	}
	if d.gc, err = conn.CreateGC(d.window); err != nil {
		return nil, errors.Join(err, d.destroy())
	}

	if err = errors.Join(
		conn.DefineCursor(conn.Root(), xcb.CursorLeftPtr),
		conn.WarpPointer(displayWidth, displayHeight),
		conn.MapWindow(d.window),
		conn.Flush(),
	); err != nil {
		return nil, errors.Join(err, d.Close())
	}
	msg.Verbosef("dialog mapped (window %#x, %dx%d)", d.window, c.Width, c.Height)
	return d, nil
}

// Draw renders the dialog with text in the username field.
func (d *Dialog) Draw(text string) error {
	var (
		stride int
		err    error
	)
	if d.pixmap, stride, err = zpixmap(d.pixmap, d.render(text), d.format); err != nil {
		return err
	}
	if err = d.conn.PutImage(d.window, d.gc, d.width, d.height, 0, 0, stride, d.pixmap); err != nil {
		return err
	}
	return d.conn.Flush()
}

// Bell rings the keyboard bell.
func (d *Dialog) Bell() error {
	if err := d.conn.Bell(100); err != nil {
		return err
	}
	return d.conn.Flush()
}

// NextEvent blocks until an expose or key press event arrives on the dialog window or ctx is done.
func (d *Dialog) NextEvent(ctx context.Context) (form.Event, error) {
	for {
		ev, ok, err := d.conn.PollEvent()
		if err != nil {
			return form.Event{}, err
		}
		if ok {
			if e, ok := d.translate(ev); ok {
				return e, d.conn.Flush()
			}
			continue
		}

		if err = ctx.Err(); err != nil {
			return form.Event{}, err
		}
		if err = d.conn.Flush(); err != nil {
			return form.Event{}, err
		}
		if err = d.wait(); err != nil {
			return form.Event{}, err
		}
	}
}

// wait blocks until the connection is readable or pollTimeout elapses.
func (d *Dialog) wait() error {
	fds := []unix.PollFd{{Fd: int32(d.conn.Fd()), Events: unix.POLLIN}}
	if _, err := unix.Poll(fds, int(pollTimeout/time.Millisecond)); err != nil && !errors.Is(err, unix.EINTR) {
		return err
	}
	return nil
}

func (d *Dialog) translate(ev xcb.Event) (form.Event, bool) {
	switch ev.Type {
	case 0:
		d.msg.Verbosef("ignoring X error %d", ev.Detail)

	case xcb.Expose:
		if ev.Window != d.window || ev.Count != 0 {
			break
		}
		if err := d.conn.SetInputFocus(d.window); err != nil {
			d.msg.Verbosef("cannot set input focus: %v", err)
		}
		return form.Event{Type: form.Expose}, true

	case xcb.KeyPress:
		unshifted, shifted := d.conn.Keysyms(ev.Detail)
		return form.Event{
			Type:   form.KeyPress,
			Keysym: form.Resolve(form.Keysym(unshifted), form.Keysym(shifted), ev.State),
		}, true
	}
	return form.Event{}, false
}

func (d *Dialog) destroy() error {
	if d.window == 0 {
		return nil
	}
	err := d.conn.DestroyWindow(d.window)
	d.window = 0
	return err
}

// Close destroys the dialog window. The display connection stays open.
func (d *Dialog) Close() error {
	var err error
	if d.gc != 0 {
		err = d.conn.FreeGC(d.gc)
		d.gc = 0
	}
	return errors.Join(err, d.destroy(), d.conn.Flush())
}
