package dialog

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"reflect"
	"testing"

	"hakurei.app/xdm/internal/config"
	"hakurei.app/xdm/internal/form"
	"hakurei.app/xdm/internal/xcb"
)

const testWindow = 0x200001

type putImage struct {
	width, height, stride int
	data                  []byte
}

// fakeDisplay records requests made by a [Dialog].
type fakeDisplay struct {
	width, height int
	format        xcb.Format
	events        []xcb.Event

	calls  []string
	geom   [4]int
	pixel  uint32
	images []putImage
	focus  int
}

func (f *fakeDisplay) Root() uint32                { return 0x100 }
func (f *fakeDisplay) Size() (int, int)            { return f.width, f.height }
func (f *fakeDisplay) Format() (xcb.Format, error) { return f.format, nil }
func (f *fakeDisplay) Fd() int                     { return -1 }

func (f *fakeDisplay) CreateWindow(x, y, width, height int, background, _ uint32) (uint32, error) {
	f.calls = append(f.calls, "CreateWindow")
	f.geom = [4]int{x, y, width, height}
	f.pixel = background
	return testWindow, nil
}
func (f *fakeDisplay) MapWindow(uint32) error     { f.calls = append(f.calls, "MapWindow"); return nil }
func (f *fakeDisplay) DestroyWindow(uint32) error { f.calls = append(f.calls, "DestroyWindow"); return nil }
func (f *fakeDisplay) SetInputFocus(uint32) error { f.focus++; return nil }
func (f *fakeDisplay) WarpPointer(int, int) error { f.calls = append(f.calls, "WarpPointer"); return nil }
func (f *fakeDisplay) DefineCursor(uint32, uint16) error {
	f.calls = append(f.calls, "DefineCursor")
	return nil
}
func (f *fakeDisplay) Bell(int8) error { f.calls = append(f.calls, "Bell"); return nil }
func (f *fakeDisplay) CreateGC(uint32) (uint32, error) {
	f.calls = append(f.calls, "CreateGC")
	return 0x200002, nil
}
func (f *fakeDisplay) FreeGC(uint32) error { f.calls = append(f.calls, "FreeGC"); return nil }
func (f *fakeDisplay) PutImage(_, _ uint32, width, height, _, _, stride int, data []byte) error {
	f.images = append(f.images, putImage{width, height, stride, append([]byte(nil), data...)})
	return nil
}
func (f *fakeDisplay) Flush() error { return nil }

func (f *fakeDisplay) PollEvent() (xcb.Event, bool, error) {
	if len(f.events) == 0 {
		return xcb.Event{}, false, nil
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev, true, nil
}

func (f *fakeDisplay) Keysyms(keycode uint8) (uint32, uint32) {
	if keycode == 38 {
		return 'a', 'A'
	}
	return 0, 0
}

func newDisplay() *fakeDisplay {
	return &fakeDisplay{
		width: 1024, height: 768,
		format: xcb.Format{Depth: 24, BitsPerPixel: 32, ScanlinePad: 32, LSBFirst: true},
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	c := config.Default().Dialog
	c.Background = "navy"
	conn := newDisplay()
	d, err := Open(conn, &c, nil)
	if err != nil {
		t.Fatalf("Open: error = %v", err)
	}

	if want := [4]int{312, 284, 400, 200}; conn.geom != want {
		t.Errorf("CreateWindow: %v, want %v", conn.geom, want)
	}
	if conn.pixel != 0x000080 {
		t.Errorf("CreateWindow: pixel %#x", conn.pixel)
	}

	if err = d.Draw("alice"); err != nil {
		t.Fatalf("Draw: error = %v", err)
	}
	if len(conn.images) != 1 {
		t.Fatalf("PutImage: %d calls", len(conn.images))
	}
	img := conn.images[0]
	if img.width != 400 || img.height != 200 || img.stride != 1600 || len(img.data) != 400*200*4 {
		t.Errorf("PutImage: %dx%d stride %d len %d", img.width, img.height, img.stride, len(img.data))
	}
	if got := img.data[len(img.data)-4:]; !reflect.DeepEqual(got, []byte{0x80, 0, 0, 0}) {
		t.Errorf("PutImage: last pixel %#v", got)
	}

	if err = d.Bell(); err != nil {
		t.Fatalf("Bell: error = %v", err)
	}
	if err = d.Close(); err != nil {
		t.Fatalf("Close: error = %v", err)
	}
	want := []string{"CreateWindow", "CreateGC", "DefineCursor", "WarpPointer", "MapWindow", "Bell", "FreeGC", "DestroyWindow"}
	if !reflect.DeepEqual(conn.calls, want) {
		t.Errorf("calls: %q, want %q", conn.calls, want)
	}
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		modify func(c *config.DialogConfig, conn *fakeDisplay)
		check  func(err error) bool
	}{
		{"too big", func(c *config.DialogConfig, conn *fakeDisplay) { conn.width = 320 }, func(err error) bool {
			var e *DimensionError
			return errors.As(err, &e) && e.TooBig && e.Message() == "dialog dimensions are too big!"
		}},
		{"too small", func(c *config.DialogConfig, _ *fakeDisplay) { c.Height = 50 }, func(err error) bool {
			var e *DimensionError
			return errors.As(err, &e) && !e.TooBig && e.Error() == "dialog dimensions are too small (400x50)"
		}},
		{"greet too wide", func(c *config.DialogConfig, _ *fakeDisplay) { c.Width = 60; c.Greet = "Welcome to the machine" }, func(err error) bool {
			var e *DimensionError
			return errors.As(err, &e) && !e.TooBig
		}},
		{"color", func(c *config.DialogConfig, _ *fakeDisplay) { c.TextColor = "nonexistent" }, func(err error) bool {
			var e *ResourceError
			return errors.As(err, &e) && e.Kind == "color" && e.Message() == `unable to load color "nonexistent"`
		}},
		{"font", func(c *config.DialogConfig, _ *fakeDisplay) { c.Font = "/nonexistent/font.ttf" }, func(err error) bool {
			var e *ResourceError
			return errors.As(err, &e) && e.Kind == "font" && errors.Is(err, os.ErrNotExist)
		}},
		{"visual", func(_ *config.DialogConfig, conn *fakeDisplay) { conn.format = xcb.Format{Depth: 16, BitsPerPixel: 16} }, func(err error) bool {
			var e *ResourceError
			return errors.As(err, &e) && e.Kind == "visual"
		}},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := config.Default().Dialog
			conn := newDisplay()
			tc.modify(&c, conn)
			if _, err := Open(conn, &c, nil); !tc.check(err) {
				t.Errorf("Open: error = %v", err)
			}
			if len(conn.calls) != 0 {
				t.Errorf("Open: unexpected requests %q", conn.calls)
			}
		})
	}
}

func TestNextEvent(t *testing.T) {
	t.Parallel()

	c := config.Default().Dialog
	conn := newDisplay()
	d, err := Open(conn, &c, nil)
	if err != nil {
		t.Fatalf("Open: error = %v", err)
	}
	conn.events = []xcb.Event{
		{Type: 0, Detail: 3},
		{Type: xcb.Expose, Window: testWindow, Count: 1},
		{Type: xcb.Expose, Window: 0xdead, Count: 0},
		{Type: xcb.Expose, Window: testWindow, Count: 0},
		{Type: xcb.MappingNotify},
		{Type: xcb.KeyPress, Detail: 38, State: form.ShiftMask},
		{Type: xcb.KeyPress, Detail: 38},
	}

	want := []form.Event{
		{Type: form.Expose},
		{Type: form.KeyPress, Keysym: 'A'},
		{Type: form.KeyPress, Keysym: 'a'},
	}
	for i, w := range want {
		if got, err := d.NextEvent(t.Context()); err != nil || got != w {
			t.Fatalf("NextEvent %d: %#v, error = %v", i, got, err)
		}
	}
	if conn.focus != 1 {
		t.Errorf("SetInputFocus: %d calls", conn.focus)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err = d.NextEvent(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("NextEvent: error = %v", err)
	}
}

func TestZPixmap(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff})
	img.SetRGBA(1, 0, color.RGBA{R: 0x44, G: 0x55, B: 0x66, A: 0xff})

	testCases := []struct {
		name     string
		lsbFirst bool
		want     []byte
	}{
		{"lsb", true, []byte{0x33, 0x22, 0x11, 0, 0x66, 0x55, 0x44, 0}},
		{"msb", false, []byte{0, 0x11, 0x22, 0x33, 0, 0x44, 0x55, 0x66}},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, stride, err := zpixmap(nil, img, xcb.Format{Depth: 24, BitsPerPixel: 32, LSBFirst: tc.lsbFirst})
			if err != nil {
				t.Fatalf("zpixmap: error = %v", err)
			}
			if stride != 8 || !reflect.DeepEqual(got, tc.want) {
				t.Errorf("zpixmap: %#v stride %d, want %#v", got, stride, tc.want)
			}
		})
	}
}

func TestFit(t *testing.T) {
	t.Parallel()

	face, err := loadFont("gomono", 14)
	if err != nil {
		t.Fatalf("loadFont: error = %v", err)
	}
	l := &layout{face: face}
	w := l.measure("m")

	testCases := []struct {
		name  string
		s     string
		width int
		want  string
	}{
		{"fits", "alice", 5 * w, "alice"},
		{"truncated", "alice", 3 * w, "ali"},
		{"multibyte", "éééé", 2 * w, "éé"},
		{"nothing", "alice", 0, ""},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := l.fit(tc.s, tc.width); got != tc.want {
				t.Errorf("fit: %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		want color.RGBA
		ok   bool
	}{
		{"white", color.RGBA{0xff, 0xff, 0xff, 0xff}, true},
		{"Gray", color.RGBA{0x80, 0x80, 0x80, 0xff}, true},
		{"#102030", color.RGBA{0x10, 0x20, 0x30, 0xff}, true},
		{"#10203", color.RGBA{}, false},
		{"#1020zz", color.RGBA{}, false},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseColor(tc.name)
			if (err == nil) != tc.ok || got != tc.want {
				t.Errorf("parseColor: %v, error = %v", got, err)
			}
		})
	}
}
