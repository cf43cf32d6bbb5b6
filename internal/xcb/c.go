package xcb

/*
#cgo linux pkg-config: xcb xcb-keysyms

#include <stdlib.h>
#include <string.h>
#include <xcb/xcb.h>
#include <xcb/xcb_keysyms.h>

typedef struct {
	uint8_t type;
	uint8_t detail;
	uint16_t state;
	uint16_t count;
	uint32_t window;
} xdm_xcb_event_t;

static xcb_screen_t *xdm_xcb_screen(xcb_connection_t *c, int n) {
	xcb_screen_iterator_t it = xcb_setup_roots_iterator(xcb_get_setup(c));
	for (; it.rem; --n, xcb_screen_next(&it))
		if (n == 0)
			return it.data;
	return NULL;
}

static int xdm_xcb_pixmap_format(xcb_connection_t *c, uint8_t depth, uint8_t *bpp, uint8_t *pad) {
	const xcb_setup_t *setup = xcb_get_setup(c);
	xcb_format_iterator_t it = xcb_setup_pixmap_formats_iterator(setup);
	for (; it.rem; xcb_format_next(&it)) {
		if (it.data->depth == depth) {
			*bpp = it.data->bits_per_pixel;
			*pad = it.data->scanline_pad;
			return setup->image_byte_order == XCB_IMAGE_ORDER_LSB_FIRST;
		}
	}
	return -1;
}

static int xdm_xcb_poll_event(xcb_connection_t *c, xcb_key_symbols_t *syms, xdm_xcb_event_t *out) {
	xcb_generic_event_t *e = xcb_poll_for_event(c);
	if (e == NULL)
		return 0;

	memset(out, 0, sizeof *out);
	out->type = e->response_type & ~0x80;
	switch (out->type) {
	case 0:
		out->detail = ((xcb_generic_error_t *)e)->error_code;
		break;
	case XCB_KEY_PRESS: {
		xcb_key_press_event_t *k = (xcb_key_press_event_t *)e;
		out->detail = k->detail;
		out->state = k->state;
		out->window = k->event;
		break;
	}
	case XCB_EXPOSE: {
		xcb_expose_event_t *x = (xcb_expose_event_t *)e;
		out->window = x->window;
		out->count = x->count;
		break;
	}
	case XCB_MAPPING_NOTIFY:
		xcb_refresh_keyboard_mapping(syms, (xcb_mapping_notify_event_t *)e);
		break;
	}
	free(e);
	return 1;
}

static xcb_window_t xdm_xcb_create_window(xcb_connection_t *c, xcb_window_t parent, xcb_visualid_t visual,
		int16_t x, int16_t y, uint16_t w, uint16_t h, uint32_t pixel, uint32_t mask) {
	uint32_t values[2] = { pixel, mask };
	xcb_window_t wid = xcb_generate_id(c);
	xcb_create_window(c, XCB_COPY_FROM_PARENT, wid, parent, x, y, w, h, 0,
		XCB_WINDOW_CLASS_INPUT_OUTPUT, visual, XCB_CW_BACK_PIXEL | XCB_CW_EVENT_MASK, values);
	return wid;
}

static void xdm_xcb_define_cursor(xcb_connection_t *c, xcb_window_t w, uint16_t shape) {
	xcb_font_t font = xcb_generate_id(c);
	xcb_cursor_t cursor = xcb_generate_id(c);
	uint32_t value = cursor;
	xcb_open_font(c, font, strlen("cursor"), "cursor");
	xcb_create_glyph_cursor(c, cursor, font, font, shape, shape + 1, 0, 0, 0, 0xffff, 0xffff, 0xffff);
	xcb_change_window_attributes(c, w, XCB_CW_CURSOR, &value);
	xcb_free_cursor(c, cursor);
	xcb_close_font(c, font);
}
*/
import "C"

import (
	"runtime"
	"unsafe"
)

const (
	ConnError                 = C.XCB_CONN_ERROR
	ConnClosedExtNotSupported = C.XCB_CONN_CLOSED_EXT_NOTSUPPORTED
	ConnClosedMemInsufficient = C.XCB_CONN_CLOSED_MEM_INSUFFICIENT
	ConnClosedReqLenExceed    = C.XCB_CONN_CLOSED_REQ_LEN_EXCEED
	ConnClosedParseErr        = C.XCB_CONN_CLOSED_PARSE_ERR
	ConnClosedInvalidScreen   = C.XCB_CONN_CLOSED_INVALID_SCREEN
)

const (
	KeyPress        = C.XCB_KEY_PRESS
	Expose          = C.XCB_EXPOSE
	MappingNotify   = C.XCB_MAPPING_NOTIFY
	EventMaskKey    = C.XCB_EVENT_MASK_KEY_PRESS
	EventMaskExpose = C.XCB_EVENT_MASK_EXPOSURE

	// CursorLeftPtr is the left_ptr glyph of the cursor font.
	CursorLeftPtr = 68
)

// Conn is a connection to an X server. Conn is not safe for concurrent use.
type Conn struct {
	c      *C.xcb_connection_t
	syms   *C.xcb_key_symbols_t
	screen *C.xcb_screen_t

	base, mask uint32
}

// Connect connects to display and selects its default screen.
func Connect(display string) (*Conn, error) {
	var screen C.int
	name := C.CString(display)
	c := C.xcb_connect(name, &screen)
	C.free(unsafe.Pointer(name))

	conn := &Conn{c: c}
	runtime.SetFinalizer(conn, (*Conn).Close)
	if err := conn.hasError(); err != nil {
		conn.Close()
		return nil, &ConnectError{display, err}
	}

	if conn.screen = C.xdm_xcb_screen(c, screen); conn.screen == nil {
		conn.Close()
		return nil, &ConnectError{display, &ConnectionError{ConnClosedInvalidScreen}}
	}
	setup := C.xcb_get_setup(c)
	conn.base, conn.mask = uint32(setup.resource_id_base), uint32(setup.resource_id_mask)
	conn.syms = C.xcb_key_symbols_alloc(c)
	return conn, nil
}

// Close frees the keysym table and disconnects. Close is idempotent.
func (conn *Conn) Close() {
	if conn.c == nil {
		return
	}
	if conn.syms != nil {
		C.xcb_key_symbols_free(conn.syms)
		conn.syms = nil
	}
	C.xcb_disconnect(conn.c)
	conn.c = nil
	conn.screen = nil

	// no need for a finalizer anymore
	runtime.SetFinalizer(conn, nil)
}

func (conn *Conn) hasError() error {
	errno := C.xcb_connection_has_error(conn.c)
	if errno == 0 {
		return nil
	}
	return &ConnectionError{int(errno)}
}

// Root returns the root window of the default screen.
func (conn *Conn) Root() uint32 { return uint32(conn.screen.root) }

// Size returns the dimensions of the default screen in pixels.
func (conn *Conn) Size() (width, height int) {
	return int(conn.screen.width_in_pixels), int(conn.screen.height_in_pixels)
}

// Depth returns the depth of the root window.
func (conn *Conn) Depth() uint8 { return uint8(conn.screen.root_depth) }

// Fd returns the file descriptor of the connection.
func (conn *Conn) Fd() int { return int(C.xcb_get_file_descriptor(conn.c)) }

// Owns reports whether resource id was allocated by this connection.
func (conn *Conn) Owns(id uint32) bool { return id&^conn.mask == conn.base }

// MaxRequestLength returns the maximum request length in bytes.
func (conn *Conn) MaxRequestLength() int {
	return int(C.xcb_get_maximum_request_length(conn.c)) * 4
}

// Format returns the ZPixmap layout of images at the root depth.
func (conn *Conn) Format() (Format, error) {
	f := Format{Depth: conn.Depth()}
	var bpp, pad C.uint8_t
	switch C.xdm_xcb_pixmap_format(conn.c, C.uint8_t(f.Depth), &bpp, &pad) {
	case -1:
		return f, &RequestError{"PixmapFormat", 0}
	case 1:
		f.LSBFirst = true
	}
	f.BitsPerPixel, f.ScanlinePad = int(bpp), int(pad)
	return f, nil
}

// QueryTree returns the children of window.
func (conn *Conn) QueryTree(window uint32) ([]uint32, error) {
	var e *C.xcb_generic_error_t
	r := C.xcb_query_tree_reply(conn.c, C.xcb_query_tree(conn.c, C.xcb_window_t(window)), &e)
	if r == nil {
		return nil, conn.replyError("QueryTree", e)
	}
	defer C.free(unsafe.Pointer(r))

	n := int(C.xcb_query_tree_children_length(r))
	if n == 0 {
		return nil, nil
	}
	children := unsafe.Slice((*C.xcb_window_t)(unsafe.Pointer(C.xcb_query_tree_children(r))), n)
	windows := make([]uint32, n)
	for i, w := range children {
		windows[i] = uint32(w)
	}
	return windows, nil
}

// KillClient forcibly closes the client owning resource.
func (conn *Conn) KillClient(resource uint32) error {
	C.xcb_kill_client(conn.c, C.uint32_t(resource))
	return conn.hasError()
}

// Sync flushes and waits until the server has processed all requests.
func (conn *Conn) Sync() error {
	var e *C.xcb_generic_error_t
	r := C.xcb_get_input_focus_reply(conn.c, C.xcb_get_input_focus(conn.c), &e)
	if r == nil {
		return conn.replyError("GetInputFocus", e)
	}
	C.free(unsafe.Pointer(r))
	return nil
}

// Flush writes buffered requests to the server.
func (conn *Conn) Flush() error {
	if C.xcb_flush(conn.c) <= 0 {
		return conn.hasError()
	}
	return nil
}

// CreateWindow creates an unmapped child of the root window.
func (conn *Conn) CreateWindow(x, y, width, height int, background, eventMask uint32) (uint32, error) {
	w := C.xdm_xcb_create_window(conn.c, conn.screen.root, conn.screen.root_visual,
		C.int16_t(x), C.int16_t(y), C.uint16_t(width), C.uint16_t(height),
		C.uint32_t(background), C.uint32_t(eventMask))
	return uint32(w), conn.hasError()
}

// MapWindow maps window.
func (conn *Conn) MapWindow(window uint32) error {
	C.xcb_map_window(conn.c, C.xcb_window_t(window))
	return conn.hasError()
}

// DestroyWindow destroys window.
func (conn *Conn) DestroyWindow(window uint32) error {
	C.xcb_destroy_window(conn.c, C.xcb_window_t(window))
	return conn.hasError()
}

// SetInputFocus gives window the keyboard focus, reverting to the pointer root.
func (conn *Conn) SetInputFocus(window uint32) error {
	C.xcb_set_input_focus(conn.c, C.XCB_INPUT_FOCUS_POINTER_ROOT, C.xcb_window_t(window), C.XCB_CURRENT_TIME)
	return conn.hasError()
}

// WarpPointer moves the pointer to x, y relative to the root window.
func (conn *Conn) WarpPointer(x, y int) error {
	C.xcb_warp_pointer(conn.c, C.XCB_NONE, conn.screen.root, 0, 0, 0, 0, C.int16_t(x), C.int16_t(y))
	return conn.hasError()
}

// DefineCursor sets the cursor of window to a glyph of the cursor font.
func (conn *Conn) DefineCursor(window uint32, shape uint16) error {
	C.xdm_xcb_define_cursor(conn.c, C.xcb_window_t(window), C.uint16_t(shape))
	return conn.hasError()
}

// Bell rings the keyboard bell.
func (conn *Conn) Bell(percent int8) error {
	C.xcb_bell(conn.c, C.int8_t(percent))
	return conn.hasError()
}

// CreateGC creates a graphics context with default values on drawable.
func (conn *Conn) CreateGC(drawable uint32) (uint32, error) {
	gc := C.xcb_generate_id(conn.c)
	C.xcb_create_gc(conn.c, C.xcb_gcontext_t(gc), C.xcb_drawable_t(drawable), 0, nil)
	return uint32(gc), conn.hasError()
}

// FreeGC frees gc.
func (conn *Conn) FreeGC(gc uint32) error {
	C.xcb_free_gc(conn.c, C.xcb_gcontext_t(gc))
	return conn.hasError()
}

// PutImage uploads a ZPixmap image with stride bytes per row, split into
// as many requests as the maximum request length requires.
func (conn *Conn) PutImage(drawable, gc uint32, width, height, x, y, stride int, data []byte) error {
	rows := RowsPerRequest(conn.MaxRequestLength(), stride)
	if rows == 0 {
		return &ConnectionError{ConnClosedReqLenExceed}
	}
	depth := C.uint8_t(conn.Depth())
	for top := 0; top < height; top += rows {
		n := min(rows, height-top)
		chunk := data[top*stride : (top+n)*stride]
		C.xcb_put_image(conn.c, C.XCB_IMAGE_FORMAT_Z_PIXMAP,
			C.xcb_drawable_t(drawable), C.xcb_gcontext_t(gc),
			C.uint16_t(width), C.uint16_t(n), C.int16_t(x), C.int16_t(y+top),
			0, depth, C.uint32_t(len(chunk)), (*C.uint8_t)(unsafe.Pointer(&chunk[0])))
		if err := conn.hasError(); err != nil {
			return err
		}
	}
	return nil
}

// PollEvent returns the next queued event without blocking.
func (conn *Conn) PollEvent() (Event, bool, error) {
	var e C.xdm_xcb_event_t
	if C.xdm_xcb_poll_event(conn.c, conn.syms, &e) == 0 {
		return Event{}, false, conn.hasError()
	}
	return Event{
		Type:   uint8(e._type),
		Detail: uint8(e.detail),
		State:  uint16(e.state),
		Count:  uint16(e.count),
		Window: uint32(e.window),
	}, true, nil
}

// Keysyms returns the unshifted and shifted keysyms of keycode.
func (conn *Conn) Keysyms(keycode uint8) (uint32, uint32) {
	return uint32(C.xcb_key_symbols_get_keysym(conn.syms, C.xcb_keycode_t(keycode), 0)),
		uint32(C.xcb_key_symbols_get_keysym(conn.syms, C.xcb_keycode_t(keycode), 1))
}

func (conn *Conn) replyError(request string, e *C.xcb_generic_error_t) error {
	if e != nil {
		code := uint8(e.error_code)
		C.free(unsafe.Pointer(e))
		return &RequestError{request, code}
	}
	if err := conn.hasError(); err != nil {
		return err
	}
	return &RequestError{request, 0}
}
