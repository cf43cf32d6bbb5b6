// Package xcb implements the X11 requests used by xdm via libxcb.
package xcb

import "strconv"

// Event is a decoded X event. Detail holds the keycode of a key press or the error code of an error.
type Event struct {
	Type   uint8
	Detail uint8
	State  uint16
	Count  uint16
	Window uint32
}

// Format describes the ZPixmap layout at one depth.
type Format struct {
	Depth        uint8
	BitsPerPixel int
	ScanlinePad  int
	LSBFirst     bool
}

// putImageHeader is the fixed size of a PutImage request.
const putImageHeader = 24

// RowsPerRequest returns how many rows of stride bytes fit in one PutImage request of at most maxRequest bytes.
func RowsPerRequest(maxRequest, stride int) int {
	if stride <= 0 || maxRequest <= putImageHeader {
		return 0
	}
	return (maxRequest - putImageHeader) / stride
}

// ConnectionError is the error state of an X connection.
type ConnectionError struct{ errno int }

func (ce *ConnectionError) Error() string {
	switch ce.errno {
	case ConnError:
		return "connection error"
	case ConnClosedExtNotSupported:
		return "extension not supported"
	case ConnClosedMemInsufficient:
		return "memory not available"
	case ConnClosedReqLenExceed:
		return "request length exceeded"
	case ConnClosedParseErr:
		return "invalid display string"
	case ConnClosedInvalidScreen:
		return "server has no screen matching display"
	default:
		return "generic X11 failure"
	}
}

// ConnectError is returned by [Connect].
type ConnectError struct {
	Display string
	Err     error
}

func (e *ConnectError) Unwrap() error { return e.Err }
func (e *ConnectError) Error() string { return "cannot connect to display " + e.Display + ": " + e.Err.Error() }

// Message returns a user-facing error message.
func (e *ConnectError) Message() string {
	return "unable to connect to the x server on display " + e.Display
}

// RequestError is an X protocol error reply.
type RequestError struct {
	Request string
	Code    uint8
}

func (e *RequestError) Error() string {
	if e.Code == 0 {
		return e.Request + " failed"
	}
	return e.Request + " failed with error code " + strconv.Itoa(int(e.Code))
}
