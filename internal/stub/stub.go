// Package stub provides function call level stubbing and validation
// for system calls that are impossible to check otherwise.
package stub

import (
	"reflect"
	"testing"
)

// this should prevent stub from being inadvertently imported outside tests
var _ = func() {
	if !testing.Testing() {
		panic("stub imported while not in a test")
	}
}

// ExpectArgs is an array primarily for storing expected function arguments.
// Its actual use is defined by the implementation.
type ExpectArgs = [5]any

// A Call holds expected arguments of a function call and its outcome.
type Call struct {
	// Name is the function Name of this call.
	Name string
	// Args are the expected arguments of this Call.
	Args ExpectArgs
	// Ret is the return value of this Call.
	Ret any
	// Err is the returned error of this Call.
	Err error
}

// Error returns [Call.Err] if all arguments are true, or [ErrCheck] otherwise.
func (k *Call) Error(ok ...bool) error {
	for _, v := range ok {
		if !v {
			return ErrCheck
		}
	}
	return k.Err
}

// A Stub holds a sequence of expected calls and the position within it.
type Stub struct {
	testing.TB

	want []Call
	pos  int
}

// New returns a [Stub] expecting calls in the order of want.
func New(tb testing.TB, want []Call) *Stub { return &Stub{TB: tb, want: want} }

func (s *Stub) FailNow()          { s.Helper(); panic(panicFailNow) }
func (s *Stub) Fatal(args ...any) { s.Helper(); s.Error(args...); panic(panicFatal) }
func (s *Stub) Fatalf(format string, args ...any) {
	s.Helper()
	s.Errorf(format, args...)
	panic(panicFatalf)
}

// Pos returns the current position of [Stub] in its expected calls.
func (s *Stub) Pos() int { return s.pos }

// Len returns the number of expected calls.
func (s *Stub) Len() int { return len(s.want) }

// Expects checks the name of and returns the current [Call] and advances pos.
func (s *Stub) Expects(name string) (expect *Call) {
	s.Helper()
	if len(s.want) == s.pos {
		s.Fatalf("Expects: advancing beyond expected calls, got %s", name)
	}
	expect = &s.want[s.pos]
	if name != expect.Name {
		s.Fatalf("Expects: func = %s, want %s", name, expect.Name)
	}
	s.pos++
	return
}

// Done fails the test if not all expected calls were made.
func (s *Stub) Done() {
	s.Helper()
	if s.pos != len(s.want) {
		s.Errorf("Done: %d calls made, want %d (next %s)", s.pos, len(s.want), s.want[s.pos].Name)
	}
}

// CheckArg checks an argument comparable with the == operator. Avoid using this with pointers.
func CheckArg[T comparable](s *Stub, arg string, got T, n int) bool {
	s.Helper()
	pos := s.pos - 1
	if pos < 0 || pos >= len(s.want) {
		panic("invalid call to CheckArg")
	}
	expect := s.want[pos]
	want, ok := expect.Args[n].(T)
	if !ok || got != want {
		s.Errorf("%s: %s = %#v, want %#v (%d)", expect.Name, arg, got, want, pos)
		return false
	}
	return true
}

// CheckArgReflect checks an argument of any type.
func CheckArgReflect(s *Stub, arg string, got any, n int) bool {
	s.Helper()
	pos := s.pos - 1
	if pos < 0 || pos >= len(s.want) {
		panic("invalid call to CheckArgReflect")
	}
	expect := s.want[pos]
	want := expect.Args[n]
	if !reflect.DeepEqual(got, want) {
		s.Errorf("%s: %s = %#v, want %#v (%d)", expect.Name, arg, got, want, pos)
		return false
	}
	return true
}
