package daemon

import (
	"context"
	"os"
	"os/exec"
	"time"

	"hakurei.app/xdm/internal/auth"
	"hakurei.app/xdm/internal/config"
	"hakurei.app/xdm/internal/message"
	"hakurei.app/xdm/internal/server"
	"hakurei.app/xdm/internal/stub"
)

type kstub struct {
	*stub.Stub
	cancel context.CancelFunc
}

func (k *kstub) geteuid() int { k.Helper(); return k.Expects("geteuid").Ret.(int) }

func (k *kstub) lookupEnv(key string) (string, bool) {
	k.Helper()
	expect := k.Expects("lookupEnv")
	if !stub.CheckArg(k.Stub, "key", key, 0) {
		k.FailNow()
	}
	if expect.Ret == nil {
		return "", false
	}
	return expect.Ret.(string), true
}

func (k *kstub) environ() []string { k.Helper(); return k.Expects("environ").Ret.([]string) }

func (k *kstub) executable(message.Msg) string {
	k.Helper()
	return k.Expects("executable").Ret.(string)
}

func (k *kstub) start(c *exec.Cmd) error {
	k.Helper()
	return k.Expects("start").Error(
		stub.CheckArg(k.Stub, "c.Path", c.Path, 0),
		stub.CheckArgReflect(k.Stub, "c.Args", c.Args, 1),
		stub.CheckArgReflect(k.Stub, "c.Env", c.Env, 2),
		stub.CheckArg(k.Stub, "c.SysProcAttr.Setsid", c.SysProcAttr != nil && c.SysProcAttr.Setsid, 3))
}

func (k *kstub) openFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	k.Helper()
	expect := k.Expects("openFile")
	f, _ := expect.Ret.(*os.File)
	return f, expect.Error(
		stub.CheckArg(k.Stub, "name", name, 0),
		stub.CheckArg(k.Stub, "flag", flag, 1),
		stub.CheckArg(k.Stub, "perm", perm, 2))
}

func (k *kstub) dup2(oldfd, newfd int) error {
	k.Helper()
	expect := k.Expects("dup2")
	// oldfd is only known after openFile returns
	return expect.Error(
		oldfd >= 0,
		stub.CheckArg(k.Stub, "newfd", newfd, 1))
}

func (k *kstub) exit(code int) {
	k.Helper()
	k.Expects("exit")
	if !stub.CheckArg(k.Stub, "code", code, 0) {
		k.FailNow()
	}
	panic(stub.PanicExit)
}

func (k *kstub) startServer(_ context.Context, command []string, timeout time.Duration, _ message.Msg) (*server.Handle, error) {
	k.Helper()
	expect := k.Expects("startServer")
	h, _ := expect.Ret.(*server.Handle)
	return h, expect.Error(
		stub.CheckArgReflect(k.Stub, "command", command, 0),
		stub.CheckArg(k.Stub, "timeout", timeout, 1))
}

func (k *kstub) terminateServer(h *server.Handle) error {
	k.Helper()
	return k.Expects("terminateServer").Error(
		stub.CheckArg(k.Stub, "h", h, 0))
}

func (k *kstub) connect(display string) (Display, error) {
	k.Helper()
	expect := k.Expects("connect")
	if err := expect.Error(
		stub.CheckArg(k.Stub, "display", display, 0)); err != nil {
		return nil, err
	}
	return &stubDisplay{k: k}, nil
}

func (k *kstub) softReset(d server.Display) (int, error) {
	k.Helper()
	expect := k.Expects("softReset")
	if _, ok := d.(*stubDisplay); !ok {
		k.Errorf("softReset: unexpected display %#v", d)
	}
	n, _ := expect.Ret.(int)
	return n, expect.Err
}

func (k *kstub) greeter(conn Display, c *config.Config, _ message.Msg) Greeter {
	k.Helper()
	k.Expects("greeter")
	if _, ok := conn.(*stubDisplay); !ok || c == nil {
		k.FailNow()
	}
	return k
}

func (k *kstub) sessions(c *config.Config, _ message.Msg) Launcher {
	k.Helper()
	k.Expects("sessions")
	if c == nil {
		k.FailNow()
	}
	return k
}

func (k *kstub) after(d time.Duration) <-chan time.Time {
	k.Helper()
	k.Expects("after")
	if !stub.CheckArg(k.Stub, "d", d, 0) {
		k.FailNow()
	}
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

// Next implements [Greeter]. A call with "cancel" as its first argument cancels the context.
func (k *kstub) Next(ctx context.Context) (*auth.Account, error) {
	k.Helper()
	expect := k.Expects("next")
	if expect.Args[0] == "cancel" {
		k.cancel()
		return nil, ctx.Err()
	}
	a, _ := expect.Ret.(*auth.Account)
	return a, expect.Err
}

// Start implements [Launcher].
func (k *kstub) Start(_ context.Context, a *auth.Account, display string) (Session, error) {
	k.Helper()
	expect := k.Expects("startSession")
	if err := expect.Error(
		stub.CheckArg(k.Stub, "a", a, 0),
		stub.CheckArg(k.Stub, "display", display, 1)); err != nil {
		return nil, err
	}
	return stubSession{k}, nil
}

type stubSession struct{ k *kstub }

func (s stubSession) Wait() error { s.k.Helper(); return s.k.Expects("wait").Err }

// stubDisplay panics on every method other than Close.
type stubDisplay struct {
	Display
	k *kstub
}

func (d *stubDisplay) Close() { d.k.Helper(); d.k.Expects("close") }
