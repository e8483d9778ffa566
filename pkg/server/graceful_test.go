package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/dd0wney/cluso-lci/pkg/logging"
)

func text(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	})
}

func get(t *testing.T, addr string) string {
	t.Helper()
	resp, err := http.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return string(body)
}

func start(t *testing.T, gs *GracefulServer) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(ctx, ln) }()
	return ln.Addr().String(), cancel, errCh
}

func TestGracefulServer_ShutdownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreAnyFunction("os/signal.loop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	gs := NewGracefulServer("127.0.0.1:0", text("v1"), WithLogger(logging.NewNopLogger()))
	addr, cancel, errCh := start(t, gs)

	if got := get(t, addr); got != "v1" {
		t.Errorf("body = %q, want v1", got)
	}
	http.DefaultClient.CloseIdleConnections()

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if !gs.IsShuttingDown() {
		t.Error("IsShuttingDown = false after shutdown")
	}
}

func TestGracefulServer_Reload(t *testing.T) {
	calls := 0
	reload := func(ctx context.Context) (http.Handler, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("workflow invalid")
		}
		return text("v2"), nil
	}
	gs := NewGracefulServer("127.0.0.1:0", text("v1"),
		WithLogger(logging.NewNopLogger()),
		WithReload(reload),
		WithShutdownTimeout(time.Second),
	)
	addr, cancel, errCh := start(t, gs)
	defer func() {
		cancel()
		<-errCh
	}()

	if err := gs.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := get(t, addr); got != "v2" {
		t.Errorf("body after reload = %q, want v2", got)
	}

	if err := gs.Reload(context.Background()); err == nil {
		t.Error("expected failing reload to return an error")
	}
	if got := get(t, addr); got != "v2" {
		t.Errorf("body after failed reload = %q, want v2", got)
	}
}

func TestGracefulServer_ReloadWithoutFunc(t *testing.T) {
	gs := NewGracefulServer(":0", text("v1"), WithLogger(logging.NewNopLogger()))
	if err := gs.Reload(context.Background()); err != nil {
		t.Errorf("Reload without a function = %v, want nil", err)
	}
}
