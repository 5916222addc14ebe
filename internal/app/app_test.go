package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer lets the server goroutines log while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunHelpPrintsUsage(t *testing.T) {
	out := &syncBuffer{}
	rt := newRuntime(NewRegistry(), out)

	require.NoError(t, rt.run(context.Background(), []string{"--help"}, ScanBasePackage))
	assert.Contains(t, out.String(), "restapidemo")
	assert.Contains(t, out.String(), "--store-driver")
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	rt := newRuntime(NewRegistry(), &syncBuffer{})
	err := rt.run(context.Background(), []string{"--no-such-flag"}, ScanBasePackage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-flag")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	reg := NewRegistry()
	reg.Register("primephil/test", noopFactory)
	rt := newRuntime(reg, &syncBuffer{})

	err := rt.run(context.Background(), []string{"--store-driver", "postgres"}, ScanBasePackage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestRunFailsWithoutModules(t *testing.T) {
	reg := NewRegistry()
	reg.Register("elsewhere/module", noopFactory)
	rt := newRuntime(reg, &syncBuffer{})

	err := rt.run(context.Background(), []string{"--addr", "127.0.0.1:0"}, ScanBasePackage)
	require.ErrorIs(t, err, ErrNoModules)
}

func TestRunSurfacesModuleErrors(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	reg.Register("primephil/broken", func(context.Context, *Container) (Module, error) { return nil, boom })
	rt := newRuntime(reg, &syncBuffer{})

	err := rt.run(context.Background(), []string{"--addr", "127.0.0.1:0"}, ScanBasePackage)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "primephil/broken")
}

func TestRunServesUntilCancelled(t *testing.T) {
	reg := NewRegistry()
	reg.Register("primephil/restapidemo/ping", func(context.Context, *Container) (Module, error) {
		return routesModule{register: func(r chi.Router) {
			r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
		}}, nil
	})

	out := &syncBuffer{}
	rt := newRuntime(reg, out)
	addrs := make(chan string, 1)
	rt.ready = func(addr string) { addrs <- addr }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- rt.run(ctx, []string{"serve", "--addr", "127.0.0.1:0", "--log-format", "text"}, ScanBasePackage)
	}()

	var addr string
	select {
	case addr = <-addrs:
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	for _, path := range []string{"/ping", "/healthz", "/readyz"} {
		resp, err := http.Get(fmt.Sprintf("http://%s%s", addr, path))
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Less(t, resp.StatusCode, 300, path)
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Contains(t, out.String(), "module started")
	assert.Contains(t, out.String(), "shutdown complete")
}
