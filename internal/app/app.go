// Package app is the application runtime: it selects the registered modules
// under a scan root, wires their shared dependencies and runs the HTTP
// server and background workers until the context ends or the process is
// signalled.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"restapidemo/internal/platform/config"
	"restapidemo/internal/platform/httpserver"
	"restapidemo/internal/platform/logger"
)

// Run parses args, starts every module registered under scanBase and blocks
// until shutdown. "--help" prints usage and returns nil.
func Run(ctx context.Context, args []string, scanBase string) error {
	return newRuntime(defaultRegistry, os.Stdout).run(ctx, args, scanBase)
}

type runtime struct {
	registry *Registry
	out      io.Writer
	// ready, when set, receives the bound address once the listener is open.
	ready func(addr string)
}

func newRuntime(registry *Registry, out io.Writer) *runtime {
	return &runtime{registry: registry, out: out}
}

func (rt *runtime) run(ctx context.Context, args []string, scanBase string) error {
	if args == nil {
		// cobra falls back to os.Args when given nil.
		args = []string{}
	}

	cmd := newRootCommand(func(ctx context.Context, cfg config.Server) error {
		return rt.serve(ctx, cfg, scanBase)
	}, rt.out)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func (rt *runtime) serve(ctx context.Context, cfg config.Server, scanBase string) error {
	log := logger.NewWithWriter(rt.out, cfg.LogLevel, cfg.LogFormat)

	registrations := rt.registry.Modules(scanBase)
	if len(registrations) == 0 {
		return fmt.Errorf("%w %q", ErrNoModules, scanBase)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := NewContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Error("failed to release resources", "error", err)
		}
	}()

	modules := make([]Module, 0, len(registrations))
	for _, reg := range registrations {
		m, err := reg.Factory(ctx, c)
		if err != nil {
			return fmt.Errorf("start module %s: %w", reg.Namespace, err)
		}
		modules = append(modules, m)
		log.Info("module started", "namespace", reg.Namespace)
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	srv := httpserver.New(cfg.Addr, NewRouter(c, modules))

	// The worker outlives the request context so events enqueued by
	// requests still draining during shutdown are flushed.
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorker()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Events.Run(workerCtx)
	})
	g.Go(func() error {
		log.Info("starting restapidemo", "addr", ln.Addr().String(), "store", cfg.StoreDriver)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopWorker()

		log.Info("shutting down", "timeout", cfg.ShutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	if rt.ready != nil {
		rt.ready(ln.Addr().String())
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
