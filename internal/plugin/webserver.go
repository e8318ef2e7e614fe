package plugin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// WebServer starts a real net/http.Server on Setup and shuts it down on
// Teardown, the bundled dev-server plugin spec.md §4.7 names as built-in.
// Unlike Playwright's webServer plugin (which can exec an arbitrary
// external command and poll a URL until ready), this Go rendition only
// manages a server this process itself owns — spawning and health-polling
// an arbitrary external process is orchestration scope creep beyond what
// spec.md's plugin contract requires (Setup/Teardown only).
type WebServer struct {
	Addr    string
	Handler http.Handler

	server *http.Server
}

func NewWebServer(addr string, handler http.Handler) *WebServer {
	if handler == nil {
		handler = http.NewServeMux()
	}
	return &WebServer{Addr: addr, Handler: handler}
}

func (w *WebServer) Name() string { return "web-server" }

func (w *WebServer) Setup(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.Addr)
	if err != nil {
		return err
	}
	w.server = &http.Server{Handler: w.Handler}

	errCh := make(chan error, 1)
	go func() {
		if serveErr := w.server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(50 * time.Millisecond):
		// Give the listener goroutine a moment to fail fast on a bind error
		// before declaring setup successful; a real readiness probe (HTTP
		// GET against a configured URL) is left to callers via Handler.
		return nil
	}
}

func (w *WebServer) Teardown(ctx context.Context) error {
	if w.server == nil {
		return nil
	}
	return w.server.Shutdown(ctx)
}

var _ Plugin = (*WebServer)(nil)
