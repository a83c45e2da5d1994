package ws

import (
	"chat-pulse/contract"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

var _ contract.Worker = (*Server)(nil)

// Server exposes the gateway on /ws next to the debug endpoints. It runs as
// a supervised worker and shuts down when its context ends.
type Server struct {
	log             *slog.Logger
	addr            string
	handler         http.Handler
	shutdownTimeout time.Duration
}

func NewServer(log *slog.Logger, addr string, gateway http.Handler, stats http.Handler,
	shutdownTimeout time.Duration) *Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", gateway)
	if stats != nil {
		mux.Handle("/debug/stats", stats)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &Server{
		log:             log,
		addr:            addr,
		handler:         mux,
		shutdownTimeout: shutdownTimeout,
	}
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting websocket server", "address", s.addr, "at", time.Now().UTC())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("Websocket server shutdown", "error", err)
		}
		return nil
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}
