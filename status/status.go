package status

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/mlcocdav/ctfbench/global"
	"github.com/mlcocdav/ctfbench/pkg/eval"
)

// Server exposes the run status over HTTP: a healthcheck endpoint for
// orchestrators, and a progress endpoint reporting how far the run got.
type Server struct {
	Options

	hs *http.Server
}

// Options to configure it once for all.
type Options struct {
	Port    int
	Tracker *eval.Tracker
}

// NewServer returns a fresh status server.
func NewServer(opts Options) *Server {
	return &Server{
		Options: opts,
	}
}

// Run the status server in backend.
func (s *Server) Run(ctx context.Context) error {
	logger := global.Log()
	logger.Info(ctx, "status server start listening",
		zap.Int("port", s.Port),
	)
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Port))
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/healthcheck", healthcheck(ctx))
	mux.Handle("/progress", progress(s.Tracker))

	s.hs = &http.Server{
		Handler:           otelhttp.NewHandler(mux, "status"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.hs.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "status server", zap.Error(err))
		}
	}()
	return nil
}

// Close gracefully shuts down the status server.
func (s *Server) Close(ctx context.Context) error {
	if s.hs == nil {
		return nil
	}
	return s.hs.Shutdown(ctx)
}
