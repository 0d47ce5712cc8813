package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/clips-backend/pkg/logger"
)

// Handler exposes gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Server is the /metrics listener used by the background workers, which have
// no HTTP surface of their own.
type Server struct {
	srv  *http.Server
	addr string
	logg *logger.Logger
}

// Listen binds addr and serves the default registry until Shutdown. An empty
// addr disables the listener and returns a nil Server, which is safe to shut
// down.
func Listen(ctx context.Context, addr string, logg *logger.Logger) (*Server, error) {
	if addr == "" {
		return nil, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(prometheus.DefaultGatherer))
	s := &Server{
		srv:  &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		addr: ln.Addr().String(),
		logg: logg,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && logg != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()
	if logg != nil {
		logg.Info(logg.WithField(ctx, "addr", s.addr), "metrics listener started")
	}
	return s, nil
}

// Addr is the bound address, useful when addr asked for port 0.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

func (s *Server) Shutdown(ctx context.Context) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "metrics listener shutdown")
	}
}
