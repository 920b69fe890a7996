// Package server owns the listener and the per-connection lifecycle:
// it admits connections through the worker pool, frames requests off
// the socket, dispatches them through the router and writes responses
// back, holding keep-alive connections open across exchanges.
package server

import (
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"rawhttp/auth"
	"rawhttp/httpmsg"
	"rawhttp/pool"
	"rawhttp/router"
)

// tokenSweepInterval is how often expired tokens are swept out of the
// token store.
const tokenSweepInterval = 10 * time.Minute

type Server struct {
	cfg    Config
	logger *slog.Logger
	clock  clock.Clock

	listener net.Listener
	router   *router.Router
	pool     *pool.Pool
	users    *auth.UserStore
	tokens   *auth.TokenManager

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New wires the router, auth state and worker pool from cfg. The
// listener is not bound until Listen.
func New(cfg Config, logger *slog.Logger, clk clock.Clock) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		clock:  clk,
		users:  auth.NewUserStore(),
		tokens: auth.NewTokenManager(clk, 0),
		done:   make(chan struct{}),
	}

	s.router = router.New(s.users, s.tokens, logger)

	if cfg.Static.Enabled {
		s.router.SetStaticDir(cfg.Static.Directory)
	}

	if cfg.Auth.Enabled {
		for username, password := range cfg.Auth.Users {
			if err := s.users.Register(username, password); err != nil {
				return nil, errors.Wrapf(err, "registering initial user %q", username)
			}
		}
		for _, path := range cfg.Auth.ProtectedPaths {
			s.router.AddProtectedPath(path)
		}
	}

	s.registerBuiltinRoutes()

	s.pool = pool.New(cfg.Pool.Workers, cfg.Pool.MaxConnections, logger)

	return s, nil
}

// AddRoute exposes route registration to embedders. Startup only.
func (s *Server) AddRoute(method, path string, handler router.Handler) {
	s.router.AddRoute(method, path, handler)
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.cfg.Listen.Address())
	if err != nil {
		return errors.Wrap(err, "binding listener")
	}

	s.listener = listener
	s.logger.Info("listening",
		"addr", listener.Addr().String(),
		"workers", s.cfg.Pool.Workers,
		"max_connections", s.pool.Max(),
	)

	return nil
}

// Addr reports the bound address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the accept loop until the listener closes. Transient
// accept failures are logged and skipped; anything else is fatal.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}

	s.wg.Add(1)
	go s.sweepTokens()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if isTransientAcceptError(err) {
				s.logger.Warn("transient accept failure", "error", err)
				continue
			}
			return errors.Wrap(err, "accepting connection")
		}

		s.admit(conn)
	}
}

// admit hands the connection to the pool. On refusal the listener
// itself writes the capacity response and closes the socket; the pool
// is never touched.
func (s *Server) admit(conn net.Conn) {
	logger := s.logger.With("conn", conn.RemoteAddr().String())

	if s.cfg.Conn.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(s.clock.Now().Add(s.cfg.Conn.ReadTimeout)); err != nil {
			logger.Warn("failed to set read deadline", "error", err)
		}
	}

	err := s.pool.Execute(func() { s.handleConn(conn, logger) })
	if err == nil {
		return
	}

	logger.Warn("connection rejected", "error", err, "active", s.pool.Active())

	response := httpmsg.NewResponse(503).
		WithContentType("text/html").
		WithConnection("close").
		WithBody("<h1>503 - Service Unavailable</h1><p>Server is too busy to handle your request.</p>")

	_, _ = conn.Write([]byte(response.Format()))
	_ = conn.Close()
}

// Close stops admitting, closes the listener, and drains the pool.
// In-flight jobs finish; nothing is preempted. Idempotent.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			err = s.listener.Close()
		}
		s.pool.Close()
		s.wg.Wait()
	})

	return errors.Wrap(err, "closing listener")
}

func (s *Server) sweepTokens() {
	defer s.wg.Done()

	ticker := s.clock.Ticker(tokenSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if removed := s.tokens.CleanupExpired(); removed > 0 {
				s.logger.Debug("swept expired tokens", "removed", removed)
			}
		}
	}
}

func isTransientAcceptError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
