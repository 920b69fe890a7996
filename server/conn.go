package server

import (
	"io"
	"log/slog"
	"net"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"rawhttp/httpmsg"
	"rawhttp/stream"
)

// handleConn owns one connection for its whole lifetime, looping over
// sequential request/response exchanges while keep-alive holds.
func (s *Server) handleConn(conn net.Conn, logger *slog.Logger) {
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Debug("error closing connection", "error", err)
		}
	}()

	framer := stream.NewFramer(conn, s.cfg.Conn.BufferSize)

	for {
		raw, err := framer.ReadRequest()
		if err != nil {
			s.respondToReadError(framer, logger, err)
			return
		}

		if strings.TrimSpace(raw) == "" {
			logger.Debug("client closed connection")
			return
		}

		response, keepAlive := s.dispatch(raw, logger)

		wire := response.Format()
		if keepAlive && response.Headers.Has("Transfer-Encoding") {
			wire = response.FormatChunked()
		}

		if s.cfg.Conn.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(s.clock.Now().Add(s.cfg.Conn.WriteTimeout))
		}
		if err := framer.WriteResponse(wire); err == nil {
			err = framer.Flush()
			if err != nil {
				logger.Warn("failed to flush response", "error", err)
				return
			}
		} else {
			logger.Error("failed to send response", "error", err)
			return
		}

		if !keepAlive || responseAsksClose(response) {
			logger.Debug("closing connection")
			return
		}

		// Re-arm the read deadline for the next exchange on this
		// connection.
		if s.cfg.Conn.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(s.clock.Now().Add(s.cfg.Conn.ReadTimeout))
		}
	}
}

// dispatch parses one framed request and routes it. A parse failure is
// answered with 400 and ends the connection; it is not retried.
func (s *Server) dispatch(raw string, logger *slog.Logger) (*httpmsg.Response, bool) {
	request, err := httpmsg.Parse(raw)
	if err != nil {
		logger.Warn("malformed request", "error", err)
		s.logRequest(logger, "INVALID", "N/A", 400)

		response := httpmsg.NewResponse(400).
			WithContentType("text/html").
			WithConnection("close").
			WithBody("<h1>400 - Bad Request</h1><p>The request could not be parsed.</p>")
		return response, false
	}

	keepAlive := wantsKeepAlive(request) && clientAcceptsChunked(request)

	response := s.router.Route(request)
	if keepAlive {
		response.WithConnection("keep-alive")
	} else {
		response.WithConnection("close")
	}

	s.logRequest(logger, request.Method, request.Path, response.Code)

	return response, keepAlive
}

func (s *Server) logRequest(logger *slog.Logger, method, path string, status int) {
	if !s.cfg.Logging.LogRequests {
		return
	}
	logger.Info("request", "method", method, "path", path, "status", status)
}

// respondToReadError classifies a framing failure and, where the
// socket is still writable, answers it before closing.
func (s *Server) respondToReadError(framer *stream.Framer, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, io.EOF):
		logger.Debug("client closed connection")

	case isTimeout(err):
		logger.Warn("read timeout")
		response := httpmsg.NewResponse(408).
			WithContentType("text/plain").
			WithConnection("close").
			WithBody("Request timed out")
		// Best effort; the deadline already expired once.
		_ = framer.WriteResponse(response.Format())
		_ = framer.Flush()

	case errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		logger.Warn("connection broke mid-request", "error", err)

	default:
		logger.Error("read error", "error", err)
	}
}

// wantsKeepAlive derives connection reuse from the request: an
// explicit Connection header wins, otherwise HTTP/1.1 defaults to
// keep-alive and anything older to close.
func wantsKeepAlive(request *httpmsg.Request) bool {
	if connection, ok := request.Headers.Get("connection"); ok {
		return strings.Contains(strings.ToLower(connection), "keep-alive")
	}

	return request.Version == "HTTP/1.1"
}

// clientAcceptsChunked reports whether the client's TE header permits
// chunked responses. Absent a TE header, chunked is assumed fine.
func clientAcceptsChunked(request *httpmsg.Request) bool {
	te, ok := request.Headers.Get("te")
	if !ok {
		return true
	}

	return strings.Contains(te, "chunked")
}

func responseAsksClose(response *httpmsg.Response) bool {
	connection, ok := response.Headers.Get("connection")
	return ok && strings.Contains(strings.ToLower(connection), "close")
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
