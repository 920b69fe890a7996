package server

import (
	"fmt"
	"sort"
	"strings"

	"rawhttp/httpmsg"
)

func (s *Server) registerBuiltinRoutes() {
	s.router.AddRoute("GET", "/", handleHome)
	s.router.AddRoute("GET", "/hello", handleHello)
	s.router.AddRoute("GET", "/api/status", handleStatus)
	s.router.AddRoute("GET", "/api/stats", s.handleStats)
	s.router.AddRoute("POST", "/api/echo", handleEcho)
	s.router.AddRoute("GET", "/admin", handleAdmin)
	s.router.AddRoute("GET", "/chunked", handleChunked)
}

func handleHome(request *httpmsg.Request) *httpmsg.Response {
	var b strings.Builder
	b.WriteString("<h1>Welcome!</h1>")
	b.WriteString("<p>Available routes:</p><ul>")
	b.WriteString("<li><a href='/hello'>GET /hello</a></li>")
	b.WriteString("<li><a href='/api/status'>GET /api/status</a></li>")
	b.WriteString("<li>POST /api/echo</li>")
	b.WriteString("</ul>")

	params := httpmsg.ParseQueryParams(request.Path)
	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for key := range params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		b.WriteString("<h3>Query Parameters:</h3><ul>")
		for _, key := range keys {
			fmt.Fprintf(&b, "<li>%s: %s</li>", key, params[key])
		}
		b.WriteString("</ul>")
	}

	return httpmsg.NewResponse(200).
		WithContentType("text/html").
		WithBody(b.String())
}

func handleHello(request *httpmsg.Request) *httpmsg.Response {
	name := "World"
	if v, ok := httpmsg.ParseQueryParams(request.Path)["name"]; ok && v != "" {
		name = v
	}

	return httpmsg.NewResponse(200).
		WithContentType("text/plain").
		WithBody(fmt.Sprintf("Hello, %s!", name))
}

func handleStatus(_ *httpmsg.Request) *httpmsg.Response {
	return httpmsg.NewResponse(200).
		WithContentType("application/json").
		WithBody(`{"status":"ok","server":"rawhttp","version":"1.0.0"}`)
}

func (s *Server) handleStats(_ *httpmsg.Request) *httpmsg.Response {
	body := fmt.Sprintf(
		`{"server":"rawhttp","workers":%d,"active_connections":%d,"max_connections":%d}`,
		s.cfg.Pool.Workers, s.pool.Active(), s.pool.Max(),
	)

	return httpmsg.NewResponse(200).
		WithContentType("application/json").
		WithBody(body)
}

func handleEcho(request *httpmsg.Request) *httpmsg.Response {
	body := fmt.Sprintf(`{"method":"%s","path":"%s","body":"%s"}`,
		request.Method, request.Path, request.Body)

	return httpmsg.NewResponse(200).
		WithContentType("application/json").
		WithBody(body)
}

func handleAdmin(_ *httpmsg.Request) *httpmsg.Response {
	return httpmsg.NewResponse(200).
		WithContentType("text/html").
		WithBody("<h1>Admin Panel</h1><p>You successfully authenticated.</p>")
}

func handleChunked(_ *httpmsg.Request) *httpmsg.Response {
	content := strings.Repeat("This is a demonstration of chunked transfer encoding. ", 20)

	return httpmsg.NewResponse(200).
		WithContentType("text/plain").
		WithChunkedEncoding().
		WithBody(content)
}
