// Package router resolves parsed requests to responses: an
// authentication gate over protected path prefixes, built-in auth
// endpoints, static-resource resolution under a configured root, and
// an exact-match route table.
package router

import (
	"encoding/base64"
	"log/slog"
	"strings"

	"rawhttp/auth"
	"rawhttp/httpmsg"
)

// Handler produces a response for a parsed request. Handlers are
// registered at startup; the table is read-only afterwards and shared
// across connections without locking.
type Handler func(*httpmsg.Request) *httpmsg.Response

type route struct {
	method  string
	path    string
	handler Handler
}

type Router struct {
	routes    []route
	staticDir string
	protected []string

	users  *auth.UserStore
	tokens *auth.TokenManager

	logger *slog.Logger
}

func New(users *auth.UserStore, tokens *auth.TokenManager, logger *slog.Logger) *Router {
	return &Router{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// AddRoute registers an exact (method, path) route. Startup only.
func (r *Router) AddRoute(method, path string, handler Handler) {
	r.routes = append(r.routes, route{method: method, path: path, handler: handler})
}

// SetStaticDir enables static-file serving rooted at dir. Startup only.
func (r *Router) SetStaticDir(dir string) {
	r.staticDir = dir
}

// AddProtectedPath requires authentication for every path under the
// given prefix. Startup only.
func (r *Router) AddProtectedPath(path string) {
	r.protected = append(r.protected, path)
}

// Route resolves a request to a response. Decision order: auth gate on
// protected prefixes, built-in auth endpoints by exact path, static
// serving for GETs under the static root, the exact-match route table,
// a static retry covering the remaining GET paths (root included),
// then 404.
func (r *Router) Route(request *httpmsg.Request) *httpmsg.Response {
	path := httpmsg.StripQuery(request.Path)

	if r.isProtected(path) && !r.authenticate(request) {
		return httpmsg.NewResponse(401).
			WithContentType("text/html").
			WithHeader("WWW-Authenticate", `Basic realm="Protected Area"`).
			WithBody("<h1>401 - Unauthorized</h1><p>Authentication required to access this resource.</p>")
	}

	switch path {
	case "/api/register":
		return r.handleRegister(request)
	case "/api/login":
		return r.handleLogin(request)
	case "/api/logout":
		return r.handleLogout(request)
	}

	if request.Method == "GET" && r.staticDir != "" && r.underStaticRoot(path) {
		if response := r.serveStatic(path); response != nil {
			return response
		}
	}

	for _, route := range r.routes {
		if route.method == request.Method && route.path == path {
			return route.handler(request)
		}
	}

	if request.Method == "GET" && r.staticDir != "" {
		if response := r.serveStatic(path); response != nil {
			return response
		}
	}

	return httpmsg.NewResponse(404).
		WithContentType("text/html").
		WithBody("<h1>404 - Page Not Found</h1><p>The requested resource could not be found.</p>")
}

func (r *Router) isProtected(path string) bool {
	for _, prefix := range r.protected {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// authenticate accepts either a Bearer token validated against the
// token manager or Basic credentials checked against the user store.
func (r *Router) authenticate(request *httpmsg.Request) bool {
	header, ok := request.Headers.Get("authorization")
	if !ok {
		return false
	}

	if token, found := strings.CutPrefix(header, "Bearer "); found {
		_, valid := r.tokens.Validate(token)
		return valid
	}

	if encoded, found := strings.CutPrefix(header, "Basic "); found {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return false
		}

		username, password, found := strings.Cut(string(decoded), ":")
		if !found {
			return false
		}

		return r.users.Verify(username, password)
	}

	return false
}
