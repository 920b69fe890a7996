package router

import (
	"strings"

	"github.com/pkg/errors"

	"rawhttp/auth"
	"rawhttp/httpmsg"
)

// handleRegister creates a user and issues a token for it.
func (r *Router) handleRegister(request *httpmsg.Request) *httpmsg.Response {
	if request.Method != "POST" {
		return methodNotAllowed()
	}

	username, password, ok := parseCredentials(request.Body)
	if !ok {
		return badCredentialFormat()
	}

	if err := r.users.Register(username, password); err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			return jsonResponse(409, errorBody("Username already exists"))
		}
		r.logger.Error("failed to register user", "error", err)
		return jsonResponse(500, errorBody("Registration failed"))
	}

	token, err := r.tokens.Generate(username)
	if err != nil {
		r.logger.Error("failed to generate token", "error", err)
		return jsonResponse(500, errorBody("Registration failed"))
	}

	return jsonResponse(201, tokenBody(token))
}

// handleLogin verifies credentials and issues a token. Unknown user
// and wrong password produce byte-identical responses so the endpoint
// cannot be used to enumerate usernames.
func (r *Router) handleLogin(request *httpmsg.Request) *httpmsg.Response {
	if request.Method != "POST" {
		return methodNotAllowed()
	}

	username, password, ok := parseCredentials(request.Body)
	if !ok {
		return badCredentialFormat()
	}

	if !r.users.Verify(username, password) {
		return jsonResponse(401, errorBody("Invalid username or password"))
	}

	token, err := r.tokens.Generate(username)
	if err != nil {
		r.logger.Error("failed to generate token", "error", err)
		return jsonResponse(500, errorBody("Login failed"))
	}

	return jsonResponse(200, tokenBody(token))
}

// handleLogout revokes the bearer token in the Authorization header.
func (r *Router) handleLogout(request *httpmsg.Request) *httpmsg.Response {
	if request.Method != "POST" {
		return methodNotAllowed()
	}

	if header, ok := request.Headers.Get("authorization"); ok {
		if token, found := strings.CutPrefix(header, "Bearer "); found {
			if r.tokens.Revoke(token) {
				return jsonResponse(200, `{"success":true,"message":"Logged out successfully"}`)
			}
		}
	}

	return jsonResponse(400, errorBody("Invalid or missing token"))
}

func methodNotAllowed() *httpmsg.Response {
	return jsonResponse(405, errorBody("Only POST method allowed"))
}

func badCredentialFormat() *httpmsg.Response {
	return jsonResponse(400, errorBody(`Invalid JSON format. Expected {"username": "...", "password": "..."}`))
}

func jsonResponse(code int, body string) *httpmsg.Response {
	return httpmsg.NewResponse(code).
		WithContentType("application/json").
		WithBody(body)
}

func tokenBody(token string) string {
	return `{"success":true,"token":"` + token + `"}`
}

func errorBody(message string) string {
	return `{"success":false,"error":"` + message + `"}`
}

// parseCredentials hand-parses the minimal credential object: a flat
// JSON object whose only fields are the "username" and "password"
// strings, with no nesting and no escaping beyond the raw quotes.
func parseCredentials(body string) (username, password string, ok bool) {
	username, ok = extractStringField(body, "username")
	if !ok {
		return "", "", false
	}

	password, ok = extractStringField(body, "password")
	if !ok {
		return "", "", false
	}

	return username, password, true
}

func extractStringField(body, key string) (string, bool) {
	idx := strings.Index(body, `"`+key+`"`)
	if idx < 0 {
		return "", false
	}

	rest := body[idx+len(key)+2:]

	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return "", false
	}
	rest = rest[colon+1:]

	open := strings.IndexByte(rest, '"')
	if open < 0 {
		return "", false
	}
	rest = rest[open+1:]

	closing := strings.IndexByte(rest, '"')
	if closing < 0 {
		return "", false
	}

	return rest[:closing], true
}
