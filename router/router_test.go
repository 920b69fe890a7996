package router

import (
	"encoding/base64"
	"io"
	"log/slog"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"

	"rawhttp/auth"
	"rawhttp/httpmsg"
)

type RouterTestSuite struct {
	suite.Suite

	users  *auth.UserStore
	tokens *auth.TokenManager
	router *Router
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupTest() {
	s.users = auth.NewUserStore()
	s.tokens = auth.NewTokenManager(clock.NewMock(), 0)
	s.router = New(s.users, s.tokens, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *RouterTestSuite) request(method, path string) *httpmsg.Request {
	return &httpmsg.Request{
		Method:  method,
		Path:    path,
		Version: "HTTP/1.1",
		Headers: httpmsg.NewHeaders(),
	}
}

func (s *RouterTestSuite) postJSON(path, body string) *httpmsg.Request {
	request := s.request("POST", path)
	request.Headers.Set("Content-Type", "application/json")
	request.Body = body
	return request
}

func (s *RouterTestSuite) TestExactRouteMatch() {
	s.router.AddRoute("GET", "/hello", func(*httpmsg.Request) *httpmsg.Response {
		return httpmsg.NewResponse(200).WithBody("hi")
	})

	response := s.router.Route(s.request("GET", "/hello"))
	s.Equal(200, response.Code)
	s.Equal("hi", response.Body)
}

func (s *RouterTestSuite) TestQueryStrippedForMatching() {
	s.router.AddRoute("GET", "/hello", func(r *httpmsg.Request) *httpmsg.Response {
		// The handler still sees the raw path, query included.
		s.Equal("/hello?name=x", r.Path)
		return httpmsg.NewResponse(200)
	})

	response := s.router.Route(s.request("GET", "/hello?name=x"))
	s.Equal(200, response.Code)
}

func (s *RouterTestSuite) TestUnknownPathIs404() {
	response := s.router.Route(s.request("GET", "/nope"))
	s.Equal(404, response.Code)
}

func (s *RouterTestSuite) TestMethodMustMatch() {
	s.router.AddRoute("GET", "/only-get", func(*httpmsg.Request) *httpmsg.Response {
		return httpmsg.NewResponse(200)
	})

	response := s.router.Route(s.request("POST", "/only-get"))
	s.Equal(404, response.Code)
}

func (s *RouterTestSuite) TestUnknownMethodTokenRoutes() {
	// Parsing let it through; no route matches it.
	response := s.router.Route(s.request("INVALID_METHOD", "/x"))
	s.Equal(404, response.Code)
}

func (s *RouterTestSuite) TestProtectedPathWithoutCredentials() {
	s.router.AddProtectedPath("/admin")

	response := s.router.Route(s.request("GET", "/admin"))
	s.Equal(401, response.Code)

	challenge, ok := response.Headers.Get("WWW-Authenticate")
	s.True(ok)
	s.Contains(challenge, "Basic")
}

func (s *RouterTestSuite) TestProtectedPrefixCoversSubPaths() {
	s.router.AddProtectedPath("/admin")

	response := s.router.Route(s.request("GET", "/admin/settings"))
	s.Equal(401, response.Code)
}

func (s *RouterTestSuite) TestBasicAuth() {
	s.Require().NoError(s.users.Register("admin", "password123"))
	s.router.AddProtectedPath("/admin")
	s.router.AddRoute("GET", "/admin", func(*httpmsg.Request) *httpmsg.Response {
		return httpmsg.NewResponse(200).WithBody("welcome")
	})

	request := s.request("GET", "/admin")
	creds := base64.StdEncoding.EncodeToString([]byte("admin:password123"))
	request.Headers.Set("Authorization", "Basic "+creds)

	response := s.router.Route(request)
	s.Equal(200, response.Code)

	// Wrong password fails the gate.
	request = s.request("GET", "/admin")
	creds = base64.StdEncoding.EncodeToString([]byte("admin:oops"))
	request.Headers.Set("Authorization", "Basic "+creds)

	s.Equal(401, s.router.Route(request).Code)
}

func (s *RouterTestSuite) TestBearerAuth() {
	s.router.AddProtectedPath("/admin")
	s.router.AddRoute("GET", "/admin", func(*httpmsg.Request) *httpmsg.Response {
		return httpmsg.NewResponse(200)
	})

	token, err := s.tokens.Generate("admin")
	s.Require().NoError(err)

	request := s.request("GET", "/admin")
	request.Headers.Set("Authorization", "Bearer "+token)
	s.Equal(200, s.router.Route(request).Code)

	request = s.request("GET", "/admin")
	request.Headers.Set("Authorization", "Bearer bogus")
	s.Equal(401, s.router.Route(request).Code)
}

func (s *RouterTestSuite) TestRegister() {
	response := s.router.Route(s.postJSON("/api/register",
		`{"username":"a","password":"b"}`))
	s.Equal(201, response.Code)
	s.Contains(response.Body, `"token":"`)

	// Second registration for the same name conflicts.
	response = s.router.Route(s.postJSON("/api/register",
		`{"username":"a","password":"b"}`))
	s.Equal(409, response.Code)
	s.Contains(response.Body, `"success":false`)
}

func (s *RouterTestSuite) TestRegisterRequiresPOST() {
	response := s.router.Route(s.request("GET", "/api/register"))
	s.Equal(405, response.Code)
}

func (s *RouterTestSuite) TestRegisterBadBody() {
	response := s.router.Route(s.postJSON("/api/register", `{"username":"a"}`))
	s.Equal(400, response.Code)
}

func (s *RouterTestSuite) TestLogin() {
	s.Require().NoError(s.users.Register("a", "b"))

	response := s.router.Route(s.postJSON("/api/login",
		`{"username":"a","password":"b"}`))
	s.Equal(200, response.Code)
	s.Contains(response.Body, `"success":true`)
	s.Contains(response.Body, `"token":"`)
}

func (s *RouterTestSuite) TestLoginDoesNotEnumerateUsers() {
	s.Require().NoError(s.users.Register("known", "right"))

	unknownUser := s.router.Route(s.postJSON("/api/login",
		`{"username":"ghost","password":"x"}`))
	wrongPassword := s.router.Route(s.postJSON("/api/login",
		`{"username":"known","password":"wrong"}`))

	s.Equal(401, unknownUser.Code)
	s.Equal(401, wrongPassword.Code)
	s.Equal(unknownUser.Body, wrongPassword.Body,
		"error bodies must be byte-for-byte identical")
}

func (s *RouterTestSuite) TestLogout() {
	token, err := s.tokens.Generate("a")
	s.Require().NoError(err)

	request := s.postJSON("/api/logout", "")
	request.Headers.Set("Authorization", "Bearer "+token)

	s.Equal(200, s.router.Route(request).Code)

	// Token is gone; a second logout with it fails.
	s.Equal(400, s.router.Route(request).Code)
}

func (s *RouterTestSuite) TestLogoutWithoutToken() {
	s.Equal(400, s.router.Route(s.postJSON("/api/logout", "")).Code)
}

func TestParseCredentials(t *testing.T) {
	testcases := []struct {
		desc         string
		body         string
		wantUser     string
		wantPassword string
		wantOK       bool
	}{
		{
			desc:     "plain object",
			body:     `{"username":"a","password":"b"}`,
			wantUser: "a", wantPassword: "b", wantOK: true,
		},
		{
			desc:     "whitespace and reversed order",
			body:     `{ "password": "pass123", "username": "user123" }`,
			wantUser: "user123", wantPassword: "pass123", wantOK: true,
		},
		{desc: "missing password", body: `{"username":"a"}`},
		{desc: "missing username", body: `{"password":"b"}`},
		{desc: "not json at all", body: "username=a&password=b"},
		{desc: "empty body", body: ""},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			user, password, ok := parseCredentials(tc.body)
			if !tc.wantOK {
				if ok {
					t.Fatalf("expected parse failure, got %q/%q", user, password)
				}
				return
			}
			if user != tc.wantUser || password != tc.wantPassword {
				t.Fatalf("got %q/%q, want %q/%q", user, password, tc.wantUser, tc.wantPassword)
			}
		})
	}
}
