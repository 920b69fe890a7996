// Package httpmsg holds the HTTP/1.1 message model: parsed requests,
// buildable responses and their wire renderings.
package httpmsg

import (
	"sort"
	"strconv"
	"strings"
)

// Version is the only protocol version this engine speaks on responses.
const Version = "HTTP/1.1"

// Headers is a header map with case-insensitive keys.
// Keys are normalized to lowercase on write; a later Set for the
// same key overwrites the earlier value.
type Headers struct{ underlying map[string]string }

func NewHeaders() Headers {
	return Headers{underlying: make(map[string]string)}
}

func (h Headers) Get(key string) (value string, ok bool) {
	value, ok = h.underlying[strings.ToLower(key)]
	return
}

func (h Headers) Set(key, value string) {
	h.underlying[strings.ToLower(key)] = value
}

func (h Headers) Del(key string) {
	delete(h.underlying, strings.ToLower(key))
}

func (h Headers) Has(key string) bool {
	_, ok := h.underlying[strings.ToLower(key)]
	return ok
}

func (h Headers) Len() int { return len(h.underlying) }

// Fields returns [key, value] pairs sorted by key, with keys in their
// display form. The order carries no protocol meaning but keeps the
// encoded output stable.
func (h Headers) Fields() (fields [][2]string) {
	fields = make([][2]string, 0, len(h.underlying))
	for k, v := range h.underlying {
		fields = append(fields, [2]string{displayFieldName(k), v})
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i][0] < fields[j][0] })

	return fields
}

// Fields whose display form doesn't follow the word-capitalization rule.
var displayExceptions = map[string]string{
	"www-authenticate": "WWW-Authenticate",
	"etag":             "ETag",
	"te":               "TE",
}

// displayFieldName converts a lowercase field name into its
// conventional display form ("content-length" -> "Content-Length").
func displayFieldName(s string) string {
	if name, ok := displayExceptions[s]; ok {
		return name
	}

	const capitalDiff = 'a' - 'A'
	b := []byte(s)
	upper := true
	for i, c := range b {
		if upper && 'a' <= c && c <= 'z' {
			c -= capitalDiff
		}
		b[i] = c
		upper = c == '-'
	}
	return string(b)
}

// Request is a single parsed HTTP request. It is immutable once parsed
// and lives for one dispatch cycle. Path may still embed a ?query.
type Request struct {
	Method  string
	Path    string
	Version string
	Headers Headers
	Body    string
}

// Response is a response model built by a handler or the router and
// consumed once by Format or FormatChunked.
type Response struct {
	Code    int
	Reason  string
	Headers Headers
	Body    string
}

func NewResponse(code int) *Response {
	return &Response{
		Code:    code,
		Reason:  ReasonPhrase(code),
		Headers: NewHeaders(),
	}
}

func (r *Response) WithBody(body string) *Response {
	r.Body = body
	r.Headers.Set("Content-Length", strconv.Itoa(len(body)))
	return r
}

func (r *Response) WithHeader(key, value string) *Response {
	r.Headers.Set(key, value)
	return r
}

func (r *Response) WithContentType(contentType string) *Response {
	return r.WithHeader("Content-Type", contentType)
}

func (r *Response) WithConnection(connection string) *Response {
	return r.WithHeader("Connection", connection)
}

func (r *Response) WithChunkedEncoding() *Response {
	return r.WithHeader("Transfer-Encoding", "chunked")
}
