package httpmsg

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrEmptyRequest         = errors.New("empty request")
	ErrMalformedRequestLine = errors.New("request line is malformed")
)

// Parse turns raw request text (headers already framed, body already
// sized by Content-Length) into a Request.
//
// The parser is deliberately permissive: unknown methods and versions
// pass through, duplicate headers resolve to the last value, and header
// lines without a colon are skipped. Whether a method or version is
// acceptable is the router's decision, not the parser's.
func Parse(raw string) (*Request, error) {
	if raw == "" {
		return nil, ErrEmptyRequest
	}

	line, rest := cutLine(raw)

	// The request line must split into exactly three tokens.
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return nil, ErrMalformedRequestLine
	}

	request := &Request{
		Method:  parts[0],
		Path:    parts[1],
		Version: parts[2],
		Headers: NewHeaders(),
	}

	for len(rest) > 0 {
		line, rest = cutLine(rest)
		if line == "" {
			// Blank line: everything after it is body text.
			break
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		request.Headers.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	request.Body = rest

	return request, nil
}

// cutLine splits off the first line, dropping its terminator. A lone LF
// is accepted; a preceding CR is stripped.
func cutLine(s string) (line, rest string) {
	idx := strings.IndexByte(s, '\n')
	if idx < 0 {
		return strings.TrimSuffix(s, "\r"), ""
	}

	return strings.TrimSuffix(s[:idx], "\r"), s[idx+1:]
}

// ParseQueryParams extracts query parameters from a request path.
// A key without '=' maps to the empty string.
func ParseQueryParams(path string) map[string]string {
	params := make(map[string]string)

	_, query, found := strings.Cut(path, "?")
	if !found {
		return params
	}

	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		params[key] = value
	}

	return params
}

// StripQuery returns the path without its query component.
func StripQuery(path string) string {
	stripped, _, _ := strings.Cut(path, "?")
	return stripped
}
