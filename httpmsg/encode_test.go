package httpmsg

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	response := NewResponse(200).
		WithContentType("text/plain").
		WithBody("hi")

	expected := "HTTP/1.1 200 OK\r\n" +
		"Content-Length: 2\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"hi"

	assert.Equal(t, expected, response.Format())
}

func TestFormatFillsContentLength(t *testing.T) {
	response := NewResponse(404)
	response.Body = "missing" // bypass WithBody on purpose

	formatted := response.Format()
	assert.Contains(t, formatted, "Content-Length: 7\r\n")
}

func TestFormatDropsTransferEncoding(t *testing.T) {
	// A fixed-length rendering must not advertise chunked framing.
	response := NewResponse(200).
		WithChunkedEncoding().
		WithBody("abc")

	formatted := response.Format()
	assert.NotContains(t, formatted, "Transfer-Encoding")
	assert.Contains(t, formatted, "Content-Length: 3\r\n")
}

func TestFormatChunked(t *testing.T) {
	body := strings.Repeat("x", 30) // 0x1E

	response := NewResponse(200).
		WithContentType("text/plain").
		WithChunkedEncoding().
		WithBody(body)

	formatted := response.FormatChunked()

	assert.True(t, strings.HasPrefix(formatted, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, formatted, "Transfer-Encoding: chunked\r\n")
	assert.NotContains(t, formatted, "Content-Length")
	assert.Contains(t, formatted, "\r\n1E\r\n"+body+"\r\n")
	assert.True(t, strings.HasSuffix(formatted, "0\r\n\r\n"))
}

func TestFormatChunkedEmptyBody(t *testing.T) {
	response := NewResponse(204)

	formatted := response.FormatChunked()

	head, rest, found := strings.Cut(formatted, "\r\n\r\n")
	require.True(t, found)
	assert.Contains(t, head, "Transfer-Encoding: chunked")
	assert.Equal(t, "0\r\n\r\n", rest, "terminator only, no data chunk")
}

func TestFormatChunkedRoundTrip(t *testing.T) {
	testcases := []struct {
		desc string
		body string
	}{
		{desc: "short body", body: "hello world!"},
		{desc: "body with CRLFs", body: "line1\r\nline2\r\n"},
		{desc: "large body", body: strings.Repeat("chunk me please ", 512)},
		{desc: "empty body", body: ""},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			response := NewResponse(200).WithChunkedEncoding().WithBody(tc.body)

			formatted := response.FormatChunked()

			_, wire, found := strings.Cut(formatted, "\r\n\r\n")
			require.True(t, found)

			assert.Equal(t, tc.body, reassembleChunks(t, wire))
		})
	}
}

// reassembleChunks decodes a chunked body back into its payload bytes.
func reassembleChunks(t *testing.T, wire string) string {
	t.Helper()

	var body strings.Builder
	for {
		sizeLine, rest, found := strings.Cut(wire, "\r\n")
		require.True(t, found, "missing chunk size line")

		size, err := strconv.ParseInt(sizeLine, 16, 64)
		require.NoError(t, err)

		if size == 0 {
			assert.Equal(t, "\r\n", rest, "final chunk must end the stream")
			return body.String()
		}

		require.GreaterOrEqual(t, int64(len(rest)), size+2)
		body.WriteString(rest[:size])
		require.Equal(t, "\r\n", rest[size:size+2])
		wire = rest[size+2:]
	}
}

func TestHeadersDisplayNames(t *testing.T) {
	headers := NewHeaders()
	headers.Set("content-type", "text/html")
	headers.Set("WWW-Authenticate", `Basic realm="x"`)
	headers.Set("x-request-id", "1")

	fields := headers.Fields()
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f[0])
	}

	assert.Equal(t, []string{"Content-Type", "WWW-Authenticate", "X-Request-Id"}, names)
}

func TestReasonPhrase(t *testing.T) {
	assert.Equal(t, "OK", ReasonPhrase(200))
	assert.Equal(t, "Service Unavailable", ReasonPhrase(503))
	assert.Equal(t, "Unknown", ReasonPhrase(299))
}
