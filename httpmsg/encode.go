package httpmsg

import (
	"strconv"
	"strings"
)

// Format renders the response in content-length form:
// status line, header lines, blank line, body verbatim.
//
// A fixed-length rendering never advertises chunked framing, so any
// Transfer-Encoding header is dropped and Content-Length is filled in
// from the body when absent.
func (r *Response) Format() string {
	var b strings.Builder

	writeStatusLine(&b, r)

	hasContentLength := false
	for _, field := range r.Headers.Fields() {
		lower := strings.ToLower(field[0])
		if lower == "transfer-encoding" {
			continue
		}
		if lower == "content-length" {
			hasContentLength = true
		}
		writeFieldLine(&b, field[0], field[1])
	}
	if !hasContentLength {
		writeFieldLine(&b, "Content-Length", strconv.Itoa(len(r.Body)))
	}

	b.WriteString("\r\n")
	b.WriteString(r.Body)

	return b.String()
}

// FormatChunked renders the response in chunked form. Existing
// Content-Length and Transfer-Encoding headers are excluded before the
// chunked header is emitted; they are mutually exclusive on the wire.
// A non-empty body becomes a single chunk, and the final-chunk marker
// is always written, even for an empty body.
func (r *Response) FormatChunked() string {
	var b strings.Builder

	writeStatusLine(&b, r)

	for _, field := range r.Headers.Fields() {
		switch strings.ToLower(field[0]) {
		case "content-length", "transfer-encoding":
			continue
		}
		writeFieldLine(&b, field[0], field[1])
	}
	writeFieldLine(&b, "Transfer-Encoding", "chunked")

	b.WriteString("\r\n")

	if len(r.Body) > 0 {
		b.WriteString(strings.ToUpper(strconv.FormatInt(int64(len(r.Body)), 16)))
		b.WriteString("\r\n")
		b.WriteString(r.Body)
		b.WriteString("\r\n")
	}

	b.WriteString("0\r\n\r\n")

	return b.String()
}

func writeStatusLine(b *strings.Builder, r *Response) {
	b.WriteString(Version)
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(r.Code))
	b.WriteByte(' ')
	b.WriteString(r.Reason)
	b.WriteString("\r\n")
}

func writeFieldLine(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}
