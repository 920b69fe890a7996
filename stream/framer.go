// Package stream frames discrete HTTP messages out of a raw duplex
// byte stream, buffering in both directions to avoid per-byte reads
// and per-write syscalls.
package stream

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultBufferSize is the read-buffer size used when none is configured.
	DefaultBufferSize = 8192

	// flushThreshold is how many buffered outgoing bytes trigger an
	// automatic flush from WriteResponse.
	flushThreshold = 8192
)

// Framer wraps one connection with a fixed-size read buffer and a
// growable write buffer. It is owned by a single goroutine; none of
// its methods are safe for concurrent use.
type Framer struct {
	conn io.ReadWriter

	readBuf  []byte
	readPos  int
	readEnd  int
	writeBuf []byte
}

func NewFramer(conn io.ReadWriter, bufferSize int) *Framer {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Framer{
		conn:     conn,
		readBuf:  make([]byte, bufferSize),
		writeBuf: make([]byte, 0, bufferSize),
	}
}

// ReadLine reads one line, refilling the read buffer from the
// connection as needed. The trailing LF and any preceding CR are
// stripped. End-of-stream with nothing read reports io.EOF; a partial
// line at end-of-stream is returned as-is.
func (f *Framer) ReadLine() (string, error) {
	var line strings.Builder

	for {
		if f.readPos >= f.readEnd {
			n, err := f.conn.Read(f.readBuf)
			if n == 0 {
				if err == nil {
					continue
				}
				if errors.Is(err, io.EOF) {
					if line.Len() == 0 {
						return "", io.EOF
					}
					return line.String(), nil
				}
				return "", errors.Wrap(err, "reading line")
			}
			f.readPos, f.readEnd = 0, n
		}

		for f.readPos < f.readEnd {
			b := f.readBuf[f.readPos]
			f.readPos++

			switch b {
			case '\n':
				return line.String(), nil
			case '\r':
				// Dropped; only LF terminates the line.
			default:
				line.WriteByte(b)
			}
		}
	}
}

// ReadRequest reads one complete request: header lines up to the empty
// line, then exactly Content-Length body bytes. Bytes already resident
// in the read buffer are drained before further connection reads. An
// early close mid-body is tolerated and yields the partial body; the
// caller decides what to make of it. The return value is the raw
// header+body text for downstream parsing.
func (f *Framer) ReadRequest() (string, error) {
	var request strings.Builder
	contentLength := 0

	for {
		line, err := f.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if request.Len() == 0 {
					return "", io.EOF
				}
				return "", io.ErrUnexpectedEOF
			}
			return "", errors.Wrap(err, "reading header line")
		}

		if line == "" {
			break
		}

		if rest, found := strings.CutPrefix(strings.ToLower(line), "content-length:"); found {
			if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
				contentLength = n
			}
		}

		request.WriteString(line)
		request.WriteString("\r\n")
	}

	request.WriteString("\r\n")

	if contentLength > 0 {
		body := make([]byte, contentLength)
		total := 0

		for total < contentLength {
			if f.readPos < f.readEnd {
				n := copy(body[total:], f.readBuf[f.readPos:f.readEnd])
				f.readPos += n
				total += n
				continue
			}

			n, err := f.conn.Read(body[total:])
			total += n
			if err != nil || n == 0 {
				// Partial body; the stream closed early.
				break
			}
		}

		request.Write(body[:total])
	}

	return request.String(), nil
}

// WriteResponse appends the rendered response to the write buffer,
// flushing automatically once the buffer crosses the threshold.
func (f *Framer) WriteResponse(response string) error {
	f.writeBuf = append(f.writeBuf, response...)

	if len(f.writeBuf) > flushThreshold {
		return f.Flush()
	}

	return nil
}

// Flush performs a blocking write of the full write buffer, then
// clears it.
func (f *Framer) Flush() error {
	if len(f.writeBuf) == 0 {
		return nil
	}

	if _, err := f.conn.Write(f.writeBuf); err != nil {
		return errors.Wrap(err, "flushing write buffer")
	}

	f.writeBuf = f.writeBuf[:0]

	return nil
}
