package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxMessageBytes bounds a single line when no limit is configured.
const DefaultMaxMessageBytes = 96 << 20

// LineReader splits a stream into newline-delimited JSON messages of at
// most max bytes.
type LineReader struct {
	sc *bufio.Scanner
}

func NewLineReader(r io.Reader, max int) *LineReader {
	if max <= 0 {
		max = DefaultMaxMessageBytes
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(64*1024, max)), max)
	return &LineReader{sc: sc}
}

// Next returns the next non-empty line. It returns io.EOF at a clean end of
// stream and ErrMalformedMessage for oversized lines. The slice is only
// valid until the following call.
func (l *LineReader) Next() ([]byte, error) {
	for l.sc.Scan() {
		line := l.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		return line, nil
	}
	err := l.sc.Err()
	switch {
	case err == nil:
		return nil, io.EOF
	case errors.Is(err, bufio.ErrTooLong):
		return nil, fmt.Errorf("line exceeds limit: %w", ErrMalformedMessage)
	default:
		return nil, err
	}
}

// NextRequest reads and parses one request line.
func (l *LineReader) NextRequest() (*Request, error) {
	line, err := l.Next()
	if err != nil {
		return nil, err
	}
	return ParseRequest(line)
}

// NextNotice reads and parses one notice line.
func (l *LineReader) NextNotice() (*Notice, error) {
	line, err := l.Next()
	if err != nil {
		return nil, err
	}
	var n Notice
	if err := json.Unmarshal(line, &n); err != nil {
		return nil, fmt.Errorf("failed to parse notice: %v: %w", err, ErrMalformedMessage)
	}
	return &n, nil
}

// NextResponse reads and parses one response line.
func (l *LineReader) NextResponse() (*Response, error) {
	line, err := l.Next()
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// EncodeLine marshals v as one JSON line.
func EncodeLine(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteLine writes v as one JSON line.
func WriteLine(w io.Writer, v any) error {
	data, err := EncodeLine(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
