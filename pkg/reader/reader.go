// Package reader provides line-oriented access to scheduler log sources.
package reader

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ErrSourceUnavailable is returned when a log source cannot be opened
// or read. This is the only fatal error class in the pipeline.
var ErrSourceUnavailable = errors.New("reader: source unavailable")

// OpenSource opens a log source path, automatically decompressing gzip
// files by suffix. The path "-" reads from stdin. Returns the reader, a
// cleanup function to release the underlying resource, and any error.
func OpenSource(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		cleanup := func() error {
			gz.Close()
			return file.Close()
		}
		return gz, cleanup, nil
	}

	return file, func() error { return file.Close() }, nil
}

// OpenSourceTimeout opens a source with an upper bound on how long the
// open may block. A timeout of zero disables the bound.
func OpenSourceTimeout(path string, timeout time.Duration) (io.Reader, func() error, error) {
	if timeout <= 0 {
		return OpenSource(path)
	}

	type opened struct {
		r       io.Reader
		cleanup func() error
		err     error
	}
	ch := make(chan opened, 1)
	go func() {
		r, cleanup, err := OpenSource(path)
		ch <- opened{r, cleanup, err}
	}()

	select {
	case o := <-ch:
		return o.r, o.cleanup, o.err
	case <-time.After(timeout):
		// Release the handle if the open eventually succeeds.
		go func() {
			if o := <-ch; o.err == nil {
				o.cleanup()
			}
		}()
		return nil, nil, fmt.Errorf("%w: open timed out after %s", ErrSourceUnavailable, timeout)
	}
}

// LineScanner iterates lazily over the lines of a source. It does not
// assume a total length upfront, tolerates a truncated final line, and
// normalizes CRLF endings. Cancellation is honored at line granularity.
type LineScanner struct {
	r    *bufio.Reader
	n    int64
	done bool
}

// NewLineScanner creates a scanner over r with the given buffer size.
// A size of zero or less uses the bufio default.
func NewLineScanner(r io.Reader, bufferSize int) *LineScanner {
	if bufferSize > 0 {
		return &LineScanner{r: bufio.NewReaderSize(r, bufferSize)}
	}
	return &LineScanner{r: bufio.NewReader(r)}
}

// Next returns the next line and its 1-based line number. It returns
// io.EOF once the source is exhausted and ctx.Err() if the context is
// canceled. Read failures surface as ErrSourceUnavailable.
func (s *LineScanner) Next(ctx context.Context) (string, int64, error) {
	if s.done {
		return "", s.n, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return "", s.n, err
	}

	line, err := s.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", s.n, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if err == io.EOF {
		s.done = true
		if len(line) == 0 {
			return "", s.n, io.EOF
		}
	}

	s.n++
	line = strings.TrimRight(line, "\r\n")
	return line, s.n, nil
}

// Lines returns how many lines have been read so far.
func (s *LineScanner) Lines() int64 {
	return s.n
}
