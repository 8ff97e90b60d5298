package reader

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func collect(t *testing.T, r io.Reader) []string {
	t.Helper()
	s := NewLineScanner(r, 0)
	var lines []string
	for {
		line, _, err := s.Next(context.Background())
		if err == io.EOF {
			return lines
		}
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		lines = append(lines, line)
	}
}

func TestLineScanner_Empty(t *testing.T) {
	if lines := collect(t, strings.NewReader("")); len(lines) != 0 {
		t.Errorf("lines = %v, want none", lines)
	}
}

func TestLineScanner_CRLF(t *testing.T) {
	lines := collect(t, strings.NewReader("a\r\nb\r\n"))
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Errorf("lines = %v, want [a b]", lines)
	}
}

func TestLineScanner_TruncatedFinalLine(t *testing.T) {
	lines := collect(t, strings.NewReader("a\nb"))
	if len(lines) != 2 || lines[1] != "b" {
		t.Errorf("lines = %v, want [a b]", lines)
	}
}

func TestLineScanner_LineNumbers(t *testing.T) {
	s := NewLineScanner(strings.NewReader("x\ny\n"), 0)
	ctx := context.Background()

	_, n, err := s.Next(ctx)
	if err != nil || n != 1 {
		t.Errorf("first Next() = (n=%d, err=%v), want n=1", n, err)
	}
	_, n, err = s.Next(ctx)
	if err != nil || n != 2 {
		t.Errorf("second Next() = (n=%d, err=%v), want n=2", n, err)
	}
	if _, _, err := s.Next(ctx); err != io.EOF {
		t.Errorf("Next() after end = %v, want io.EOF", err)
	}
	if s.Lines() != 2 {
		t.Errorf("Lines() = %d, want 2", s.Lines())
	}
}

func TestLineScanner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewLineScanner(strings.NewReader("a\n"), 0)
	if _, _, err := s.Next(ctx); err != context.Canceled {
		t.Errorf("Next() = %v, want context.Canceled", err)
	}
}

func TestOpenSource_Missing(t *testing.T) {
	_, _, err := OpenSource(filepath.Join(t.TempDir(), "nope.log"))
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("OpenSource() error = %v, want ErrSourceUnavailable", err)
	}
}

func TestOpenSource_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.log")
	if err := os.WriteFile(path, []byte("a\nb\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, cleanup, err := OpenSource(path)
	if err != nil {
		t.Fatalf("OpenSource() error: %v", err)
	}
	defer cleanup()

	lines := collect(t, r)
	if len(lines) != 2 {
		t.Errorf("lines = %v, want 2 lines", lines)
	}
}

func TestOpenSource_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.log.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte("task=1\ntask=2\n")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	r, cleanup, err := OpenSource(path)
	if err != nil {
		t.Fatalf("OpenSource() error: %v", err)
	}
	defer cleanup()

	lines := collect(t, r)
	if len(lines) != 2 || lines[0] != "task=1" {
		t.Errorf("lines = %v, want [task=1 task=2]", lines)
	}
}

func TestOpenSource_BadGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.log.gz")
	if err := os.WriteFile(path, []byte("not gzip at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := OpenSource(path); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("OpenSource() error = %v, want ErrSourceUnavailable", err)
	}
}

func TestOpenSourceTimeout_ZeroDisables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.log")
	if err := os.WriteFile(path, []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, cleanup, err := OpenSourceTimeout(path, 0)
	if err != nil {
		t.Fatalf("OpenSourceTimeout() error: %v", err)
	}
	defer cleanup()
	if r == nil {
		t.Fatal("expected reader")
	}
}

func TestOpenSourceTimeout_FastOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.log")
	if err := os.WriteFile(path, []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, cleanup, err := OpenSourceTimeout(path, 5*time.Second)
	if err != nil {
		t.Fatalf("OpenSourceTimeout() error: %v", err)
	}
	defer cleanup()
	if r == nil {
		t.Fatal("expected reader")
	}
}
