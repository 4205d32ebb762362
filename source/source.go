// Package source reads report text from files and streams.
//
// Plain text is read as is. HTML documents (.html, .htm) are reduced to their
// readable text with block elements turned into line breaks. The result is a
// core.RawReport ready for the pipeline; admission control on its length is
// left to the pipeline.
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/reportlens/core"
)

// DefaultMaxBytes caps how much is read from a single source.
const DefaultMaxBytes = 8 << 20

// Stdin is the path that selects standard input.
const Stdin = "-"

type options struct {
	maxBytes int64
	stdin    io.Reader
}

// Option configures reading.
type Option func(*options)

// WithMaxBytes caps how many bytes are read. Larger inputs fail with
// core.ErrInputTooLarge before they are fully buffered.
func WithMaxBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// WithStdin replaces os.Stdin as the reader used for the "-" path.
func WithStdin(r io.Reader) Option {
	return func(o *options) {
		o.stdin = r
	}
}

func newOptions(opts []Option) *options {
	o := &options{maxBytes: DefaultMaxBytes, stdin: os.Stdin}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Load reads the report at path. The path "-" reads standard input.
func Load(path string, opts ...Option) (core.RawReport, error) {
	o := newOptions(opts)
	if path == Stdin {
		return read(o.stdin, "stdin", o)
	}

	info, err := os.Stat(path)
	if err != nil {
		return core.RawReport{}, err
	}
	if !info.Mode().IsRegular() {
		return core.RawReport{}, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	if info.Size() > o.maxBytes {
		return core.RawReport{}, fmt.Errorf("%w: %s is %d bytes, limit is %d",
			core.ErrInputTooLarge, path, info.Size(), o.maxBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return core.RawReport{}, err
	}
	defer f.Close()
	return read(f, filepath.Base(path), o)
}

// Read reads a report from r. The name is recorded as the report source and
// its extension selects HTML extraction.
func Read(r io.Reader, name string, opts ...Option) (core.RawReport, error) {
	return read(r, name, newOptions(opts))
}

func read(r io.Reader, name string, o *options) (core.RawReport, error) {
	data, err := io.ReadAll(io.LimitReader(r, o.maxBytes+1))
	if err != nil {
		return core.RawReport{}, err
	}
	if int64(len(data)) > o.maxBytes {
		return core.RawReport{}, fmt.Errorf("%w: %s exceeds %d bytes", core.ErrInputTooLarge, name, o.maxBytes)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if looksBinary(data) {
		return core.RawReport{}, fmt.Errorf("%w: %s", ErrBinaryContent, name)
	}

	text := string(data)
	if isHTML(name) {
		text, err = htmlText(bytes.NewReader(data))
		if err != nil {
			return core.RawReport{}, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return core.NewRawReport(text, name), nil
}

func isHTML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

// looksBinary reports NUL bytes or mostly invalid UTF-8 in the first block.
func looksBinary(data []byte) bool {
	head := data[:min(len(data), 8192)]
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	invalid := 0
	for len(head) > 0 {
		r, size := utf8.DecodeRune(head)
		if r == utf8.RuneError && size == 1 && len(head) >= utf8.UTFMax {
			invalid++
		}
		head = head[size:]
	}
	return invalid > len(data[:min(len(data), 8192)])/10
}
