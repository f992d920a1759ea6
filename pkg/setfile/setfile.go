// Package setfile stores index sets in files, in the text or the binary
// encoding, optionally inside a zstd frame.
package setfile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/henderiw/indexset/pkg/indexset"
	"github.com/klauspost/compress/zstd"
)

type Format string

const (
	// FormatAuto sniffs the encoding on read and picks it from the file
	// extension on save. Encode treats it as FormatBinary.
	FormatAuto   Format = "auto"
	FormatText   Format = "text"
	FormatBinary Format = "binary"
)

// TextExt is the extension Save maps to FormatText; ZstdExt always turns
// compression on.
const (
	TextExt = ".txt"
	ZstdExt = ".zst"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatText, FormatBinary:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q, want auto, text or binary", s)
	}
}

type Options struct {
	Format   Format
	Compress bool
}

// Encode writes s to w.
func Encode(w io.Writer, s *indexset.IndexSet, opts Options) (err error) {
	if opts.Compress {
		enc, zerr := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zerr != nil {
			return zerr
		}
		defer func() {
			if cerr := enc.Close(); err == nil {
				err = cerr
			}
		}()
		w = enc
	}
	switch opts.Format {
	case FormatText:
		return s.WriteText(w)
	case FormatAuto, FormatBinary, "":
		return s.WriteBinary(w)
	default:
		return fmt.Errorf("unknown format %q", opts.Format)
	}
}

// Decode reads a set from r. zstd frames are detected and decompressed
// whatever opts.Compress says.
func Decode(r io.Reader, opts Options) (*indexset.IndexSet, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(zstdMagic)); bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		br = bufio.NewReader(dec)
	}

	format := opts.Format
	if format == FormatAuto || format == "" {
		format = sniff(br)
	}

	s := indexset.New(0)
	var err error
	switch format {
	case FormatText:
		err = s.ReadText(br)
	case FormatBinary:
		err = s.ReadBinary(br)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return s, nil
}

// sniff reports FormatText when the input starts with a decimal size, then
// the opening brace, and holds nothing outside the text alphabet. A binary
// header carries zero bytes in its range count long before that.
func sniff(br *bufio.Reader) Format {
	head, _ := br.Peek(32)
	for _, c := range head {
		if !isSpace(c) && !strings.ContainsRune("0123456789{}[],", rune(c)) {
			return FormatBinary
		}
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	rest := bytes.TrimLeft(trimmed, "0123456789")
	if len(rest) == len(trimmed) {
		return FormatBinary
	}
	if rest = bytes.TrimLeft(rest, " \t\r\n"); len(rest) > 0 && rest[0] == '{' {
		return FormatText
	}
	return FormatBinary
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// Save writes s to path.
func Save(ctx context.Context, path string, s *indexset.IndexSet, opts Options) (err error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)
	opts = resolve(path, opts)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := Encode(f, s, opts); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	log.V(1).Info("saved index set", "format", opts.Format, "compress", opts.Compress,
		"size", s.Size(), "elements", s.NElements(), "intervals", s.NIntervals())
	return nil
}

// Load reads the set stored at path.
func Load(ctx context.Context, path string, opts Options) (*indexset.IndexSet, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Decode(f, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	log.V(1).Info("loaded index set", "size", s.Size(), "elements", s.NElements(), "intervals", s.NIntervals())
	return s, nil
}

// resolve turns FormatAuto into a concrete format from the extension of
// path, looking through a trailing ZstdExt.
func resolve(path string, opts Options) Options {
	ext := filepath.Ext(path)
	if ext == ZstdExt {
		opts.Compress = true
		ext = filepath.Ext(strings.TrimSuffix(path, ZstdExt))
	}
	if opts.Format == FormatAuto || opts.Format == "" {
		if ext == TextExt {
			opts.Format = FormatText
		} else {
			opts.Format = FormatBinary
		}
	}
	return opts
}

// IsNotExist reports whether err comes from a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
