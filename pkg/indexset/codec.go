package indexset

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrMalformed reports input the codecs cannot decode.
var ErrMalformed = errors.New("malformed index set encoding")

// WriteText writes s in the text format: the universe size on the first
// line, then the brace list of ranges, e.g.
//
//	10
//	{2,[5,7]}
func (s *IndexSet) WriteText(w io.Writer) error {
	s.Compress()
	bw := bufio.NewWriter(w)
	bw.WriteString(strconv.FormatUint(s.size, 10))
	bw.WriteString("\n{")
	for i, r := range s.ranges {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(r.toRange().String())
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

// ReadText replaces the content of s with a set read in the text format.
// Input without the size line, such as "{2,[5,7]}", is read into the
// current universe of s.
func (s *IndexSet) ReadText(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	p := &textParser{data: data}
	size := s.size
	if p.peek() != '{' {
		if size, err = p.number(); err != nil {
			return fmt.Errorf("universe size: %w", err)
		}
	}
	rr, err := p.ranges()
	if err != nil {
		return err
	}
	p.skipSpace()
	if p.pos != len(p.data) {
		return fmt.Errorf("%w: trailing data at offset %d", ErrMalformed, p.pos)
	}

	var prevEnd Index
	for i, rng := range rr {
		if rng.End <= rng.Begin || rng.End > size {
			return fmt.Errorf("%w: range %s exceeds universe size %d", ErrMalformed, rng, size)
		}
		if i > 0 && rng.Begin < prevEnd {
			return fmt.Errorf("%w: range %s is not ascending", ErrMalformed, rng)
		}
		prevEnd = rng.End
	}

	s.Clear()
	s.size = size
	for _, rng := range rr {
		s.AddRange(rng.Begin, rng.End)
	}
	s.Compress()
	return nil
}

type textParser struct {
	data []byte
	pos  int
}

func (p *textParser) skipSpace() {
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *textParser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.data) || p.data[p.pos] != c {
		return fmt.Errorf("%w: expected %q at offset %d", ErrMalformed, c, p.pos)
	}
	p.pos++
	return nil
}

func (p *textParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.data) {
		return 0
	}
	return p.data[p.pos]
}

func (p *textParser) number() (Index, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("%w: expected a number at offset %d", ErrMalformed, start)
	}
	n, err := strconv.ParseUint(string(p.data[start:p.pos]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return n, nil
}

// ranges parses "{" (token ("," token)*)? "}".
func (p *textParser) ranges() ([]Range, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	var rr []Range
	if p.peek() == '}' {
		p.pos++
		return rr, nil
	}
	for {
		r, err := p.token()
		if err != nil {
			return nil, err
		}
		rr = append(rr, r)
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return rr, nil
		default:
			return nil, fmt.Errorf("%w: expected ',' or '}' at offset %d", ErrMalformed, p.pos)
		}
	}
}

func (p *textParser) token() (Range, error) {
	if p.peek() != '[' {
		n, err := p.number()
		if err != nil {
			return Range{}, err
		}
		return Range{Begin: n, End: n + 1}, nil
	}
	p.pos++
	first, err := p.number()
	if err != nil {
		return Range{}, err
	}
	if err := p.expect(','); err != nil {
		return Range{}, err
	}
	last, err := p.number()
	if err != nil {
		return Range{}, err
	}
	if err := p.expect(']'); err != nil {
		return Range{}, err
	}
	if last < first {
		return Range{}, fmt.Errorf("%w: descending range [%d,%d]", ErrMalformed, first, last)
	}
	return Range{Begin: first, End: last + 1}, nil
}

// WriteBinary writes s as little-endian uint64 words:
// size, range count, then begin and end of every range.
func (s *IndexSet) WriteBinary(w io.Writer) error {
	s.Compress()
	words := make([]uint64, 0, 2+2*len(s.ranges))
	words = append(words, s.size, uint64(len(s.ranges)))
	for _, r := range s.ranges {
		words = append(words, r.begin, r.end)
	}
	return binary.Write(w, binary.LittleEndian, words)
}

// ReadBinary replaces the content of s with a set read in the binary format.
func (s *IndexSet) ReadBinary(r io.Reader) error {
	var header [2]uint64
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	size, count := header[0], header[1]
	// disjoint non-touching ranges cannot outnumber half the universe
	if count > size/2+1 {
		return fmt.Errorf("%w: %d ranges cannot fit a universe of %d", ErrMalformed, count, size)
	}

	// the header is untrusted, so capacity grows with the pairs actually read
	rr := make([]span, 0, min(count, 1<<12))
	var pair [2]uint64
	for i := uint64(0); i < count; i++ {
		if err := binary.Read(r, binary.LittleEndian, &pair); err != nil {
			return fmt.Errorf("%w: range %d: %v", ErrMalformed, i, err)
		}
		b, e := pair[0], pair[1]
		if b >= e || e > size {
			return fmt.Errorf("%w: range [%d, %d) is invalid for universe %d", ErrMalformed, b, e, size)
		}
		rr = append(rr, span{begin: b, end: e})
	}

	s.Clear()
	s.size = size
	s.ranges = rr
	s.dirty.Store(true)
	s.Compress()
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s *IndexSet) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.WriteText(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *IndexSet) UnmarshalText(data []byte) error {
	return s.ReadText(bytes.NewReader(data))
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *IndexSet) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.WriteBinary(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *IndexSet) UnmarshalBinary(data []byte) error {
	return s.ReadBinary(bytes.NewReader(data))
}
