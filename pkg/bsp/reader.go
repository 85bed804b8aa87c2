package bsp

import (
	"errors"
	"io"
	"os"
)

// File is a parsed container: its header and the raw entity lump.
type File struct {
	Path     string
	Header   Header
	Entities []byte
}

// Parse opens a container, validates its header and reads the entity lump.
// Every failure is a *ParseError classified by Kind. The file is closed on all paths.
func Parse(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioFailure(path, err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, ioFailure(path, err)
	}
	return ParseReader(path, f, st.Size())
}

// ParseReader parses a container from a random-access reader of the given size.
// name is only used in error messages.
func ParseReader(name string, r io.ReaderAt, size int64) (*File, error) {
	var buf [HeaderSize]byte
	n, err := r.ReadAt(buf[:], 0)
	if n < HeaderSize {
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, ioFailure(name, err)
		}
		return nil, &ParseError{Path: name, Err: ErrHeaderTooShort}
	}

	hdr, ok := decodeHeader(buf[:])
	if !ok {
		return nil, &ParseError{Path: name, Err: ErrHeaderTooShort}
	}
	if !hdr.Valid() {
		return nil, &ParseError{Path: name, Err: ErrInvalidContainer}
	}

	lump := hdr.Entities()
	start := lump.FileOffset()
	if start < 0 || lump.End() > size {
		// Reject before allocating a buffer for a length the file cannot hold.
		return nil, &ParseError{Path: name, Err: ErrTruncatedLump}
	}

	data := make([]byte, lump.Length)
	n, err = r.ReadAt(data, start)
	if n < len(data) {
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, ioFailure(name, err)
		}
		return nil, &ParseError{Path: name, Err: ErrTruncatedLump}
	}

	return &File{
		Path:     name,
		Header:   hdr,
		Entities: data,
	}, nil
}

// Text returns the entity lump decoded with ExtractText.
func (f *File) Text() string {
	if f == nil {
		return ""
	}
	return ExtractText(f.Entities)
}
