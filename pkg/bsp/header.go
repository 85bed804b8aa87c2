package bsp

import "encoding/binary"

// Lump is one decoded directory entry.
//
// Offset is content-relative: the stored file offset minus HeaderSize. It is negative
// when the stored offset points inside the header, which is tolerated.
type Lump struct {
	Offset int64
	Length uint32
}

// FileOffset returns the absolute position of the lump in the container.
func (l Lump) FileOffset() int64 {
	return l.Offset + HeaderSize
}

// End returns the absolute position one past the last byte of the lump.
func (l Lump) End() int64 {
	return l.FileOffset() + int64(l.Length)
}

type Header struct {
	Magic   uint32
	Version uint32
	Lumps   [LumpCount]Lump
}

func (h *Header) Valid() bool {
	return h.Magic == Magic
}

// Entities returns the directory entry of the entity lump.
func (h *Header) Entities() Lump {
	return h.Lumps[LumpEntities]
}

// headerReader walks a header buffer word by word.
type headerReader struct {
	buf []byte
	pos int
}

func (r *headerReader) uint32() (uint32, bool) {
	if r.pos+4 > len(r.buf) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, true
}

// decodeHeader decodes the fixed header. The magic is not checked here.
func decodeHeader(buf []byte) (Header, bool) {
	var h Header
	if len(buf) < HeaderSize {
		return h, false
	}
	r := headerReader{buf: buf[:HeaderSize]}
	var ok bool
	if h.Magic, ok = r.uint32(); !ok {
		return h, false
	}
	if h.Version, ok = r.uint32(); !ok {
		return h, false
	}
	for i := range h.Lumps {
		off, ok := r.uint32()
		if !ok {
			return h, false
		}
		n, ok := r.uint32()
		if !ok {
			return h, false
		}
		h.Lumps[i] = Lump{
			Offset: int64(off) - HeaderSize,
			Length: n,
		}
	}
	return h, true
}
