// Package bsp reads compiled map containers (IBSP, version 38 family).
//
// A container starts with a fixed 160-byte header: a magic number, a version and a
// directory of 19 (offset, length) lumps. Only the entities lump is consumed here;
// the remaining lumps are decoded to keep the directory walk honest and then ignored.
package bsp

// Container constants must match the on-disk format.
const (
	// Magic is "IBSP" read as a little-endian uint32.
	Magic uint32 = 0x50534249

	// LumpCount is the number of entries in the lump directory.
	LumpCount = 19

	// HeaderSize covers magic, version and the lump directory (40 four-byte words).
	HeaderSize = 4 * (2 + 2*LumpCount)

	// LumpEntities is the directory index of the entity text lump.
	LumpEntities = 0
)

// Extension is the container file extension, compared case-insensitively by listers.
const Extension = ".bsp"

// ArtifactExtension is the extension of extracted entity text files.
const ArtifactExtension = ".ent"
