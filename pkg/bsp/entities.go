package bsp

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ExtractText converts a raw entity lump to text. The lump is cut at the first NUL
// byte and each maximal invalid UTF-8 subpart becomes one U+FFFD, so a truncated
// multibyte sequence yields a single replacement. It never fails.
func ExtractText(raw []byte) string {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	if utf8.Valid(raw) {
		return string(raw)
	}

	var sb strings.Builder
	sb.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(utf8.RuneError)
			size = invalidLen(raw)
		} else {
			sb.Write(raw[:size])
		}
		raw = raw[size:]
	}
	return sb.String()
}

// invalidLen returns the length of the maximal invalid subpart at the start of
// p: a lead byte plus the continuation bytes that still fit a well-formed
// sequence. Bytes that cannot start a sequence count alone.
func invalidLen(p []byte) int {
	lo, hi, need := byte(0x80), byte(0xBF), 0
	switch b := p[0]; {
	case b >= 0xC2 && b <= 0xDF:
		need = 1
	case b == 0xE0:
		lo, need = 0xA0, 2
	case b == 0xED:
		hi, need = 0x9F, 2
	case b >= 0xE1 && b <= 0xEF:
		need = 2
	case b == 0xF0:
		lo, need = 0x90, 3
	case b == 0xF4:
		hi, need = 0x8F, 3
	case b >= 0xF1 && b <= 0xF3:
		need = 3
	default:
		return 1
	}
	n := 1
	for n <= need && n < len(p) && p[n] >= lo && p[n] <= hi {
		n++
		lo, hi = 0x80, 0xBF
	}
	return n
}

// ArtifactName maps a container path to its entity artifact file name,
// e.g. "maps/dust.bsp" -> "dust.ent".
func ArtifactName(containerPath string) string {
	base := filepath.Base(containerPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ArtifactExtension
}

// WriteEntityArtifact writes text to outDir/<base>.ent, replacing any existing file,
// and returns the written path.
func WriteEntityArtifact(outDir, containerPath, text string) (string, error) {
	path := filepath.Join(outDir, ArtifactName(containerPath))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
