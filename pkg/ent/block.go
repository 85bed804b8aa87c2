package ent

import (
	"regexp"
	"strings"
)

// Block is one brace-delimited entity in a text.
type Block struct {
	// Start is the offset of the opening brace, End the offset just past the closing one.
	Start, End int
	// Content is everything between the braces.
	Content string
}

// Raw returns the block including its braces.
func (b Block) Raw() string {
	return "{" + b.Content + "}"
}

var pairRe = regexp.MustCompile(`"([^"]+)"\s+"([^"]*)"`)

// Fields parses the block's key/value pairs. A repeated key keeps its last value.
func (b Block) Fields() map[string]string {
	fields := make(map[string]string)
	for _, m := range pairRe.FindAllStringSubmatch(b.Content, -1) {
		fields[m[1]] = m[2]
	}
	return fields
}

// Pair is a single key/value occurrence, in document order.
type Pair struct {
	Key, Value string
}

// Pairs returns the key/value pairs in the order they appear, duplicates included.
func (b Block) Pairs() []Pair {
	matches := pairRe.FindAllStringSubmatch(b.Content, -1)
	out := make([]Pair, 0, len(matches))
	for _, m := range matches {
		out = append(out, Pair{Key: m[1], Value: m[2]})
	}
	return out
}

// Blocks scans text for entity blocks in document order. An opening brace with no
// closing brace after it ends the scan.
func Blocks(text string) []Block {
	var blocks []Block
	pos := 0
	for pos < len(text) {
		open := strings.IndexByte(text[pos:], '{')
		if open < 0 {
			break
		}
		open += pos
		end := strings.IndexByte(text[open+1:], '}')
		if end < 0 {
			break
		}
		end += open + 1
		blocks = append(blocks, Block{
			Start:   open,
			End:     end + 1,
			Content: text[open+1 : end],
		})
		pos = end + 1
	}
	return blocks
}

// hasPair reports whether content holds the literal pair "key" "value" separated by
// a single space, the way map compilers emit it.
func hasPair(content, key, value string) bool {
	return strings.Contains(content, `"`+key+`" "`+value+`"`)
}
