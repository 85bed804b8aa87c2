package ent

import (
	"errors"
	"testing"
)

func TestBlocks(t *testing.T) {
	t.Parallel()

	text := "junk {\n\"a\" \"1\"\n} mid {\"b\" \"2\"} tail { never closed"
	blocks := Blocks(text)
	if len(blocks) != 2 {
		t.Fatalf("block count: got %d want 2", len(blocks))
	}
	if blocks[0].Content != "\n\"a\" \"1\"\n" {
		t.Fatalf("block 0 content: got %q", blocks[0].Content)
	}
	if text[blocks[1].Start:blocks[1].End] != `{"b" "2"}` {
		t.Fatalf("block 1 span: got %q", text[blocks[1].Start:blocks[1].End])
	}
	if blocks[1].Raw() != `{"b" "2"}` {
		t.Fatalf("block 1 raw: got %q", blocks[1].Raw())
	}
}

func TestBlocksNestedOpenBelongsToContent(t *testing.T) {
	t.Parallel()

	blocks := Blocks(`{ "a" "1" { "b" "2" } }`)
	if len(blocks) != 1 {
		t.Fatalf("block count: got %d want 1", len(blocks))
	}
	if blocks[0].Content != ` "a" "1" { "b" "2" ` {
		t.Fatalf("content: got %q", blocks[0].Content)
	}
}

func TestBlockFieldsAndPairs(t *testing.T) {
	t.Parallel()

	b := Block{Content: "\n\"classname\" \"light\"\n\"light\"\t\"300\"\n\"target\" \"\"\n\"light\" \"150\"\n"}
	fields := b.Fields()
	if fields["classname"] != "light" || fields["light"] != "150" {
		t.Fatalf("fields: got %v", fields)
	}
	if v, ok := fields["target"]; !ok || v != "" {
		t.Fatalf("empty value should parse: got %q ok=%v", v, ok)
	}
	pairs := b.Pairs()
	if len(pairs) != 4 {
		t.Fatalf("pairs: got %d want 4", len(pairs))
	}
	if pairs[1] != (Pair{Key: "light", Value: "300"}) {
		t.Fatalf("pair 1: got %+v", pairs[1])
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		wantLine int
	}{
		{"balanced", "{\n}\n{\n}\n", 0},
		{"empty", "", 0},
		{"nested", "{\n\"a\" \"b\"\n{\n}\n}", 3},
		{"stray close", "{\n}\n}", 3},
		{"unclosed", "{\n}\n{\n\"a\" \"b\"", 3},
	}
	for _, tc := range tests {
		err := Validate(tc.text)
		if tc.wantLine == 0 {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("%s: expected SyntaxError, got %v", tc.name, err)
			continue
		}
		if !errors.Is(err, ErrUnbalanced) {
			t.Errorf("%s: expected ErrUnbalanced", tc.name)
		}
		if se.Line != tc.wantLine {
			t.Errorf("%s: line got %d want %d", tc.name, se.Line, tc.wantLine)
		}
	}
}
