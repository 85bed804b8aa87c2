package ent

import (
	"regexp"
	"strings"
	"unicode"
)

var blankLinesRe = regexp.MustCompile(`\n\s*\n`)

// RewriteNextmap sets "nextmap" to value in every info_team_start block.
func RewriteNextmap(text, value string) string {
	return RewriteField(text, ClassInfoTeamStart, KeyNextmap, value)
}

// RewriteField sets key to value in every block carrying the literal pair
// "classname" "<classname>".
//
// When the key is present only its first value is replaced; otherwise a new pair is
// appended on its own line. Matching blocks are re-emitted with the closing brace on
// a line of its own. Other blocks and the text between blocks are copied as is.
// Finally every run of blank lines collapses to a single newline, so repeated
// rewrites of the same text are stable.
func RewriteField(text, classname, key, value string) string {
	fieldRe := regexp.MustCompile(`("` + regexp.QuoteMeta(key) + `"\s+")([^"]*)(")`)

	var sb strings.Builder
	sb.Grow(len(text) + 64)
	prev := 0
	for _, b := range Blocks(text) {
		sb.WriteString(text[prev:b.Start])
		prev = b.End

		if !hasPair(b.Content, KeyClassname, classname) {
			sb.WriteString(text[b.Start:b.End])
			continue
		}

		content := b.Content
		if loc := fieldRe.FindStringSubmatchIndex(content); loc != nil {
			content = content[:loc[4]] + value + content[loc[5]:]
		} else {
			content = strings.TrimRightFunc(content, unicode.IsSpace) + "\n" + `"` + key + `" "` + value + `"`
		}
		sb.WriteString("{")
		sb.WriteString(content)
		sb.WriteString("\n}")
	}
	sb.WriteString(text[prev:])

	return blankLinesRe.ReplaceAllString(sb.String(), "\n")
}
