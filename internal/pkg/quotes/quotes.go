// Package quotes writes GraphQL string literals.
package quotes

import (
	"fmt"
	"strings"
)

const (
	quoteByte         = '"'
	blockQuoteStr     = `"""`
	escapedBlockQuote = `\"""`
)

// WrapString returns str as a GraphQL string value. Quotes, backslashes and control
// characters are escaped, everything else is kept as is.
func WrapString(str string) string {
	builder := strings.Builder{}
	builder.Grow(len(str) + 2)
	builder.WriteByte(quoteByte)
	for _, r := range str {
		switch r {
		case '"':
			builder.WriteString(`\"`)
		case '\\':
			builder.WriteString(`\\`)
		case '\n':
			builder.WriteString(`\n`)
		case '\r':
			builder.WriteString(`\r`)
		case '\t':
			builder.WriteString(`\t`)
		case '\b':
			builder.WriteString(`\b`)
		case '\f':
			builder.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				builder.WriteString(fmt.Sprintf(`\u%04x`, r))
				continue
			}
			builder.WriteRune(r)
		}
	}
	builder.WriteByte(quoteByte)
	return builder.String()
}

// WrapBlockLines returns the lines of a block string, opening and closing quotes
// included, each prefixed with indent.
func WrapBlockLines(str, indent string) []string {
	lines := strings.Split(strings.ReplaceAll(str, blockQuoteStr, escapedBlockQuote), "\n")
	out := make([]string, 0, len(lines)+2)
	out = append(out, indent+blockQuoteStr)
	for _, line := range lines {
		out = append(out, indent+line)
	}
	return append(out, indent+blockQuoteStr)
}
