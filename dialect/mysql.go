package dialect

import (
	"fmt"
	"strings"
)

type MySQL struct{}

func NewMySQLDialect() Dialect {
	return &MySQL{}
}

func (m MySQL) Name() string {
	return "mysql"
}

func (m MySQL) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (m MySQL) Placeholder(n int) string {
	return "?"
}

func (m MySQL) RenderValue(v any) string {
	if s, ok := renderScalar(v); ok {
		return s
	}
	if b, ok := v.([]byte); ok {
		return fmt.Sprintf("X'%x'", b)
	}
	return "'" + escapeBackslash(textOf(v)) + "'"
}

func (m MySQL) Escape(v any) string {
	if s, ok := renderScalar(v); ok {
		return s
	}
	return escapeBackslash(textOf(v))
}

// escapeBackslash applies the rules of mysql_real_escape_string for a
// server running without NO_BACKSLASH_ESCAPES.
func escapeBackslash(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\x1a':
			b.WriteString(`\Z`)
		case '\'':
			b.WriteString(`\'`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
