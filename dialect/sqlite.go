package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

type SQLite struct{}

func NewSQLiteDialect() Dialect {
	return &SQLite{}
}

func (SQLite) Name() string {
	return "sqlite3"
}

func (SQLite) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SQLite) Placeholder(n int) string {
	return "?" + strconv.Itoa(n)
}

func (SQLite) RenderValue(v any) string {
	if s, ok := renderScalar(v); ok {
		return s
	}
	if b, ok := v.([]byte); ok {
		return fmt.Sprintf("X'%x'", b)
	}
	return "'" + escapeQuotes(textOf(v)) + "'"
}

func (SQLite) Escape(v any) string {
	if s, ok := renderScalar(v); ok {
		return s
	}
	return escapeQuotes(textOf(v))
}
