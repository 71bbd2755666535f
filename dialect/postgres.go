package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

type Postgres struct{}

func NewPostgresDialect() Dialect {
	return &Postgres{}
}

func (p Postgres) Name() string {
	return "postgres"
}

func (p Postgres) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (p Postgres) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (Postgres) RenderValue(v any) string {
	if s, ok := renderScalar(v); ok {
		return s
	}
	if b, ok := v.([]byte); ok {
		return fmt.Sprintf("'\\x%x'", b) // hex bytea literal
	}
	return "'" + escapeQuotes(textOf(v)) + "'"
}

// Escape assumes standard_conforming_strings=on, the default since 9.1.
func (Postgres) Escape(v any) string {
	if s, ok := renderScalar(v); ok {
		return s
	}
	return escapeQuotes(textOf(v))
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
