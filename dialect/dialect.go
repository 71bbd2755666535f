package dialect

// Dialect captures the quoting rules of a database flavour.
type Dialect interface {
	Name() string
	QuoteIdentifier(name string) string
	Placeholder(n int) string
	// RenderValue renders v as a complete SQL literal, quotes included.
	RenderValue(v any) string
	// Escape renders v for textual substitution into a query template.
	// Strings are escaped but not quoted; the template supplies the quotes.
	Escape(v any) string
}

// ByName returns the dialect for a driver name, or false.
func ByName(name string) (Dialect, bool) {
	switch name {
	case "mysql":
		return NewMySQLDialect(), true
	case "tidb":
		return NewTiDBDialect(), true
	case "postgres", "pgx":
		return NewPostgresDialect(), true
	case "sqlite", "sqlite3":
		return NewSQLiteDialect(), true
	default:
		return nil, false
	}
}
