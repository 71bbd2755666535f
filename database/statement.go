package database

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var rowKeywords = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"WITH":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
	"VALUES":   true,
	"PRAGMA":   true,
	"TABLE":    true,
	"CALL":     true,
	"HELP":     true,
	"FETCH":    true,
	"EXECUTE":  true,
}

// Table maintenance statements return a status result set.
var tableKeywords = map[string]bool{
	"CHECK":    true,
	"ANALYZE":  true,
	"OPTIMIZE": true,
	"REPAIR":   true,
	"CHECKSUM": true,
}

// ReturnsRows reports whether query is expected to produce a result set.
// The leading keyword and a RETURNING clause are inspected; literals,
// quoted identifiers and comments are skipped.
func ReturnsRows(query string) bool {
	words := keywords(query)
	if len(words) == 0 {
		return false
	}

	lead := words[0]
	switch {
	case rowKeywords[lead]:
		return true
	case tableKeywords[lead]:
		return len(words) > 1 && words[1] == "TABLE"
	case lead == "HANDLER":
		return contains(words, "READ")
	}
	return contains(words, "RETURNING")
}

func contains(words []string, w string) bool {
	for _, word := range words {
		if word == w {
			return true
		}
	}
	return false
}

// keywords returns the upper-cased bare words of query in order.
func keywords(query string) []string {
	var words []string
	s := query
	for len(s) > 0 {
		switch c := s[0]; {
		case c == '\'' || c == '"' || c == '`':
			s = skipQuoted(s[1:], c)
		case strings.HasPrefix(s, "--") || c == '#':
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return words
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s[2:], "*/")
			if i < 0 {
				return words
			}
			s = s[i+4:]
		case c == '$':
			s = skipDollarQuoted(s)
		default:
			r, size := utf8.DecodeRuneInString(s)
			if !isWordStart(r) {
				s = s[size:]
				continue
			}
			end := strings.IndexFunc(s, func(r rune) bool { return !isWordPart(r) })
			if end < 0 {
				end = len(s)
			}
			words = append(words, strings.ToUpper(s[:end]))
			s = s[end:]
		}
	}
	return words
}

// skipQuoted returns s after the closing quote. A doubled quote or a
// backslash escape does not close the literal.
func skipQuoted(s string, quote byte) string {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if quote != '`' {
				i++
			}
		case quote:
			if i+1 < len(s) && s[i+1] == quote {
				i++
				continue
			}
			return s[i+1:]
		}
	}
	return ""
}

// skipDollarQuoted skips a PostgreSQL $tag$...$tag$ literal. Positional
// parameters such as $1 are skipped as a single byte.
func skipDollarQuoted(s string) string {
	end := strings.IndexByte(s[1:], '$')
	if end < 0 || strings.IndexFunc(s[1:end+1], func(r rune) bool { return !isWordPart(r) }) >= 0 {
		return s[1:]
	}
	if end > 0 && s[1] >= '0' && s[1] <= '9' {
		return s[1:]
	}

	tag := s[:end+2]
	body := s[len(tag):]
	i := strings.Index(body, tag)
	if i < 0 {
		return ""
	}
	return body[i+len(tag):]
}

func isWordStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isWordPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
