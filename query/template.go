package query

import (
	"strings"

	"github.com/Konsultn-Engineering/gsql/cache"
	"github.com/Konsultn-Engineering/gsql/utils"
)

// Params maps placeholder names to scalar values.
type Params map[string]any

// EscapeFunc renders a value for textual substitution. It is normally a
// dialect's Escape.
type EscapeFunc func(v any) string

// Engine substitutes {{name}} placeholders, caching compiled templates.
//
// Substitution is textual: the only protection against injection is the
// escape function supplied by the connection's dialect. Prefer prepared
// statements for untrusted input.
type Engine struct {
	cache *cache.TemplateCache
}

func NewEngine(cacheSize int) *Engine {
	return &Engine{cache: cache.NewTemplateCache(cacheSize)}
}

var defaultEngine = NewEngine(cache.DefaultTemplateCacheSize)

// Substitute resolves template against params with the default engine.
func Substitute(template string, params Params, escape EscapeFunc) (string, error) {
	return defaultEngine.Substitute(template, params, escape)
}

// Substitute escapes every value in params once and replaces each literal
// {{name}} with it in a single pass. Placeholders without a parameter are
// left as they are.
func (e *Engine) Substitute(template string, params Params, escape EscapeFunc) (string, error) {
	if template == "" {
		return "", ErrEmptyTemplate
	}
	if escape == nil {
		return "", ErrNoEscape
	}

	tpl := e.cache.GetOrCompile(utils.FingerprintString(template), template, Compile)
	return Render(tpl, params, escape), nil
}

// Compile splits sql around its placeholders. A placeholder is "{{",
// a name without braces, then "}}". Names are matched literally, spaces
// included.
func Compile(sql string) *cache.CachedTemplate {
	tpl := &cache.CachedTemplate{SQL: sql}

	var lit strings.Builder
	for i := 0; i < len(sql); {
		if strings.HasPrefix(sql[i:], "{{") {
			if name, ok := placeholderName(sql[i+2:]); ok {
				tpl.Literals = append(tpl.Literals, lit.String())
				tpl.Names = append(tpl.Names, name)
				lit.Reset()
				i += len(name) + 4
				continue
			}
		}
		lit.WriteByte(sql[i])
		i++
	}
	tpl.Literals = append(tpl.Literals, lit.String())
	return tpl
}

func placeholderName(s string) (string, bool) {
	end := strings.Index(s, "}}")
	if end < 0 {
		return "", false
	}
	name := s[:end]
	if strings.ContainsAny(name, "{}") {
		return "", false
	}
	return name, true
}

// Render fills a compiled template.
func Render(tpl *cache.CachedTemplate, params Params, escape EscapeFunc) string {
	escaped := make(map[string]string, len(params))
	for name, v := range params {
		escaped[name] = escape(v)
	}

	var b strings.Builder
	b.Grow(len(tpl.SQL))
	b.WriteString(tpl.Literals[0])
	for i, name := range tpl.Names {
		if v, ok := escaped[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString("{{")
			b.WriteString(name)
			b.WriteString("}}")
		}
		b.WriteString(tpl.Literals[i+1])
	}
	return b.String()
}
