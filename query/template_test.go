package query

import (
	"fmt"
	"testing"

	"github.com/Konsultn-Engineering/gsql/dialect"
	"github.com/Konsultn-Engineering/gsql/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plain(v any) string { return fmt.Sprint(v) }

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		template string
		params   Params
		want     string
	}{
		{"no placeholders", "SELECT 1", nil, "SELECT 1"},
		{"single", "SELECT * FROM t WHERE id = {{id}}", Params{"id": 7}, "SELECT * FROM t WHERE id = 7"},
		{"repeated", "{{a}}-{{a}}-{{b}}", Params{"a": 1, "b": 2}, "1-1-2"},
		{"unmatched passes through", "SELECT {{missing}}", Params{"id": 1}, "SELECT {{missing}}"},
		{"extra params ignored", "SELECT 1", Params{"id": 1}, "SELECT 1"},
		{"names match literally", "SELECT {{ id }}, {{id}}", Params{"id": 1, " id ": 2}, "SELECT 2, 1"},
		{"spaced name without param", "SELECT {{ id }}", Params{"id": 1}, "SELECT {{ id }}"},
		{"empty name", "SELECT {{}}", Params{"": 1}, "SELECT 1"},
		{"empty name without param", "SELECT {{}}", nil, "SELECT {{}}"},
		{"leading brace kept", "{{{x}}", Params{"x": 9}, "{9"},
		{"adjacent", "{{a}}{{b}}", Params{"a": "x", "b": "y"}, "xy"},
		{"unterminated", "SELECT {{id", Params{"id": 1}, "SELECT {{id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEngine(8).Substitute(tt.template, tt.params, plain)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubstituteEscapesEachValueOnce(t *testing.T) {
	calls := map[string]int{}
	escape := func(v any) string {
		calls[fmt.Sprint(v)]++
		return "<" + fmt.Sprint(v) + ">"
	}

	got, err := NewEngine(8).Substitute("{{a}} {{a}} {{a}}", Params{"a": "x", "unused": "y"}, escape)
	require.NoError(t, err)

	assert.Equal(t, "<x> <x> <x>", got)
	assert.Equal(t, map[string]int{"x": 1, "y": 1}, calls)
}

func TestSubstituteDoesNotResubstitute(t *testing.T) {
	got, err := NewEngine(8).Substitute("{{a}} {{b}}", Params{"a": "{{b}}", "b": "B"}, plain)
	require.NoError(t, err)
	assert.Equal(t, "{{b}} B", got)
}

func TestSubstituteWithDialect(t *testing.T) {
	got, err := Substitute(
		"SELECT * FROM users WHERE name = '{{name}}' AND active = {{active}}",
		Params{"name": "O'Brien", "active": true},
		dialect.NewMySQLDialect().Escape,
	)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM users WHERE name = 'O\'Brien' AND active = TRUE`, got)
}

func TestSubstituteErrors(t *testing.T) {
	_, err := NewEngine(8).Substitute("", Params{"a": 1}, plain)
	assert.ErrorIs(t, err, ErrEmptyTemplate)

	_, err = NewEngine(8).Substitute("SELECT 1", nil, nil)
	assert.ErrorIs(t, err, ErrNoEscape)
}

func TestEngineCachesCompiledTemplates(t *testing.T) {
	e := NewEngine(8)

	for i := 0; i < 3; i++ {
		got, err := e.Substitute("SELECT {{v}}", Params{"v": i}, plain)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("SELECT %d", i), got)
	}
	assert.Equal(t, 1, e.cache.Len())

	_, err := e.Substitute("SELECT {{v}} + 1", Params{"v": 1}, plain)
	require.NoError(t, err)
	assert.Equal(t, 2, e.cache.Len())

	tpl, ok := e.cache.Get(utils.FingerprintString("SELECT {{v}}"), "SELECT {{v}}")
	require.True(t, ok)
	assert.Equal(t, []string{"SELECT ", ""}, tpl.Literals)
	assert.Equal(t, []string{"v"}, tpl.Names)
}

func TestCompile(t *testing.T) {
	tpl := Compile("a {{x}} b {{y}} c")
	assert.Equal(t, []string{"a ", " b ", " c"}, tpl.Literals)
	assert.Equal(t, []string{"x", "y"}, tpl.Names)

	tpl = Compile("plain")
	assert.Equal(t, []string{"plain"}, tpl.Literals)
	assert.Empty(t, tpl.Names)
}
