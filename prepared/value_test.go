package prepared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValues(t *testing.T) {
	got, err := Values(42, int64(-1), uint8(3), 1.5, float32(2), "abc", true, nil, Text("v"))
	require.NoError(t, err)

	assert.Equal(t, []Value{
		Number(42), Number(-1), Number(3), Number(1.5), Number(2),
		Text("abc"), Bool(true), Null(), Text("v"),
	}, got)
}

func TestValuesRejectsUnsupported(t *testing.T) {
	for _, arg := range []any{[]int{1}, struct{}{}, map[string]int{}, Value{}} {
		_, err := Values("ok", arg)
		assert.ErrorIs(t, err, ErrUnsupportedParameter, "%T", arg)
	}
}

func TestValueKinds(t *testing.T) {
	assert.Equal(t, KindInvalid, Value{}.Kind())
	assert.Equal(t, KindNumber, Number(1).Kind())
	assert.Equal(t, KindText, Text("").Kind())
	assert.Equal(t, KindBool, Bool(false).Kind())
	assert.Equal(t, KindNull, Null().Kind())

	assert.Equal(t, "42", Number(42).String())
	assert.Equal(t, `"a"`, Text("a").String())
	assert.Equal(t, "null", Null().String())
	assert.Equal(t, "<invalid>", Value{}.String())
}
