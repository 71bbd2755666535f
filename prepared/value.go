package prepared

import (
	"fmt"
	"strconv"

	"github.com/Konsultn-Engineering/gsql/database"
	"github.com/pkg/errors"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindInvalid is the kind of the zero Value. It cannot be bound.
	KindInvalid Kind = iota
	KindNumber
	KindText
	KindBool
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	default:
		return "invalid"
	}
}

// Value is a positional parameter for a prepared statement.
type Value struct {
	kind Kind
	num  float64
	text string
	b    bool
}

func Number(v float64) Value { return Value{kind: KindNumber, num: v} }
func Text(v string) Value    { return Value{kind: KindText, text: v} }
func Bool(v bool) Value      { return Value{kind: KindBool, b: v} }
func Null() Value            { return Value{kind: KindNull} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return strconv.Quote(v.text)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNull:
		return "null"
	default:
		return "<invalid>"
	}
}

// bind writes v into stmt at pos.
func (v Value) bind(stmt database.Stmt, pos int) error {
	switch v.kind {
	case KindNumber:
		stmt.SetNumber(pos, v.num)
	case KindText:
		stmt.SetString(pos, v.text)
	case KindBool:
		stmt.SetBool(pos, v.b)
	case KindNull:
		stmt.SetNull(pos)
	default:
		return errors.Wrapf(ErrUnsupportedParameter, "parameter %d has kind %s", pos, v.kind)
	}
	return nil
}

// Values converts dynamically typed arguments. Integers and floats become
// numbers, nil becomes null; any other type is rejected.
func Values(args ...any) ([]Value, error) {
	out := make([]Value, len(args))
	for i, arg := range args {
		v, err := valueOf(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %d", i+1)
		}
		out[i] = v
	}
	return out, nil
}

func valueOf(arg any) (Value, error) {
	switch a := arg.(type) {
	case nil:
		return Null(), nil
	case Value:
		if a.kind == KindInvalid {
			return Value{}, ErrUnsupportedParameter
		}
		return a, nil
	case string:
		return Text(a), nil
	case bool:
		return Bool(a), nil
	case float64:
		return Number(a), nil
	case float32:
		return Number(float64(a)), nil
	case int:
		return Number(float64(a)), nil
	case int8:
		return Number(float64(a)), nil
	case int16:
		return Number(float64(a)), nil
	case int32:
		return Number(float64(a)), nil
	case int64:
		return Number(float64(a)), nil
	case uint:
		return Number(float64(a)), nil
	case uint8:
		return Number(float64(a)), nil
	case uint16:
		return Number(float64(a)), nil
	case uint32:
		return Number(float64(a)), nil
	case uint64:
		return Number(float64(a)), nil
	default:
		return Value{}, errors.Wrap(ErrUnsupportedParameter, fmt.Sprintf("type %T", arg))
	}
}
