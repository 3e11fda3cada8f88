package luape

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the primitive result type of an expression node.
type Kind uint8

const (
	Boolean Kind = iota
	Probability
	Integer
	Double
	Enum
	Object
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "boolean"
	case Probability:
		return "probability"
	case Integer:
		return "integer"
	case Double:
		return "double"
	case Enum:
		return "enum"
	case Object:
		return "object"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := Boolean; k <= Object; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown kind: %s", s)
}

// IsNumeric returns true for kinds that can be read as a double.
func (k Kind) IsNumeric() bool {
	return k == Probability || k == Integer || k == Double
}

// IsCondition returns true for kinds usable as a Test condition.
func (k Kind) IsCondition() bool {
	return k == Boolean || k == Probability
}

// Raw storage encodings for missing values.
const (
	False       uint8 = 0
	True        uint8 = 1
	MissingBool uint8 = 2

	MissingInt = math.MinInt
)

// A Value is one boxed result of an expression.
//
// Boolean values store 0 or 1 in Num, enums store the class index.
type Value struct {
	Kind    Kind
	Missing bool
	Num     float64
	Obj     any
}

func BoolValue(b bool) Value {
	if b {
		return Value{Kind: Boolean, Num: 1}
	}
	return Value{Kind: Boolean}
}

func DoubleValue(x float64) Value {
	return Value{Kind: Double, Num: x, Missing: math.IsNaN(x)}
}

func ProbabilityValue(p float64) Value {
	return Value{Kind: Probability, Num: p, Missing: math.IsNaN(p)}
}

func IntValue(x int) Value {
	return Value{Kind: Integer, Num: float64(x), Missing: x == MissingInt}
}

func EnumValue(x int) Value {
	return Value{Kind: Enum, Num: float64(x), Missing: x == MissingInt}
}

func ObjectValue(x any) Value {
	return Value{Kind: Object, Obj: x, Missing: x == nil}
}

// MissingValue returns the missing sentinel for a kind.
func MissingValue(k Kind) Value {
	v := Value{Kind: k, Missing: true}
	if k == Double || k == Probability {
		v.Num = math.NaN()
	}
	return v
}

// Bool returns the raw boolean encoding of v.
func (v Value) Bool() uint8 {
	if v.Missing {
		return MissingBool
	}
	switch v.Kind {
	case Boolean:
		if v.Num != 0 {
			return True
		}
		return False
	case Probability:
		if v.Num > 0.5 {
			return True
		}
		return False
	}
	panic("value of kind " + v.Kind.String() + " is not a condition")
}

// Double returns the numeric payload, or NaN if v is missing.
func (v Value) Double() float64 {
	if v.Missing {
		return math.NaN()
	}
	return v.Num
}

// Int returns the integer payload, or MissingInt if v is missing.
func (v Value) Int() int {
	if v.Missing {
		return MissingInt
	}
	return int(v.Num)
}

// Equal compares two values. Missing values of one kind are equal.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind || v.Missing != other.Missing {
		return false
	}
	if v.Missing {
		return true
	}
	if v.Kind == Object {
		if a, ok := v.Obj.([]float64); ok {
			b, ok := other.Obj.([]float64)
			if !ok || len(a) != len(b) {
				return false
			}
			for i, x := range a {
				if b[i] != x {
					return false
				}
			}
			return true
		}
		return v.Obj == other.Obj
	}
	return v.Num == other.Num
}

func (v Value) String() string {
	if v.Missing {
		return "missing"
	}
	switch v.Kind {
	case Boolean:
		return strconv.FormatBool(v.Num != 0)
	case Integer, Enum:
		return strconv.Itoa(int(v.Num))
	case Object:
		return fmt.Sprint(v.Obj)
	}
	return strconv.FormatFloat(v.Num, 'g', -1, 64)
}
