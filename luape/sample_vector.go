package luape

import (
	"fmt"
	"math"
)

// Representation identifies how a SampleVector stores its values.
type Representation uint8

const (
	// EmptyRepresentation holds no data.
	EmptyRepresentation Representation = iota

	// ConstantRepresentation broadcasts one value to every index.
	ConstantRepresentation

	// OwnedRepresentation stores one value per index, in index order.
	OwnedRepresentation

	// ViewRepresentation reads a subset of a full-population vector, which
	// is addressed directly by example index.
	ViewRepresentation
)

// A SampleVector holds the results of one node over an IndexSet.
//
// Values can be read boxed with At(), or through the raw accessors BoolAt(),
// IntAt(), DoubleAt() and ObjectAt() which avoid building a Value.
type SampleVector struct {
	repr     Representation
	kind     Kind
	indices  *IndexSet
	constant Value

	bools   []uint8
	ints    []int
	doubles []float64
	objects []any
}

// NewEmptySamples creates a vector with no data.
func NewEmptySamples(kind Kind) *SampleVector {
	return &SampleVector{repr: EmptyRepresentation, kind: kind, indices: NewIndexSet(0)}
}

// NewConstantSamples broadcasts v over indices.
func NewConstantSamples(indices *IndexSet, v Value) *SampleVector {
	return &SampleVector{
		repr:     ConstantRepresentation,
		kind:     v.Kind,
		indices:  indices,
		constant: v,
	}
}

// NewBoolSamples wraps raw boolean values aligned to indices.
func NewBoolSamples(indices *IndexSet, values []uint8) *SampleVector {
	checkLength(indices, len(values))
	return &SampleVector{repr: OwnedRepresentation, kind: Boolean, indices: indices, bools: values}
}

// NewDoubleSamples wraps double or probability values aligned to indices.
func NewDoubleSamples(kind Kind, indices *IndexSet, values []float64) *SampleVector {
	if kind != Double && kind != Probability {
		panic("double samples cannot have kind " + kind.String())
	}
	checkLength(indices, len(values))
	return &SampleVector{repr: OwnedRepresentation, kind: kind, indices: indices, doubles: values}
}

// NewIntSamples wraps integer or enum values aligned to indices.
func NewIntSamples(kind Kind, indices *IndexSet, values []int) *SampleVector {
	if kind != Integer && kind != Enum {
		panic("int samples cannot have kind " + kind.String())
	}
	checkLength(indices, len(values))
	return &SampleVector{repr: OwnedRepresentation, kind: kind, indices: indices, ints: values}
}

// NewObjectSamples wraps object values aligned to indices.
func NewObjectSamples(indices *IndexSet, values []any) *SampleVector {
	checkLength(indices, len(values))
	return &SampleVector{repr: OwnedRepresentation, kind: Object, indices: indices, objects: values}
}

// NewSamplesFromValues packs boxed values of the given kind.
func NewSamplesFromValues(kind Kind, indices *IndexSet, values []Value) *SampleVector {
	checkLength(indices, len(values))
	switch kind {
	case Boolean:
		raw := make([]uint8, len(values))
		for i, v := range values {
			raw[i] = v.Bool()
		}
		return NewBoolSamples(indices, raw)
	case Double, Probability:
		raw := make([]float64, len(values))
		for i, v := range values {
			raw[i] = v.Double()
		}
		return NewDoubleSamples(kind, indices, raw)
	case Integer, Enum:
		raw := make([]int, len(values))
		for i, v := range values {
			raw[i] = v.Int()
		}
		return NewIntSamples(kind, indices, raw)
	default:
		raw := make([]any, len(values))
		for i, v := range values {
			if !v.Missing {
				raw[i] = v.Obj
			}
		}
		return NewObjectSamples(indices, raw)
	}
}

func checkLength(indices *IndexSet, n int) {
	if indices.Len() != n {
		panic(fmt.Sprintf("got %d values for %d indices", n, indices.Len()))
	}
}

// View creates a vector reading s at a subset of its indices.
//
// The receiver must be an owned vector over a full population [0, N).
func (s *SampleVector) View(indices *IndexSet) *SampleVector {
	if s.repr == ConstantRepresentation {
		return NewConstantSamples(indices, s.constant)
	}
	if s.repr != OwnedRepresentation || !s.indices.IsInterval(s.indices.Len()) {
		panic("views can only be created from full-population vectors")
	}
	if indices.Len() > 0 && indices.Back() >= s.indices.Len() {
		panic(fmt.Sprintf("index %d out of range for population of %d", indices.Back(), s.indices.Len()))
	}
	res := *s
	res.repr = ViewRepresentation
	res.indices = indices
	return &res
}

func (s *SampleVector) Representation() Representation {
	return s.repr
}

func (s *SampleVector) Kind() Kind {
	return s.kind
}

func (s *SampleVector) Indices() *IndexSet {
	return s.indices
}

func (s *SampleVector) Len() int {
	if s.repr == EmptyRepresentation {
		return 0
	}
	return s.indices.Len()
}

// IsConstant returns true if every element is the same broadcast value.
func (s *SampleVector) IsConstant() bool {
	return s.repr == ConstantRepresentation
}

// Constant returns the broadcast value of a constant vector.
func (s *SampleVector) Constant() Value {
	return s.constant
}

func (s *SampleVector) position(i int) int {
	if s.repr == ViewRepresentation {
		return s.indices.At(i)
	}
	return i
}

// At returns the boxed i-th value.
func (s *SampleVector) At(i int) Value {
	switch s.repr {
	case ConstantRepresentation:
		return s.constant
	case EmptyRepresentation:
		panic("read from empty sample vector")
	}
	p := s.position(i)
	switch s.kind {
	case Boolean:
		b := s.bools[p]
		if b == MissingBool {
			return MissingValue(Boolean)
		}
		return BoolValue(b == True)
	case Double:
		return DoubleValue(s.doubles[p])
	case Probability:
		return ProbabilityValue(s.doubles[p])
	case Integer:
		return IntValue(s.ints[p])
	case Enum:
		return EnumValue(s.ints[p])
	default:
		return ObjectValue(s.objects[p])
	}
}

// BoolAt returns the i-th value as a raw boolean. Probabilities above 0.5
// are true.
func (s *SampleVector) BoolAt(i int) uint8 {
	switch s.repr {
	case ConstantRepresentation:
		return s.constant.Bool()
	case EmptyRepresentation:
		panic("read from empty sample vector")
	}
	p := s.position(i)
	switch s.kind {
	case Boolean:
		return s.bools[p]
	case Probability:
		x := s.doubles[p]
		if math.IsNaN(x) {
			return MissingBool
		} else if x > 0.5 {
			return True
		}
		return False
	}
	panic("samples of kind " + s.kind.String() + " are not conditions")
}

// DoubleAt returns the i-th value as a double, with NaN for missing values.
// Booleans read as 0 or 1.
func (s *SampleVector) DoubleAt(i int) float64 {
	switch s.repr {
	case ConstantRepresentation:
		if s.constant.Kind == Boolean {
			return boolToDouble(s.constant.Bool())
		}
		return s.constant.Double()
	case EmptyRepresentation:
		panic("read from empty sample vector")
	}
	p := s.position(i)
	switch s.kind {
	case Double, Probability:
		return s.doubles[p]
	case Integer, Enum:
		x := s.ints[p]
		if x == MissingInt {
			return math.NaN()
		}
		return float64(x)
	case Boolean:
		return boolToDouble(s.bools[p])
	}
	panic("samples of kind " + s.kind.String() + " are not numeric")
}

// IntAt returns the i-th value as an integer, with MissingInt for missing
// values.
func (s *SampleVector) IntAt(i int) int {
	switch s.repr {
	case ConstantRepresentation:
		if s.constant.Kind == Boolean {
			return boolToInt(s.constant.Bool())
		}
		return s.constant.Int()
	case EmptyRepresentation:
		panic("read from empty sample vector")
	}
	p := s.position(i)
	switch s.kind {
	case Integer, Enum:
		return s.ints[p]
	case Boolean:
		return boolToInt(s.bools[p])
	}
	panic("samples of kind " + s.kind.String() + " are not integers")
}

// ObjectAt returns the i-th object, or nil if it is missing.
func (s *SampleVector) ObjectAt(i int) any {
	switch s.repr {
	case ConstantRepresentation:
		return s.constant.Obj
	case EmptyRepresentation:
		panic("read from empty sample vector")
	}
	if s.kind != Object {
		panic("samples of kind " + s.kind.String() + " are not objects")
	}
	return s.objects[s.position(i)]
}

// SizeInBytes estimates the memory held by the vector's payload.
func (s *SampleVector) SizeInBytes() int64 {
	if s.repr != OwnedRepresentation {
		return 64
	}
	return 64 + int64(len(s.bools)) + 8*int64(len(s.ints)+len(s.doubles)) +
		16*int64(len(s.objects))
}

func boolToDouble(b uint8) float64 {
	switch b {
	case True:
		return 1
	case False:
		return 0
	}
	return math.NaN()
}

func boolToInt(b uint8) int {
	switch b {
	case True:
		return 1
	case False:
		return 0
	}
	return MissingInt
}
