package luape

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A Function is applied element-wise to the results of child nodes.
//
// ComputeBatch must produce, for every index, exactly the value that Compute
// produces for the same inputs.
type Function interface {
	// Name identifies the function class in persisted models.
	Name() string

	// Params returns the constructor arguments of the function.
	Params() []float64

	Arity() int

	// OutputKind checks the kinds of the inputs and returns the result kind.
	// It panics if the inputs are not accepted.
	OutputKind(inputs []Kind) Kind

	Compute(inputs []Value) Value
	ComputeBatch(indices *IndexSet, inputs []*SampleVector) *SampleVector
}

// NewFunction creates a function from its name and parameters.
func NewFunction(name string, params []float64) (Function, error) {
	ctor, ok := functionConstructors[name]
	if !ok {
		return nil, errors.Errorf("unknown function: %s", name)
	}
	return ctor(params)
}

var functionConstructors = map[string]func([]float64) (Function, error){
	"stump": func(p []float64) (Function, error) {
		if len(p) != 1 {
			return nil, errors.Errorf("stump expects 1 parameter, got %d", len(p))
		}
		return &Stump{Threshold: p[0]}, nil
	},
	"equals": func(p []float64) (Function, error) {
		if len(p) != 1 {
			return nil, errors.Errorf("equals expects 1 parameter, got %d", len(p))
		}
		return &EqualsConstant{Value: int(p[0])}, nil
	},
	"scale": func(p []float64) (Function, error) {
		if len(p) != 1 {
			return nil, errors.Errorf("scale expects 1 parameter, got %d", len(p))
		}
		return &Scale{Factor: p[0]}, nil
	},
	"not":     noParams(func() Function { return &Not{} }),
	"and":     noParams(func() Function { return &And{} }),
	"or":      noParams(func() Function { return &Or{} }),
	"add":     noParams(func() Function { return &Arithmetic{Op: AddOp} }),
	"sub":     noParams(func() Function { return &Arithmetic{Op: SubOp} }),
	"mul":     noParams(func() Function { return &Arithmetic{Op: MulOp} }),
	"div":     noParams(func() Function { return &Arithmetic{Op: DivOp} }),
	"sigmoid": noParams(func() Function { return &Sigmoid{} }),
}

func noParams(f func() Function) func([]float64) (Function, error) {
	return func(p []float64) (Function, error) {
		if len(p) != 0 {
			return nil, errors.Errorf("function expects no parameters, got %d", len(p))
		}
		return f(), nil
	}
}

func functionKey(f Function) string {
	var b strings.Builder
	b.WriteString(f.Name())
	for _, p := range f.Params() {
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
	}
	return b.String()
}

func checkInputKinds(f Function, inputs []Kind, accept func(Kind) bool) {
	if len(inputs) != f.Arity() {
		panic(fmt.Sprintf("%s expects %d inputs but got %d", f.Name(), f.Arity(), len(inputs)))
	}
	for i, k := range inputs {
		if !accept(k) {
			panic(fmt.Sprintf("%s does not accept %s as input %d", f.Name(), k, i))
		}
	}
}

// constantBatch handles the case where every input is a broadcast constant.
func constantBatch(f Function, indices *IndexSet, inputs []*SampleVector) (*SampleVector, bool) {
	values := make([]Value, len(inputs))
	for i, in := range inputs {
		if !in.IsConstant() {
			return nil, false
		}
		values[i] = in.Constant()
	}
	return NewConstantSamples(indices, f.Compute(values)), true
}

// Stump compares a numeric input to a threshold: x > Threshold.
type Stump struct {
	Threshold float64
}

func (s *Stump) Name() string      { return "stump" }
func (s *Stump) Params() []float64 { return []float64{s.Threshold} }
func (s *Stump) Arity() int        { return 1 }

func (s *Stump) OutputKind(inputs []Kind) Kind {
	checkInputKinds(s, inputs, Kind.IsNumeric)
	return Boolean
}

func (s *Stump) Compute(inputs []Value) Value {
	return rawBoolValue(s.apply(inputs[0].Double()))
}

func (s *Stump) ComputeBatch(indices *IndexSet, inputs []*SampleVector) *SampleVector {
	if res, ok := constantBatch(s, indices, inputs); ok {
		return res
	}
	in := inputs[0]
	out := make([]uint8, indices.Len())
	for i := range out {
		out[i] = s.apply(in.DoubleAt(i))
	}
	return NewBoolSamples(indices, out)
}

func (s *Stump) apply(x float64) uint8 {
	if math.IsNaN(x) {
		return MissingBool
	} else if x > s.Threshold {
		return True
	}
	return False
}

// Not negates a condition.
type Not struct{}

func (n *Not) Name() string      { return "not" }
func (n *Not) Params() []float64 { return nil }
func (n *Not) Arity() int        { return 1 }

func (n *Not) OutputKind(inputs []Kind) Kind {
	checkInputKinds(n, inputs, Kind.IsCondition)
	return Boolean
}

func (n *Not) Compute(inputs []Value) Value {
	return rawBoolValue(notBool(inputs[0].Bool()))
}

func (n *Not) ComputeBatch(indices *IndexSet, inputs []*SampleVector) *SampleVector {
	if res, ok := constantBatch(n, indices, inputs); ok {
		return res
	}
	out := make([]uint8, indices.Len())
	for i := range out {
		out[i] = notBool(inputs[0].BoolAt(i))
	}
	return NewBoolSamples(indices, out)
}

func notBool(b uint8) uint8 {
	switch b {
	case True:
		return False
	case False:
		return True
	}
	return MissingBool
}

// And is the conjunction of two conditions. A missing input makes the result
// missing.
type And struct{}

func (a *And) Name() string      { return "and" }
func (a *And) Params() []float64 { return nil }
func (a *And) Arity() int        { return 2 }

func (a *And) OutputKind(inputs []Kind) Kind {
	checkInputKinds(a, inputs, Kind.IsCondition)
	return Boolean
}

func (a *And) Compute(inputs []Value) Value {
	return rawBoolValue(andBool(inputs[0].Bool(), inputs[1].Bool()))
}

func (a *And) ComputeBatch(indices *IndexSet, inputs []*SampleVector) *SampleVector {
	if res, ok := constantBatch(a, indices, inputs); ok {
		return res
	}
	out := make([]uint8, indices.Len())
	for i := range out {
		out[i] = andBool(inputs[0].BoolAt(i), inputs[1].BoolAt(i))
	}
	return NewBoolSamples(indices, out)
}

func andBool(x, y uint8) uint8 {
	if x == MissingBool || y == MissingBool {
		return MissingBool
	} else if x == True && y == True {
		return True
	}
	return False
}

// Or is the disjunction of two conditions. A missing input makes the result
// missing.
type Or struct{}

func (o *Or) Name() string      { return "or" }
func (o *Or) Params() []float64 { return nil }
func (o *Or) Arity() int        { return 2 }

func (o *Or) OutputKind(inputs []Kind) Kind {
	checkInputKinds(o, inputs, Kind.IsCondition)
	return Boolean
}

func (o *Or) Compute(inputs []Value) Value {
	return rawBoolValue(orBool(inputs[0].Bool(), inputs[1].Bool()))
}

func (o *Or) ComputeBatch(indices *IndexSet, inputs []*SampleVector) *SampleVector {
	if res, ok := constantBatch(o, indices, inputs); ok {
		return res
	}
	out := make([]uint8, indices.Len())
	for i := range out {
		out[i] = orBool(inputs[0].BoolAt(i), inputs[1].BoolAt(i))
	}
	return NewBoolSamples(indices, out)
}

func orBool(x, y uint8) uint8 {
	if x == MissingBool || y == MissingBool {
		return MissingBool
	} else if x == True || y == True {
		return True
	}
	return False
}

// ArithmeticOp is a binary operator on doubles.
type ArithmeticOp uint8

const (
	AddOp ArithmeticOp = iota
	SubOp
	MulOp
	DivOp
)

var arithmeticNames = [...]string{"add", "sub", "mul", "div"}
var arithmeticSymbols = [...]string{"+", "-", "*", "/"}

func (a ArithmeticOp) String() string {
	return arithmeticSymbols[a]
}

// Arithmetic combines two numeric inputs into a double.
type Arithmetic struct {
	Op ArithmeticOp
}

func (a *Arithmetic) Name() string      { return arithmeticNames[a.Op] }
func (a *Arithmetic) Params() []float64 { return nil }
func (a *Arithmetic) Arity() int        { return 2 }

// Commutative is true for operators whose inputs can be swapped.
func (a *Arithmetic) Commutative() bool {
	return a.Op == AddOp || a.Op == MulOp
}

func (a *Arithmetic) OutputKind(inputs []Kind) Kind {
	checkInputKinds(a, inputs, Kind.IsNumeric)
	return Double
}

func (a *Arithmetic) Compute(inputs []Value) Value {
	return DoubleValue(a.apply(inputs[0].Double(), inputs[1].Double()))
}

func (a *Arithmetic) ComputeBatch(indices *IndexSet, inputs []*SampleVector) *SampleVector {
	if res, ok := constantBatch(a, indices, inputs); ok {
		return res
	}
	out := make([]float64, indices.Len())
	for i := range out {
		out[i] = a.apply(inputs[0].DoubleAt(i), inputs[1].DoubleAt(i))
	}
	return NewDoubleSamples(Double, indices, out)
}

func (a *Arithmetic) apply(x, y float64) float64 {
	switch a.Op {
	case AddOp:
		return x + y
	case SubOp:
		return x - y
	case MulOp:
		return x * y
	default:
		if y == 0 {
			return math.NaN()
		}
		return x / y
	}
}

// EqualsConstant tests an integer or enum input against a fixed value.
type EqualsConstant struct {
	Value int
}

func (e *EqualsConstant) Name() string      { return "equals" }
func (e *EqualsConstant) Params() []float64 { return []float64{float64(e.Value)} }
func (e *EqualsConstant) Arity() int        { return 1 }

func (e *EqualsConstant) OutputKind(inputs []Kind) Kind {
	checkInputKinds(e, inputs, func(k Kind) bool {
		return k == Integer || k == Enum
	})
	return Boolean
}

func (e *EqualsConstant) Compute(inputs []Value) Value {
	return rawBoolValue(e.apply(inputs[0].Int()))
}

func (e *EqualsConstant) ComputeBatch(indices *IndexSet, inputs []*SampleVector) *SampleVector {
	if res, ok := constantBatch(e, indices, inputs); ok {
		return res
	}
	out := make([]uint8, indices.Len())
	for i := range out {
		out[i] = e.apply(inputs[0].IntAt(i))
	}
	return NewBoolSamples(indices, out)
}

func (e *EqualsConstant) apply(x int) uint8 {
	if x == MissingInt {
		return MissingBool
	} else if x == e.Value {
		return True
	}
	return False
}

// Sigmoid maps a numeric input into a probability.
type Sigmoid struct{}

func (s *Sigmoid) Name() string      { return "sigmoid" }
func (s *Sigmoid) Params() []float64 { return nil }
func (s *Sigmoid) Arity() int        { return 1 }

func (s *Sigmoid) OutputKind(inputs []Kind) Kind {
	checkInputKinds(s, inputs, Kind.IsNumeric)
	return Probability
}

func (s *Sigmoid) Compute(inputs []Value) Value {
	return ProbabilityValue(sigmoid(inputs[0].Double()))
}

func (s *Sigmoid) ComputeBatch(indices *IndexSet, inputs []*SampleVector) *SampleVector {
	if res, ok := constantBatch(s, indices, inputs); ok {
		return res
	}
	out := make([]float64, indices.Len())
	for i := range out {
		out[i] = sigmoid(inputs[0].DoubleAt(i))
	}
	return NewDoubleSamples(Probability, indices, out)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Scale multiplies a numeric input by a fixed factor.
type Scale struct {
	Factor float64
}

func (s *Scale) Name() string      { return "scale" }
func (s *Scale) Params() []float64 { return []float64{s.Factor} }
func (s *Scale) Arity() int        { return 1 }

func (s *Scale) OutputKind(inputs []Kind) Kind {
	checkInputKinds(s, inputs, func(k Kind) bool {
		return k.IsNumeric() || k == Boolean
	})
	return Double
}

func (s *Scale) Compute(inputs []Value) Value {
	v := inputs[0]
	if v.Kind == Boolean {
		return DoubleValue(s.Factor * boolToDouble(v.Bool()))
	}
	return DoubleValue(s.Factor * v.Double())
}

func (s *Scale) ComputeBatch(indices *IndexSet, inputs []*SampleVector) *SampleVector {
	if res, ok := constantBatch(s, indices, inputs); ok {
		return res
	}
	out := make([]float64, indices.Len())
	for i := range out {
		out[i] = s.Factor * inputs[0].DoubleAt(i)
	}
	return NewDoubleSamples(Double, indices, out)
}

func rawBoolValue(b uint8) Value {
	if b == MissingBool {
		return MissingValue(Boolean)
	}
	return BoolValue(b == True)
}
