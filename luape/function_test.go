package luape

import (
	"math"
	"testing"
)

func TestFunctionBatchMatchesCompute(t *testing.T) {
	indices := NewIndexSetInterval(0, 5)
	doubles := NewDoubleSamples(Double, indices, []float64{-1, 0, 2.5, math.NaN(), 10})
	others := NewDoubleSamples(Double, indices, []float64{3, 0, 0.5, 1, math.NaN()})
	bools := NewBoolSamples(indices, []uint8{True, False, MissingBool, True, False})
	otherBools := NewBoolSamples(indices, []uint8{True, True, False, MissingBool, False})
	ints := NewIntSamples(Integer, indices, []int{4, -2, MissingInt, 1, 0})
	enums := NewIntSamples(Enum, indices, []int{0, 2, MissingInt, 2, 1})
	probs := NewDoubleSamples(Probability, indices, []float64{0.1, 0.9, 0.5, math.NaN(), 0.7})

	tests := []struct {
		f      Function
		inputs []*SampleVector
	}{
		{&Stump{Threshold: 1}, []*SampleVector{doubles}},
		{&Stump{Threshold: 1}, []*SampleVector{ints}},
		{&Not{}, []*SampleVector{bools}},
		{&Not{}, []*SampleVector{probs}},
		{&And{}, []*SampleVector{bools, otherBools}},
		{&Or{}, []*SampleVector{bools, probs}},
		{&Arithmetic{Op: AddOp}, []*SampleVector{doubles, others}},
		{&Arithmetic{Op: SubOp}, []*SampleVector{doubles, others}},
		{&Arithmetic{Op: MulOp}, []*SampleVector{doubles, ints}},
		{&Arithmetic{Op: DivOp}, []*SampleVector{doubles, others}},
		{&EqualsConstant{Value: 2}, []*SampleVector{enums}},
		{&EqualsConstant{Value: 1}, []*SampleVector{ints}},
		{&Sigmoid{}, []*SampleVector{doubles}},
		{&Scale{Factor: -2}, []*SampleVector{doubles}},
		{&Scale{Factor: 3}, []*SampleVector{bools}},
	}
	for _, test := range tests {
		kinds := make([]Kind, len(test.inputs))
		for i, in := range test.inputs {
			kinds[i] = in.Kind()
		}
		outKind := test.f.OutputKind(kinds)
		batch := test.f.ComputeBatch(indices, test.inputs)
		if batch.Kind() != outKind {
			t.Errorf("%s: batch kind %s but output kind %s", test.f.Name(), batch.Kind(), outKind)
		}
		for i := 0; i < indices.Len(); i++ {
			args := make([]Value, len(test.inputs))
			for j, in := range test.inputs {
				args[j] = in.At(i)
			}
			expected := test.f.Compute(args)
			if actual := batch.At(i); !actual.Equal(expected) {
				t.Errorf("%s: example %d: batch gave %v but single gave %v", test.f.Name(), i,
					actual, expected)
			}
		}
	}
}

func TestFunctionConstantBatch(t *testing.T) {
	indices := NewIndexSetInterval(0, 3)
	in := NewConstantSamples(indices, DoubleValue(4))
	res := (&Stump{Threshold: 3}).ComputeBatch(indices, []*SampleVector{in})
	if !res.IsConstant() || !res.Constant().Equal(BoolValue(true)) {
		t.Errorf("expected constant true, got %v", res.At(0))
	}
}

func TestDivisionByZeroIsMissing(t *testing.T) {
	v := (&Arithmetic{Op: DivOp}).Compute([]Value{DoubleValue(1), DoubleValue(0)})
	if !v.Missing {
		t.Errorf("expected missing value, got %v", v)
	}
}

func TestNewFunction(t *testing.T) {
	for _, f := range []Function{
		&Stump{Threshold: 0.25},
		&EqualsConstant{Value: 3},
		&Scale{Factor: -1.5},
		&Not{},
		&And{},
		&Or{},
		&Arithmetic{Op: AddOp},
		&Arithmetic{Op: SubOp},
		&Arithmetic{Op: MulOp},
		&Arithmetic{Op: DivOp},
		&Sigmoid{},
	} {
		g, err := NewFunction(f.Name(), f.Params())
		if err != nil {
			t.Fatal(err)
		}
		if functionKey(g) != functionKey(f) {
			t.Errorf("expected %s but got %s", functionKey(f), functionKey(g))
		}
	}
	if _, err := NewFunction("stump", nil); err == nil {
		t.Error("expected error for missing threshold")
	}
	if _, err := NewFunction("cosine", nil); err == nil {
		t.Error("expected error for unknown function")
	}
}

func TestOutputKindRejectsInputs(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	(&Not{}).OutputKind([]Kind{Double})
}
