package luape

import (
	"math"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestForestLearner(t *testing.T) {
	d := stepDataset(Double)
	u := NewUniverse()
	forest := &ForestLearner{
		TreeLearner:  &TreeLearner{WeakLearner: &ExactWeakLearner{}, MinExamplesToSplit: 2},
		NewObjective: func() LearningObjective { return &RegressionObjective{} },
		NumTrees:     3,
		MaxCacheSize: 1 << 20,
		Concurrency:  2,
		Logger:       zaptest.NewLogger(t),
	}
	root, err := forest.Learn(u, d)
	if err != nil {
		t.Fatal(err)
	}
	m := &Model{Universe: u, Root: root}
	if n := len(u.Node(root).Children); n != 3 {
		t.Errorf("expected 3 trees but got %d", n)
	}
	for i := 0; i < d.NumExamples(); i++ {
		expected := d.Supervisions[i].Num
		if p := m.Predict(d.Row(i)).Double(); math.Abs(p-expected) > 1e-8 {
			t.Errorf("example %d: expected %f but got %f", i, expected, p)
		}
	}
}

func TestForestLearnerSubsampling(t *testing.T) {
	d := stepDataset(Boolean)
	u := NewUniverse()
	forest := &ForestLearner{
		TreeLearner:    &TreeLearner{WeakLearner: &RandomSubsetWeakLearner{NumAttributes: 1}},
		NewObjective:   func() LearningObjective { return &BinaryClassificationObjective{} },
		NumTrees:       5,
		SampleFraction: 0.5,
		MaxCacheSize:   1 << 20,
		Seed:           3,
	}
	root, err := forest.Learn(u, d)
	if err != nil {
		t.Fatal(err)
	}
	m := &Model{Universe: u, Root: root}
	for i := 0; i < d.NumExamples(); i++ {
		if p := m.Predict(d.Row(i)); p.Kind != Double {
			t.Errorf("expected a double prediction but got %v", p)
		}
	}

	forest.NumTrees = 0
	if _, err := forest.Learn(NewUniverse(), d); err == nil {
		t.Error("expected an error for an empty forest")
	}
	classes := NewDataset([]InputSpec{{Name: "x", Kind: Double}}, Enum)
	for i := 0; i < 6; i++ {
		classes.Add([]Value{DoubleValue(float64(i))}, EnumValue(i%3))
	}
	forest.NumTrees = 2
	forest.NewObjective = func() LearningObjective { return &InformationGainObjective{} }
	if _, err := forest.Learn(NewUniverse(), classes); err == nil {
		t.Error("expected an error for enum votes")
	}
}
