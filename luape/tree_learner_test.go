package luape

import (
	"math"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// stepDataset has x = 1..8 with the labels flipping between 4 and 5.
func stepDataset(supervisionKind Kind) *Dataset {
	d := NewDataset([]InputSpec{{Name: "x", Kind: Double}}, supervisionKind)
	for i := 1; i <= 8; i++ {
		label := BoolValue(i > 4)
		if supervisionKind == Double {
			label = DoubleValue(label.Num)
		}
		if err := d.Add([]Value{DoubleValue(float64(i))}, label); err != nil {
			panic(err)
		}
	}
	return d
}

func newTestContext(t *testing.T, d *Dataset, obj LearningObjective) *LearningContext {
	cache, err := d.NewSamplesCache(NewUniverse(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	return NewLearningContext(cache, obj, d.SupervisionSamples(), d.Weights)
}

func TestTreeLearnerStepFunction(t *testing.T) {
	for _, test := range []struct {
		name string
		obj  LearningObjective
		low  Value
		high Value
	}{
		{
			name: "regression",
			obj:  &RegressionObjective{},
			low:  DoubleValue(0),
			high: DoubleValue(1),
		},
		{
			name: "binary",
			obj:  &BinaryClassificationObjective{},
			low:  ProbabilityValue(0),
			high: ProbabilityValue(1),
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			ctx := newTestContext(t, stepDataset(Boolean), test.obj)
			learner := &TreeLearner{WeakLearner: &ExactWeakLearner{}, MinExamplesToSplit: 2}
			root := learner.Learn(ctx, ctx.Cache.AllIndices())

			u := ctx.Universe
			info := u.Node(root)
			if info.Kind != TestNode {
				t.Fatalf("expected a test at the root but got %s", u.Format(root))
			}
			cond := u.Node(info.Children[TestCondition])
			stump, ok := cond.Function.(*Stump)
			if !ok || stump.Threshold != 4.5 {
				t.Fatalf("expected x > 4.5 but got %s", u.Format(cond.Ref))
			}
			success := u.Node(info.Children[TestSuccess])
			failure := u.Node(info.Children[TestFailure])
			if success.Kind != ConstantNode || !success.Constant.Equal(test.high) {
				t.Errorf("expected success leaf %v but got %s", test.high, u.Format(success.Ref))
			}
			if failure.Kind != ConstantNode || !failure.Constant.Equal(test.low) {
				t.Errorf("expected failure leaf %v but got %s", test.low, u.Format(failure.Ref))
			}
			if missing := u.Node(info.Children[TestMissing]); !missing.Constant.Missing {
				t.Errorf("expected missing leaf for the empty branch, got %s", u.Format(missing.Ref))
			}
			if u.Importance(cond.Ref) <= 0 {
				t.Error("the split should have positive importance")
			}
		})
	}
}

func TestTreeLearnerLogsConditions(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := newTestContext(t, stepDataset(Double), &RegressionObjective{})
	ctx.Logger = zap.New(core)
	learner := &TreeLearner{WeakLearner: &ExactWeakLearner{}, MinExamplesToSplit: 2}
	learner.Learn(ctx, ctx.Cache.AllIndices())

	for _, msg := range []string{"split", "weak learner"} {
		entries := logs.FilterMessage(msg).All()
		if len(entries) != 1 {
			t.Fatalf("expected one %q entry but got %d", msg, len(entries))
		}
		if cond := entries[0].ContextMap()["condition"]; cond != "x > 4.5" {
			t.Errorf("%s: unexpected condition %v", msg, cond)
		}
	}
}

func TestTreeLearnerTermination(t *testing.T) {
	learner := &TreeLearner{WeakLearner: &ExactWeakLearner{}, MinExamplesToSplit: 0}

	single := NewDataset([]InputSpec{{Name: "x", Kind: Double}}, Double)
	single.Add([]Value{DoubleValue(3)}, DoubleValue(2))
	ctx := newTestContext(t, single, &RegressionObjective{})
	root := learner.Learn(ctx, ctx.Cache.AllIndices())
	if info := ctx.Universe.Node(root); info.Kind != ConstantNode || info.Constant.Num != 2 {
		t.Errorf("expected a single leaf, got %s", ctx.Universe.Format(root))
	}

	constant := NewDataset([]InputSpec{{Name: "x", Kind: Double}}, Double)
	for i := 0; i < 20; i++ {
		constant.Add([]Value{DoubleValue(float64(i))}, DoubleValue(5))
	}
	for _, minExamples := range []int{0, 2, 100} {
		learner.MinExamplesToSplit = minExamples
		ctx := newTestContext(t, constant, &RegressionObjective{})
		root := learner.Learn(ctx, ctx.Cache.AllIndices())
		if info := ctx.Universe.Node(root); info.Kind != ConstantNode || info.Constant.Num != 5 {
			t.Errorf("min %d: expected a single leaf, got %s", minExamples, ctx.Universe.Format(root))
		}
	}
}

func TestTreeLearnerMaxDepth(t *testing.T) {
	d := NewDataset([]InputSpec{{Name: "x", Kind: Double}}, Double)
	for i := 0; i < 64; i++ {
		d.Add([]Value{DoubleValue(float64(i))}, DoubleValue(float64(i)))
	}
	reg := prometheus.NewRegistry()
	metrics := NewLearnerMetrics(reg)
	for _, depth := range []int{1, 2, 3} {
		ctx := newTestContext(t, d, &RegressionObjective{})
		learner := &TreeLearner{
			WeakLearner:        &ExactWeakLearner{},
			MinExamplesToSplit: 2,
			MaxDepth:           depth,
			Metrics:            metrics,
		}
		m := &Model{Universe: ctx.Universe, Root: learner.Learn(ctx, ctx.Cache.AllIndices())}
		if tests := treeDepth(ctx.Universe, m.Root); tests != depth {
			t.Errorf("expected %d nested tests but got %d", depth, tests)
		}
	}
	if splits := gatheredValue(t, reg, "luape_tree_splits_total"); splits != 1+3+7 {
		t.Errorf("unexpected number of splits: %f", splits)
	}
	// Each level also leaves an empty missing branch.
	if leaves := gatheredValue(t, reg, "luape_tree_leaves_total"); leaves != (2+4+8)+(1+3+7) {
		t.Errorf("unexpected number of leaves: %f", leaves)
	}
}

func treeDepth(u *Universe, ref NodeRef) int {
	info := u.Node(ref)
	if info.Kind != TestNode {
		return 0
	}
	var res int
	for _, c := range info.Children[1:] {
		if d := treeDepth(u, c); d > res {
			res = d
		}
	}
	return res + 1
}

func TestTreeLearnerEnumInput(t *testing.T) {
	d := NewDataset([]InputSpec{{Name: "color", Kind: Enum}}, Enum)
	for i := 0; i < 30; i++ {
		c := i % 3
		d.Add([]Value{EnumValue(c)}, EnumValue(c))
	}
	d.Add([]Value{MissingValue(Enum)}, EnumValue(1))

	ctx := newTestContext(t, d, &InformationGainObjective{})
	learner := &TreeLearner{WeakLearner: &ExactWeakLearner{}, MinExamplesToSplit: 2}
	m := &Model{Universe: ctx.Universe, Root: learner.Learn(ctx, ctx.Cache.AllIndices())}
	for c := 0; c < 3; c++ {
		if pred := m.Predict([]Value{EnumValue(c)}); pred.Int() != c {
			t.Errorf("class %d predicted as %v", c, pred)
		}
	}
	if pred := m.Predict([]Value{MissingValue(Enum)}); pred.Int() != 1 {
		t.Errorf("missing color predicted as %v", pred)
	}
}

func TestWeakLearnersFindSignal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	d := NewDataset([]InputSpec{
		{Name: "noise1", Kind: Double},
		{Name: "signal", Kind: Double},
		{Name: "noise2", Kind: Integer},
	}, Double)
	for i := 0; i < 200; i++ {
		s := rng.Float64()
		y := 0.0
		if s > 0.3 {
			y = 10
		}
		d.Add([]Value{DoubleValue(rng.Float64()), DoubleValue(s), IntValue(rng.Intn(5))},
			DoubleValue(y))
	}
	for name, weak := range map[string]WeakLearner{
		"exact":         &ExactWeakLearner{},
		"random_subset": &RandomSubsetWeakLearner{NumAttributes: 3},
		"extra_trees":   &ExtraTreesWeakLearner{NumAttributes: 3},
		"formula":       &FormulaWeakLearner{NumFormulas: 4},
	} {
		ctx := newTestContext(t, d, &RegressionObjective{})
		ctx.Rand = rand.New(rand.NewSource(1))
		learner := &TreeLearner{WeakLearner: weak, MinExamplesToSplit: 2, MaxDepth: 8}
		m := &Model{Universe: ctx.Universe, Root: learner.Learn(ctx, ctx.Cache.AllIndices())}

		var sqErr float64
		for i := 0; i < d.NumExamples(); i++ {
			diff := m.Predict(d.Row(i)).Double() - d.Supervisions[i].Num
			sqErr += diff * diff
		}
		if mse := sqErr / float64(d.NumExamples()); mse > 2 || math.IsNaN(mse) {
			t.Errorf("%s: training MSE %f is too high", name, mse)
		}
	}
}

func BenchmarkTreeLearner(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	d := NewDataset([]InputSpec{{Name: "a", Kind: Double}, {Name: "b", Kind: Double}}, Double)
	for i := 0; i < 5000; i++ {
		x, y := rng.NormFloat64(), rng.NormFloat64()
		d.Add([]Value{DoubleValue(x), DoubleValue(y)}, DoubleValue(math.Sin(x)+y*y))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache, _ := d.NewSamplesCache(NewUniverse(), 1<<28)
		ctx := NewLearningContext(cache, &RegressionObjective{}, d.SupervisionSamples(), nil)
		learner := &TreeLearner{WeakLearner: &ExactWeakLearner{}, MinExamplesToSplit: 10, MaxDepth: 8}
		learner.Learn(ctx, cache.AllIndices())
	}
}
