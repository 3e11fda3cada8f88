package luape

import (
	"math"
	"strings"
	"testing"
)

func TestUniverseInterning(t *testing.T) {
	u := NewUniverse()
	x := u.NewInput("x", Double)
	y := u.NewInput("y", Double)

	s1 := u.NewFunctionNode(&Stump{Threshold: 0.5}, x)
	s2 := u.NewFunctionNode(&Stump{Threshold: 0.5}, x)
	if s1 != s2 {
		t.Error("equal applications should share a node")
	}
	if s3 := u.NewFunctionNode(&Stump{Threshold: 0.25}, x); s3 == s1 {
		t.Error("different parameters should give different nodes")
	}
	if s4 := u.NewFunctionNode(&Stump{Threshold: 0.5}, y); s4 == s1 {
		t.Error("different children should give different nodes")
	}

	if u.NewFunctionNode(&Arithmetic{Op: AddOp}, x, y) != u.NewFunctionNode(&Arithmetic{Op: AddOp}, y, x) {
		t.Error("commutative applications should ignore child order")
	}
	if u.NewFunctionNode(&Arithmetic{Op: SubOp}, x, y) == u.NewFunctionNode(&Arithmetic{Op: SubOp}, y, x) {
		t.Error("non-commutative applications should respect child order")
	}

	keys := u.FunctionKeys()
	expected := []string{"add", "stump:0.25", "stump:0.5", "sub"}
	if strings.Join(keys, ",") != strings.Join(expected, ",") {
		t.Errorf("expected functions %v but got %v", expected, keys)
	}
}

func TestUniverseInterningDepth(t *testing.T) {
	u := NewUniverse()
	x := u.NewInput("x", Double)
	scale := &Scale{Factor: 2}

	ref := x
	for depth := 1; depth <= 5; depth++ {
		a := u.NewFunctionNode(scale, ref)
		b := u.NewFunctionNode(scale, ref)
		if u.Node(a).Depth != depth {
			t.Fatalf("expected depth %d but got %d", depth, u.Node(a).Depth)
		}
		if shared := a == b; shared != (depth < MaxInternedDepth) {
			t.Errorf("depth %d: shared=%v", depth, shared)
		}
		ref = a
	}
}

func TestUniverseConstants(t *testing.T) {
	u := NewUniverse()
	if u.NewConstant(MissingValue(Double)) != u.NewConstant(DoubleValue(math.NaN())) {
		t.Error("missing constants of a kind should be shared")
	}
	if u.NewConstant(MissingValue(Double)) == u.NewConstant(MissingValue(Probability)) {
		t.Error("missing constants of different kinds should differ")
	}
	if u.Node(u.NewConstant(IntValue(3))).Constant.Int() != 3 {
		t.Error("unexpected constant value")
	}
}

func TestUniverseTestKinds(t *testing.T) {
	u := NewUniverse()
	x := u.NewInput("x", Double)
	cond := u.NewFunctionNode(&Stump{Threshold: 1}, x)
	one := u.NewConstant(DoubleValue(1))
	two := u.NewConstant(DoubleValue(2))
	missing := u.NewConstant(MissingValue(Double))

	test := u.NewTest(cond, one, two, missing)
	info := u.Node(test)
	if info.Kind != TestNode || info.Type != Double || info.Depth != 2 {
		t.Errorf("unexpected test node: %+v", info)
	}

	expectPanic(t, "mismatched branches", func() {
		u.NewTest(cond, one, u.NewConstant(BoolValue(true)), missing)
	})
	expectPanic(t, "numeric condition", func() {
		u.NewTest(x, one, two, missing)
	})
	expectPanic(t, "boolean sum", func() {
		u.NewSum(Boolean)
	})
	expectPanic(t, "vector in double sum", func() {
		u.NewSum(Double, u.NewConstant(ObjectValue([]float64{1})))
	})
}

func TestUniverseImportances(t *testing.T) {
	u := NewUniverse()
	x := u.NewInput("x", Double)
	a := u.NewFunctionNode(&Stump{Threshold: 1}, x)
	b := u.NewFunctionNode(&Stump{Threshold: 2}, x)
	u.AddImportance(a, 0.5)
	u.AddImportance(b, 1)
	u.AddImportance(a, 0.75)

	entries := u.Importances()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries but got %d", len(entries))
	}
	if entries[0].Node != a || entries[0].Importance != 1.25 || entries[1].Node != b {
		t.Errorf("unexpected importances: %v", entries)
	}
}

func TestUniverseReachable(t *testing.T) {
	u := NewUniverse()
	x := u.NewInput("x", Double)
	u.NewInput("unused", Double)
	cond := u.NewFunctionNode(&Stump{Threshold: 1}, x)
	leaf := u.NewConstant(DoubleValue(3))
	root := u.NewTest(cond, leaf, x, leaf)

	refs := u.Reachable(root)
	if len(refs) != 4 {
		t.Fatalf("expected 4 nodes but got %v", refs)
	}
	seen := map[NodeRef]bool{}
	for _, ref := range refs {
		for _, c := range u.Node(ref).Children {
			if !seen[c] {
				t.Fatalf("node %d listed before its child %d", ref, c)
			}
		}
		seen[ref] = true
	}
	if refs[len(refs)-1] != root {
		t.Error("root should be listed last")
	}
}

func expectPanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	f()
}
