package luape

import (
	"testing"
)

func stepValidationCache(t *testing.T, u *Universe) (*SamplesCache, *SampleVector) {
	d := stepDataset(Double)
	cache, err := d.NewSamplesCache(u, 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	return cache, d.SupervisionSamples()
}

func TestBestReplacement(t *testing.T) {
	u := NewUniverse()
	x := u.NewInput("x", Double)
	root, subtree := stepTree(u, x)
	cache, labels := stepValidationCache(t, u)

	r, total := BestReplacement(cache, root, SquaredLoss{}, labels, cache.AllIndices())
	if total != 2 {
		t.Errorf("expected total loss 2 but got %f", total)
	}
	if r == nil || r.Replace != subtree {
		t.Fatalf("expected the subtree to be replaced, got %+v", r)
	}
	if info := u.Node(r.With); info.Kind != ConstantNode || info.Constant.Num != 1 {
		t.Errorf("unexpected replacement %s", u.Format(r.With))
	}
	if r.Delta() != 2 {
		t.Errorf("expected delta 2 but got %f", r.Delta())
	}

	leaf := u.NewConstant(DoubleValue(0))
	r, total = BestReplacement(cache, leaf, SquaredLoss{}, labels, cache.AllIndices())
	if r != nil || total != 4 {
		t.Errorf("unexpected leaf result %+v, %f", r, total)
	}
}

func TestPrune(t *testing.T) {
	u := NewUniverse()
	x := u.NewInput("x", Double)
	root, _ := stepTree(u, x)
	cache, labels := stepValidationCache(t, u)

	m := Prune(cache, &Model{Universe: u, Root: root}, SquaredLoss{}, labels, 0)
	if m.NumLeaves() != 3 {
		t.Fatalf("expected 3 leaves but got %d: %s", m.NumLeaves(), m)
	}
	info := u.Node(m.Root)
	if success := u.Node(info.Children[TestSuccess]); success.Constant.Num != 1 {
		t.Errorf("unexpected success branch %s", u.Format(success.Ref))
	}
	if loss := TotalLoss(cache, m.Root, SquaredLoss{}, labels, cache.AllIndices()); loss != 0 {
		t.Errorf("pruned model should have no loss, got %f", loss)
	}

	small := Prune(cache, m, SquaredLoss{}, labels, 2)
	if small.NumLeaves() > 2 {
		t.Errorf("expected at most 2 leaves but got %d", small.NumLeaves())
	}
}

func TestPruneLosses(t *testing.T) {
	sq := SquaredLoss{MissingPrediction: 0.5}
	if l := sq.Loss(BoolValue(true), DoubleValue(0.25)); l != 0.5625 {
		t.Errorf("unexpected squared loss %f", l)
	}
	if l := sq.Loss(DoubleValue(1), MissingValue(Double)); l != 0.25 {
		t.Errorf("unexpected squared loss for missing prediction %f", l)
	}
	if l := sq.Loss(MissingValue(Double), DoubleValue(3)); l != 0 {
		t.Errorf("missing labels should have no loss, got %f", l)
	}

	var eq EqualityLoss
	if eq.Loss(BoolValue(true), ProbabilityValue(0.8)) != 0 {
		t.Error("probability above 0.5 should predict true")
	}
	if eq.Loss(EnumValue(2), EnumValue(1)) != 1 {
		t.Error("different classes should have loss 1")
	}
	if eq.Loss(EnumValue(2), MissingValue(Enum)) != 1 {
		t.Error("missing predictions should have loss 1")
	}
}
