package luape

// A Model is a learned expression together with the universe that owns
// its nodes.
type Model struct {
	Universe *Universe
	Root     NodeRef
}

// Predict evaluates the model on one example's raw inputs, ordered like
// Universe.Inputs().
func (m *Model) Predict(inputs []Value) Value {
	return NewInstanceCache(m.Universe, inputs).Compute(m.Root)
}

// PredictBatch evaluates the model on examples of a cache.
func (m *Model) PredictBatch(cache *SamplesCache, indices *IndexSet) *SampleVector {
	return cache.GetSamples(m.Root, indices)
}

// Inputs returns the input nodes of the model's universe.
func (m *Model) Inputs() []NodeRef {
	return m.Universe.Inputs()
}

// IsLeaf returns true if the model is a single non-test node.
func (m *Model) IsLeaf() bool {
	return m.Universe.Node(m.Root).Kind != TestNode
}

// NumLeaves counts the leaves of the tree rooted at the model, adding up
// the leaves of every term of a sum.
func (m *Model) NumLeaves() int {
	return numLeaves(m.Universe, m.Root)
}

func numLeaves(u *Universe, ref NodeRef) int {
	info := u.Node(ref)
	switch info.Kind {
	case TestNode:
		return numLeaves(u, info.Children[TestSuccess]) +
			numLeaves(u, info.Children[TestFailure]) +
			numLeaves(u, info.Children[TestMissing])
	case SumNode:
		var res int
		for _, c := range info.Children {
			res += numLeaves(u, c)
		}
		return res
	case FunctionNode:
		if _, ok := info.Function.(*Scale); ok {
			return numLeaves(u, info.Children[0])
		}
	}
	return 1
}

// NumNodes counts the distinct nodes reachable from the root.
func (m *Model) NumNodes() int {
	return len(m.Universe.Reachable(m.Root))
}

// Depth returns the depth of the root expression.
func (m *Model) Depth() int {
	return m.Universe.Node(m.Root).Depth
}

// Replace returns a model where every reference to old is replaced with
// replacement. Nodes on the path to old are rebuilt; the rest is shared.
func (m *Model) Replace(old, replacement NodeRef) *Model {
	return &Model{
		Universe: m.Universe,
		Root:     replaceNode(m.Universe, m.Root, old, replacement, map[NodeRef]NodeRef{}),
	}
}

func replaceNode(u *Universe, ref, old, replacement NodeRef, memo map[NodeRef]NodeRef) NodeRef {
	if ref == old {
		return replacement
	}
	if res, ok := memo[ref]; ok {
		return res
	}
	info := u.Node(ref)
	children := make([]NodeRef, len(info.Children))
	changed := false
	for i, c := range info.Children {
		children[i] = replaceNode(u, c, old, replacement, memo)
		changed = changed || children[i] != c
	}
	res := ref
	if changed {
		switch info.Kind {
		case FunctionNode:
			res = u.NewFunctionNode(info.Function, children...)
		case TestNode:
			res = u.NewTest(children[0], children[1], children[2], children[3])
		case SumNode:
			res = u.NewSum(info.Type, children...)
		}
	}
	memo[ref] = res
	return res
}

func (m *Model) String() string {
	return m.Universe.Format(m.Root)
}
