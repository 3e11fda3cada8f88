package luape

import "fmt"

// An InstanceCache evaluates nodes on a single example, memoizing every
// node it visits.
type InstanceCache struct {
	universe *Universe
	inputs   []Value
	memo     map[NodeRef]Value
}

// NewInstanceCache creates a cache for one example's raw inputs, given in
// the order of Universe.Inputs().
func NewInstanceCache(u *Universe, inputs []Value) *InstanceCache {
	return &InstanceCache{
		universe: u,
		inputs:   inputs,
		memo:     map[NodeRef]Value{},
	}
}

// Compute evaluates a node. Test nodes only evaluate the selected branch.
func (c *InstanceCache) Compute(ref NodeRef) Value {
	if v, ok := c.memo[ref]; ok {
		return v
	}
	v := c.compute(ref)
	c.memo[ref] = v
	return v
}

func (c *InstanceCache) compute(ref NodeRef) Value {
	info := c.universe.Node(ref)
	switch info.Kind {
	case InputNode:
		if info.Position < 0 || info.Position >= len(c.inputs) {
			panic(fmt.Sprintf("input %q has no value in a single example", info.Name))
		}
		v := c.inputs[info.Position]
		if v.Kind != info.Type {
			panic(fmt.Sprintf("input %q expects %s but got %s", info.Name, info.Type, v.Kind))
		}
		return v
	case ConstantNode:
		return info.Constant
	case FunctionNode:
		args := make([]Value, len(info.Children))
		for i, child := range info.Children {
			args[i] = c.Compute(child)
		}
		return info.Function.Compute(args)
	case TestNode:
		switch c.Compute(info.Children[TestCondition]).Bool() {
		case True:
			return c.Compute(info.Children[TestSuccess])
		case False:
			return c.Compute(info.Children[TestFailure])
		default:
			return c.Compute(info.Children[TestMissing])
		}
	default:
		return c.computeSum(info)
	}
}

func (c *InstanceCache) computeSum(info NodeInfo) Value {
	if info.Type == Object {
		var sum []float64
		for _, child := range info.Children {
			v := c.Compute(child)
			sum = addVector(sum, v.Obj)
		}
		if sum == nil {
			return MissingValue(Object)
		}
		return ObjectValue(sum)
	}
	var sum float64
	for _, child := range info.Children {
		v := c.Compute(child)
		if v.Kind == Boolean {
			sum += boolToDouble(v.Bool())
		} else {
			sum += v.Double()
		}
	}
	return DoubleValue(sum)
}

// addVector adds a []float64 object into sum, allocating sum as needed.
// Missing vectors are skipped.
func addVector(sum []float64, obj any) []float64 {
	vec, ok := obj.([]float64)
	if !ok {
		if obj == nil {
			return sum
		}
		panic(fmt.Sprintf("cannot sum object of type %T", obj))
	}
	if sum == nil {
		sum = make([]float64, len(vec))
	} else if len(sum) != len(vec) {
		panic(fmt.Sprintf("cannot sum vectors of sizes %d and %d", len(sum), len(vec)))
	}
	for i, x := range vec {
		sum[i] += x
	}
	return sum
}
