package luape

import (
	"math"

	"go.uber.org/zap"
)

// A WeakLearner proposes the expression that best splits an index set.
//
// The result is either a condition or a numeric node, which the caller
// wraps into a stump with ComputeObjectiveWithEventualStump. NoNode is
// returned when no candidate beats the constant vote baseline.
type WeakLearner interface {
	Learn(ctx *LearningContext, indices *IndexSet) NodeRef
}

// NewWeakLearner creates a weak learner from its configuration name.
func NewWeakLearner(name string, numAttributes int) (WeakLearner, bool) {
	switch name {
	case "exact":
		return &ExactWeakLearner{}, true
	case "random_subset":
		return &RandomSubsetWeakLearner{NumAttributes: numAttributes}, true
	case "extra_trees":
		return &ExtraTreesWeakLearner{NumAttributes: numAttributes}, true
	case "formula":
		return &FormulaWeakLearner{NumFormulas: numAttributes}, true
	}
	return nil, false
}

// ExactWeakLearner scores every input at its best threshold.
type ExactWeakLearner struct {
	// IncludeCachedNodes also considers function nodes currently held by
	// the cache, such as conditions chosen elsewhere in the model.
	IncludeCachedNodes bool
}

func (e *ExactWeakLearner) Learn(ctx *LearningContext, indices *IndexSet) NodeRef {
	candidates := inputCandidates(ctx, indices)
	if e.IncludeCachedNodes {
		for _, ref := range ctx.Cache.CachedNodes() {
			info := ctx.Universe.Node(ref)
			if info.Kind == FunctionNode && (info.Type.IsCondition() || info.Type.IsNumeric()) {
				candidates = append(candidates, ref)
			}
		}
	}
	return selectBestCandidate(ctx, indices, candidates)
}

// RandomSubsetWeakLearner scores a random subset of the inputs at their
// best thresholds, as in random forests.
type RandomSubsetWeakLearner struct {
	NumAttributes int
}

func (r *RandomSubsetWeakLearner) Learn(ctx *LearningContext, indices *IndexSet) NodeRef {
	candidates := sampleCandidates(ctx, inputCandidates(ctx, indices), r.NumAttributes)
	return selectBestCandidate(ctx, indices, candidates)
}

// ExtraTreesWeakLearner draws one random threshold for each of a random
// subset of numeric inputs, as in extremely randomized trees.
type ExtraTreesWeakLearner struct {
	NumAttributes int
}

func (e *ExtraTreesWeakLearner) Learn(ctx *LearningContext, indices *IndexSet) NodeRef {
	candidates := sampleCandidates(ctx, inputCandidates(ctx, indices), e.NumAttributes)
	conditions := make([]NodeRef, 0, len(candidates))
	for _, ref := range candidates {
		if !ctx.Universe.Type(ref).IsNumeric() {
			conditions = append(conditions, ref)
			continue
		}
		sorted := ctx.Cache.GetSortedDoubleValues(ref, indices)
		if len(sorted) < 2 || sorted[0].Value == sorted[len(sorted)-1].Value {
			continue
		}
		min, max := sorted[0].Value, sorted[len(sorted)-1].Value
		threshold := min + ctx.Rand.Float64()*(max-min)
		conditions = append(conditions, ctx.Universe.NewFunctionNode(&Stump{Threshold: threshold}, ref))
	}
	return selectBestCandidate(ctx, indices, conditions)
}

// FormulaWeakLearner extends the inputs with arithmetic combinations of
// random pairs of numeric inputs. Formulas are interned by the universe, so
// a formula drawn twice reuses its cached outputs.
type FormulaWeakLearner struct {
	// NumFormulas is the number of pairs drawn per call.
	NumFormulas int

	// Operators defaults to every ArithmeticOp.
	Operators []ArithmeticOp
}

func (f *FormulaWeakLearner) Learn(ctx *LearningContext, indices *IndexSet) NodeRef {
	candidates := inputCandidates(ctx, indices)
	var numeric []NodeRef
	for _, ref := range candidates {
		if ctx.Universe.Type(ref).IsNumeric() {
			numeric = append(numeric, ref)
		}
	}
	ops := f.Operators
	if len(ops) == 0 {
		ops = []ArithmeticOp{AddOp, SubOp, MulOp, DivOp}
	}
	if len(numeric) >= 2 {
		for i := 0; i < f.NumFormulas; i++ {
			a := numeric[ctx.Rand.Intn(len(numeric))]
			b := numeric[ctx.Rand.Intn(len(numeric))]
			if a == b {
				continue
			}
			op := ops[ctx.Rand.Intn(len(ops))]
			candidates = append(candidates, ctx.Universe.NewFunctionNode(&Arithmetic{Op: op}, a, b))
		}
	}
	return selectBestCandidate(ctx, indices, candidates)
}

// inputCandidates lists usable inputs. Enum inputs are turned into one
// equality test per value observed in indices.
func inputCandidates(ctx *LearningContext, indices *IndexSet) []NodeRef {
	var res []NodeRef
	for _, ref := range ctx.Universe.Inputs() {
		kind := ctx.Universe.Type(ref)
		switch {
		case kind == Enum:
			values := ctx.Cache.GetSamples(ref, indices)
			seen := map[int]bool{}
			for i := 0; i < values.Len(); i++ {
				x := values.IntAt(i)
				if x != MissingInt && !seen[x] {
					seen[x] = true
					res = append(res, ctx.Universe.NewFunctionNode(&EqualsConstant{Value: x}, ref))
				}
			}
		case kind.IsNumeric() || kind.IsCondition():
			res = append(res, ref)
		}
	}
	return res
}

func sampleCandidates(ctx *LearningContext, candidates []NodeRef, n int) []NodeRef {
	if n <= 0 || n >= len(candidates) {
		return candidates
	}
	perm := ctx.Rand.Perm(len(candidates))
	res := make([]NodeRef, n)
	for i := range res {
		res[i] = candidates[perm[i]]
	}
	return res
}

// selectBestCandidate returns the condition with the highest score, or
// NoNode if none beats the baseline.
func selectBestCandidate(ctx *LearningContext, indices *IndexSet, candidates []NodeRef) NodeRef {
	if indices.Len() == 0 {
		return NoNode
	}
	baseline := BaselineScore(ctx.Objective, indices)
	bestScore := math.Inf(-1)
	best := NoNode
	for _, ref := range candidates {
		score, cond := ctx.ComputeObjectiveWithEventualStump(ref, indices)
		if cond != NoNode && score > bestScore {
			bestScore = score
			best = cond
		}
	}
	if best == NoNode || bestScore <= baseline+objectiveEpsilon {
		return NoNode
	}
	ctx.Logger.Debug("weak learner",
		zap.Int("candidates", len(candidates)),
		zap.Int("examples", indices.Len()),
		zap.Float64("baseline", baseline),
		zap.Float64("score", bestScore),
		zap.Stringer("condition", ctx.Universe.Formatter(best)))
	return best
}
