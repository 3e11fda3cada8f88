package luape

import (
	"math"

	"go.uber.org/zap"
)

// A BoostingLearner builds an additive ensemble of regression trees, each
// fitted to the residuals of the ensemble so far.
//
// The ensemble is a Sum node pinned in the cache, so that adding a tree
// only evaluates the new tree.
type BoostingLearner struct {
	TreeLearner *TreeLearner

	// Iterations is the maximum number of trees.
	Iterations int

	// Shrinkage scales every tree. Zero means 1.
	Shrinkage float64
}

// Learn fits the ensemble to the context's supervision over every example
// of the cache. The objective must produce double votes.
func (b *BoostingLearner) Learn(ctx *LearningContext) NodeRef {
	if ctx.Objective.VoteKind() != Double {
		panic("boosting requires an objective with double votes")
	}
	all := ctx.Cache.AllIndices()
	original := ctx.Supervisions()
	targets := make([]float64, all.Len())
	for i := range targets {
		targets[i] = original.DoubleAt(i)
	}

	sum := ctx.Universe.NewSum(Double)
	ctx.Cache.CacheNode(sum, NewDoubleSamples(Double, all, make([]float64, all.Len())),
		"model", false)

	residuals := append([]float64{}, targets...)
	for i := 0; i < b.Iterations; i++ {
		ctx.SetSupervisions(NewDoubleSamples(Double, all, residuals))
		tree := b.TreeLearner.Learn(ctx, all)
		if info := ctx.Universe.Node(tree); info.Kind == ConstantNode &&
			(info.Constant.Missing || info.Constant.Num == 0) {
			ctx.Logger.Debug("boosting converged", zap.Int("iteration", i))
			break
		}
		term := tree
		if b.Shrinkage != 0 && b.Shrinkage != 1 {
			term = ctx.Universe.NewFunctionNode(&Scale{Factor: b.Shrinkage}, tree)
		}
		ctx.Cache.PushSumNode(sum, term)

		predictions := ctx.Cache.GetSamples(sum, all)
		var loss float64
		residuals = make([]float64, len(targets))
		for j, y := range targets {
			residuals[j] = y - predictions.DoubleAt(j)
			if !math.IsNaN(residuals[j]) {
				loss += residuals[j] * residuals[j]
			}
		}
		ctx.Logger.Debug("boosting iteration",
			zap.Int("iteration", i),
			zap.Float64("squared_error", loss))
	}
	ctx.SetSupervisions(original)
	return sum
}
