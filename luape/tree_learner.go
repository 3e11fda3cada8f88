package luape

import (
	"go.uber.org/zap"
)

// A TreeLearner grows a tree of Test nodes by recursively splitting index
// sets with conditions proposed by a WeakLearner.
//
// A branch becomes a leaf holding the objective's vote when it has fewer
// than MinExamplesToSplit examples, reaches MaxDepth, has a single
// supervision value, when no useful condition exists, or when the condition
// sends every example to the same branch.
type TreeLearner struct {
	WeakLearner WeakLearner

	MinExamplesToSplit int

	// MaxDepth limits the number of nested Test nodes. Zero means no limit.
	MaxDepth int

	// Metrics, if non-nil, counts splits and leaves.
	Metrics *LearnerMetrics
}

// Learn grows a tree over indices and returns its root.
func (t *TreeLearner) Learn(ctx *LearningContext, indices *IndexSet) NodeRef {
	return t.build(ctx, indices, 0)
}

func (t *TreeLearner) build(ctx *LearningContext, indices *IndexSet, depth int) NodeRef {
	if indices.Len() < t.MinExamplesToSplit || indices.Len() < 2 {
		return t.buildLeaf(ctx, indices, "too_few_examples")
	}
	if t.MaxDepth != 0 && depth >= t.MaxDepth {
		return t.buildLeaf(ctx, indices, "max_depth")
	}
	if ctx.IsPure(indices) {
		return t.buildLeaf(ctx, indices, "pure")
	}

	candidate := t.WeakLearner.Learn(ctx, indices)
	if candidate == NoNode || ctx.Universe.Node(candidate).Kind == ConstantNode {
		return t.buildLeaf(ctx, indices, "no_condition")
	}
	baseline := BaselineScore(ctx.Objective, indices)
	score, condition := ctx.ComputeObjectiveWithEventualStump(candidate, indices)
	if condition == NoNode {
		return t.buildLeaf(ctx, indices, "no_condition")
	}

	values := ctx.Cache.GetSamples(condition, indices)
	success, failure, missing := PartitionIndices(indices, values)
	for _, subset := range []*IndexSet{success, failure, missing} {
		if subset.Len() == indices.Len() {
			return t.buildLeaf(ctx, indices, "degenerate_split")
		}
	}

	gain := score - baseline
	ctx.Universe.AddImportance(condition,
		gain*float64(indices.Len())/float64(ctx.Cache.NumExamples()))
	if t.Metrics != nil {
		t.Metrics.Splits.Inc()
		t.Metrics.SplitGain.Observe(gain)
	}
	ctx.Logger.Debug("split",
		zap.Int("depth", depth),
		zap.Int("examples", indices.Len()),
		zap.Stringer("condition", ctx.Universe.Formatter(condition)),
		zap.Float64("score", score),
		zap.Int("success", success.Len()),
		zap.Int("failure", failure.Len()),
		zap.Int("missing", missing.Len()))

	successTree := t.build(ctx, success, depth+1)
	failureTree := t.build(ctx, failure, depth+1)
	missingTree := t.build(ctx, missing, depth+1)
	return ctx.Universe.NewTest(condition, successTree, failureTree, missingTree)
}

func (t *TreeLearner) buildLeaf(ctx *LearningContext, indices *IndexSet, reason string) NodeRef {
	if t.Metrics != nil {
		t.Metrics.Leaves.WithLabelValues(reason).Inc()
	}
	vote := ctx.Objective.ComputeVote(indices)
	if vote.Kind != ctx.Objective.VoteKind() {
		vote = MissingValue(ctx.Objective.VoteKind())
	}
	return ctx.Universe.NewConstant(vote)
}
