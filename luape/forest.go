package luape

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"go.uber.org/zap"
)

// A ForestLearner trains independent trees on random subsets of a dataset
// and averages them.
//
// Trees are grown concurrently. They share one Universe, so conditions
// found by several trees are the same node, but each tree has its own
// SamplesCache.
type ForestLearner struct {
	TreeLearner *TreeLearner

	// NewObjective creates one objective per tree. Votes must be numeric.
	NewObjective func() LearningObjective

	NumTrees int

	// SampleFraction is the fraction of examples used by each tree. Zero
	// means every example.
	SampleFraction float64

	// MaxCacheSize is the size ceiling of each tree's cache, in bytes.
	MaxCacheSize int64

	// Concurrency is the maximum number of trees grown at once. Zero means
	// GOMAXPROCS.
	Concurrency int

	Seed   int64
	Logger *zap.Logger
}

// Learn trains the forest and returns a Sum of scaled trees.
func (f *ForestLearner) Learn(u *Universe, d *Dataset) (NodeRef, error) {
	if f.NumTrees < 1 {
		return NoNode, errors.New("forest needs at least one tree")
	}
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := d.DeclareInputs(u); err != nil {
		return NoNode, errors.Wrap(err, "learn forest")
	}

	trees := make([]NodeRef, f.NumTrees)
	errs := make([]error, f.NumTrees)
	essentials.ConcurrentMap(f.Concurrency, f.NumTrees, func(i int) {
		cache, err := d.NewSamplesCache(u, f.MaxCacheSize)
		if err != nil {
			errs[i] = err
			return
		}
		cache.Logger = logger
		ctx := NewLearningContext(cache, f.NewObjective(), d.SupervisionSamples(), d.Weights)
		if !ctx.Objective.VoteKind().IsNumeric() {
			errs[i] = errors.New("forest trees must have numeric votes")
			return
		}
		ctx.Rand = rand.New(rand.NewSource(f.Seed + int64(i)))
		ctx.Logger = logger.With(zap.Int("tree", i))

		indices := cache.AllIndices()
		if f.SampleFraction > 0 && f.SampleFraction < 1 {
			size := essentials.MaxInt(1, int(f.SampleFraction*float64(d.NumExamples())))
			indices = NewIndexSet(size)
			indices.RandomlyExpandUsingSource(ctx.Rand, size, cache.AllIndices())
		}
		trees[i] = f.TreeLearner.Learn(ctx, indices)
	})
	for _, err := range errs {
		if err != nil {
			return NoNode, errors.Wrap(err, "learn forest")
		}
	}

	scale := &Scale{Factor: 1 / float64(f.NumTrees)}
	sum := u.NewSum(Double)
	for _, tree := range trees {
		u.AppendSummand(sum, u.NewFunctionNode(scale, tree))
	}
	logger.Info("trained forest", zap.Int("trees", f.NumTrees))
	return sum, nil
}
