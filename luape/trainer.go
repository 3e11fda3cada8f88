package luape

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// A Trainer grows a model on a dataset according to a LearnerConfig.
type Trainer struct {
	Config *LearnerConfig
	Logger *zap.Logger

	// Registerer receives cache and learner metrics. It may be nil.
	Registerer prometheus.Registerer
}

// Train builds a single tree, a boosted ensemble or a forest, depending on
// the configuration.
func (t *Trainer) Train(d *Dataset) (*Model, error) {
	if err := t.Config.Validate(); err != nil {
		return nil, errors.Wrap(err, "train")
	}
	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	learnerMetrics := NewLearnerMetrics(t.Registerer)
	tree := t.Config.NewTreeLearner(learnerMetrics)

	u := NewUniverse()
	start := time.Now()
	var root NodeRef
	if t.Config.NumTrees > 1 {
		forest := &ForestLearner{
			TreeLearner:    tree,
			NewObjective:   t.Config.NewObjective,
			NumTrees:       t.Config.NumTrees,
			SampleFraction: t.Config.SampleFraction,
			MaxCacheSize:   t.Config.MaxCacheSize(),
			Seed:           t.Config.Seed,
			Logger:         logger,
		}
		var err error
		root, err = forest.Learn(u, d)
		if err != nil {
			return nil, errors.Wrap(err, "train")
		}
	} else {
		cache, err := d.NewSamplesCache(u, t.Config.MaxCacheSize())
		if err != nil {
			return nil, errors.Wrap(err, "train")
		}
		cache.Logger = logger
		cache.Metrics = NewCacheMetrics(t.Registerer)
		cache.MinRequestsToCache = t.Config.MinRequestsToCache

		ctx := NewLearningContext(cache, t.Config.NewObjective(), d.SupervisionSamples(), d.Weights)
		ctx.Rand = rand.New(rand.NewSource(t.Config.Seed))
		ctx.Logger = logger

		if t.Config.BoostingIterations > 0 {
			boosting := &BoostingLearner{
				TreeLearner: tree,
				Iterations:  t.Config.BoostingIterations,
				Shrinkage:   t.Config.Shrinkage,
			}
			root = boosting.Learn(ctx)
		} else {
			root = tree.Learn(ctx, cache.AllIndices())
		}
		logger.Debug("cache usage",
			zap.Int("cached_nodes", cache.NumCachedNodes()),
			zap.Int64("bytes", cache.Size()))
	}

	m := &Model{Universe: u, Root: root}
	logger.Info("trained model",
		zap.Int("examples", d.NumExamples()),
		zap.Int("nodes", m.NumNodes()),
		zap.Int("leaves", m.NumLeaves()),
		zap.Duration("elapsed", time.Since(start)))
	return m, nil
}
