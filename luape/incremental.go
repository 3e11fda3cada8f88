package luape

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// An IncrementalLearner receives examples one at a time and periodically
// regrows its tree over every example seen so far.
type IncrementalLearner struct {
	TreeLearner  *TreeLearner
	NewObjective func() LearningObjective

	// RetrainInterval is the number of new examples between two trainings.
	RetrainInterval int

	MaxCacheSize int64
	Logger       *zap.Logger

	universe *Universe
	dataset  *Dataset
	pending  int
	root     NodeRef
}

// NewIncrementalLearner creates a learner whose model reads the given
// inputs.
func NewIncrementalLearner(u *Universe, inputs []InputSpec, supervisionKind Kind,
	tree *TreeLearner, newObjective func() LearningObjective) (*IncrementalLearner, error) {
	d := NewDataset(inputs, supervisionKind)
	if _, err := d.DeclareInputs(u); err != nil {
		return nil, errors.Wrap(err, "create incremental learner")
	}
	return &IncrementalLearner{
		TreeLearner:     tree,
		NewObjective:    newObjective,
		RetrainInterval: 1,
		MaxCacheSize:    64 << 20,
		Logger:          zap.NewNop(),
		universe:        u,
		dataset:         d,
		root:            NoNode,
	}, nil
}

// AddExample records an example and retrains the model when enough new
// examples have been seen.
func (l *IncrementalLearner) AddExample(inputs []Value, supervision Value) error {
	if err := l.dataset.Add(inputs, supervision); err != nil {
		return errors.Wrap(err, "add example")
	}
	l.pending++
	if l.pending >= l.RetrainInterval {
		return l.Retrain()
	}
	return nil
}

// Retrain grows a new tree over every recorded example.
func (l *IncrementalLearner) Retrain() error {
	if l.dataset.NumExamples() == 0 {
		return nil
	}
	cache, err := l.dataset.NewSamplesCache(l.universe, l.MaxCacheSize)
	if err != nil {
		return errors.Wrap(err, "retrain")
	}
	cache.Logger = l.Logger
	ctx := NewLearningContext(cache, l.NewObjective(), l.dataset.SupervisionSamples(), nil)
	ctx.Logger = l.Logger
	l.root = l.TreeLearner.Learn(ctx, cache.AllIndices())
	l.pending = 0
	l.Logger.Debug("retrained incremental model",
		zap.Int("examples", l.dataset.NumExamples()),
		zap.Int("nodes", len(l.universe.Reachable(l.root))))
	return nil
}

// Model returns the current model, or nil before the first training.
func (l *IncrementalLearner) Model() *Model {
	if l.root == NoNode {
		return nil
	}
	return &Model{Universe: l.universe, Root: l.root}
}

// NumExamples returns the number of recorded examples.
func (l *IncrementalLearner) NumExamples() int {
	return l.dataset.NumExamples()
}
