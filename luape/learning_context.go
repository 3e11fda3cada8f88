package luape

import (
	"math"
	"math/rand"

	"go.uber.org/zap"
)

// A LearningContext binds the state shared while growing one model: the
// node universe, the cache over the training population, the objective and
// the supervision node pinned in the cache.
type LearningContext struct {
	Universe    *Universe
	Cache       *SamplesCache
	Objective   LearningObjective
	Supervision NodeRef
	Weights     []float64

	Rand   *rand.Rand
	Logger *zap.Logger
}

// NewLearningContext pins the supervision in the cache and binds it to the
// objective.
func NewLearningContext(cache *SamplesCache, obj LearningObjective, supervision *SampleVector,
	weights []float64) *LearningContext {
	u := cache.Universe()
	ref := u.NewSupervision(supervision.Kind())
	cache.CacheNode(ref, supervision, "supervision", false)
	obj.SetSupervisions(supervision)
	obj.SetWeights(weights)
	return &LearningContext{
		Universe:    u,
		Cache:       cache,
		Objective:   obj,
		Supervision: ref,
		Weights:     weights,
		Rand:        rand.New(rand.NewSource(0)),
		Logger:      zap.NewNop(),
	}
}

// Supervisions returns the full-population supervision vector.
func (l *LearningContext) Supervisions() *SampleVector {
	return l.Cache.GetSamples(l.Supervision, l.Cache.AllIndices())
}

// SetSupervisions replaces the supervision, for instance with boosting
// residuals.
func (l *LearningContext) SetSupervisions(supervision *SampleVector) {
	if supervision.Kind() != l.Universe.Type(l.Supervision) {
		l.Cache.UncacheNode(l.Supervision)
		l.Supervision = l.Universe.NewSupervision(supervision.Kind())
	}
	l.Cache.CacheNode(l.Supervision, supervision, "supervision", false)
	l.Objective.SetSupervisions(supervision)
}

// ComputeObjectiveWithEventualStump scores a candidate node over indices.
//
// Conditions are scored directly. Numeric nodes are scored at their best
// threshold and wrapped into a Stump condition. The returned condition is
// NoNode if the node cannot split indices.
func (l *LearningContext) ComputeObjectiveWithEventualStump(ref NodeRef,
	indices *IndexSet) (score float64, condition NodeRef) {
	kind := l.Universe.Type(ref)
	if kind.IsCondition() {
		predictions := l.Cache.GetSamples(ref, indices)
		l.Objective.SetPredictions(predictions)
		l.Objective.Update()
		return l.Objective.ComputeObjective(), ref
	}
	if !kind.IsNumeric() {
		return math.Inf(-1), NoNode
	}

	values := l.Cache.GetSamples(ref, indices)
	initial := make([]uint8, indices.Len())
	for i := range initial {
		if math.IsNaN(values.DoubleAt(i)) {
			initial[i] = MissingBool
		}
	}
	l.Objective.SetPredictions(NewBoolSamples(indices, initial))
	l.Objective.Update()

	sorted := l.Cache.GetSortedDoubleValues(ref, indices)
	score, threshold, ok := FindBestThreshold(l.Objective, sorted)
	if !ok {
		return math.Inf(-1), NoNode
	}
	return score, l.Universe.NewFunctionNode(&Stump{Threshold: threshold}, ref)
}

// IsPure checks if every supervision in indices is the same. Missing
// supervisions are ignored.
func (l *LearningContext) IsPure(indices *IndexSet) bool {
	sup := l.Cache.GetSamples(l.Supervision, indices)
	first := true
	var value Value
	for i := 0; i < sup.Len(); i++ {
		v := sup.At(i)
		if v.Missing {
			continue
		}
		if first {
			value = v
			first = false
		} else if !v.Equal(value) {
			return false
		}
	}
	return true
}
