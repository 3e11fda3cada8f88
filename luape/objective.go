package luape

import (
	"math"
)

// objectiveEpsilon is the margin by which a split must beat the constant
// vote baseline to be considered useful.
const objectiveEpsilon = 1e-12

// A LearningObjective scores a boolean split of an index set. Higher scores
// are better.
//
// Examples predicted true are in the positive branch, examples predicted
// false are in the negative branch and the remaining examples are in the
// missing branch.
type LearningObjective interface {
	// SetSupervisions binds the ground truth for the full population.
	SetSupervisions(supervisions *SampleVector)

	// SetWeights binds per-example weights for the full population. A nil
	// slice gives every example a weight of 1.
	SetWeights(weights []float64)

	// SetPredictions binds the predictions for the indices of the vector.
	// Update must be called before the next ComputeObjective.
	SetPredictions(predictions *SampleVector)

	// Update recomputes every aggregate from the current predictions.
	Update()

	ComputeObjective() float64

	// FlipPrediction moves an example from the negative branch to the
	// positive branch, updating aggregates incrementally.
	FlipPrediction(index int)

	// ComputeVote returns the best constant output for a set of examples.
	ComputeVote(indices *IndexSet) Value

	// VoteKind is the kind of the values returned by ComputeVote.
	VoteKind() Kind
}

// NewObjective creates an objective from its configuration name.
func NewObjective(name string) (LearningObjective, bool) {
	switch name {
	case "regression":
		return &RegressionObjective{}, true
	case "binary":
		return &BinaryClassificationObjective{}, true
	case "information_gain":
		return &InformationGainObjective{}, true
	case "normalized_information_gain":
		return &InformationGainObjective{Normalize: true}, true
	}
	return nil, false
}

// objectiveBase holds the bindings shared by every objective.
type objectiveBase struct {
	supervisions *SampleVector
	weights      []float64
	predictions  *SampleVector
}

func (o *objectiveBase) SetSupervisions(supervisions *SampleVector) {
	o.supervisions = supervisions
}

func (o *objectiveBase) SetWeights(weights []float64) {
	o.weights = weights
}

func (o *objectiveBase) SetPredictions(predictions *SampleVector) {
	o.predictions = predictions
}

func (o *objectiveBase) weight(index int) float64 {
	if o.weights == nil {
		return 1
	}
	return o.weights[index]
}

// iteratePredictions calls f for each example of the current predictions
// with its branch: 0 for positive, 1 for negative, 2 for missing.
func (o *objectiveBase) iteratePredictions(f func(index, branch int)) {
	if o.supervisions == nil || o.predictions == nil {
		panic("supervisions and predictions must be set before Update")
	}
	indices := o.predictions.Indices()
	for i := 0; i < o.predictions.Len(); i++ {
		var branch int
		switch o.predictions.BoolAt(i) {
		case True:
			branch = 0
		case False:
			branch = 1
		default:
			branch = 2
		}
		f(indices.At(i), branch)
	}
}

// BaselineScore is the objective of putting every example of indices in the
// negative branch.
func BaselineScore(obj LearningObjective, indices *IndexSet) float64 {
	obj.SetPredictions(NewConstantSamples(indices, BoolValue(false)))
	obj.Update()
	return obj.ComputeObjective()
}

// FindBestThreshold scans a list of values sorted in ascending order for the
// threshold t maximizing the objective of the split x > t.
//
// The objective must have been updated with every example of sorted in the
// negative branch. Values are then flipped to the positive branch from the
// largest down, one run of equal values at a time, and the objective is read
// after each run. The threshold is the midpoint between the run and the next
// smaller value. When several thresholds reach the best score, the median one
// is returned.
//
// If there are fewer than two distinct values, ok is false.
func FindBestThreshold(obj LearningObjective, sorted []SortedValue) (score, threshold float64, ok bool) {
	score = math.Inf(-1)
	var best []float64
	iterateSplitPoints(sorted, func(upper, lower float64) {
		s := obj.ComputeObjective()
		t := (upper + lower) / 2
		if s > score {
			score = s
			best = append(best[:0], t)
		} else if s == score {
			best = append(best, t)
		}
	}, obj.FlipPrediction)
	if len(best) == 0 {
		return score, 0, false
	}
	return score, best[len(best)/2], true
}

// iterateSplitPoints flips runs of equal values from the end of sorted and
// calls f after every run that is followed by a smaller value.
func iterateSplitPoints(sorted []SortedValue, f func(upper, lower float64), flip func(int)) {
	i := len(sorted) - 1
	for i >= 0 {
		value := sorted[i].Value
		for i >= 0 && sorted[i].Value == value {
			flip(sorted[i].Index)
			i--
		}
		if i >= 0 {
			f(value, sorted[i].Value)
		}
	}
}

// weightedVariance accumulates weighted sums for a running variance.
type weightedVariance struct {
	Weight float64
	Sum    float64
	SqSum  float64
}

func (w *weightedVariance) Add(x, weight float64) {
	w.Weight += weight
	w.Sum += weight * x
	w.SqSum += weight * x * x
}

func (w *weightedVariance) Remove(x, weight float64) {
	w.Weight -= weight
	w.Sum -= weight * x
	w.SqSum -= weight * x * x
}

func (w *weightedVariance) Mean() float64 {
	return w.Sum / w.Weight
}

// TotalVariance is the weight times the variance.
func (w *weightedVariance) TotalVariance() float64 {
	if w.Weight <= 0 {
		return 0
	}
	return math.Max(0, w.SqSum-w.Sum*w.Sum/w.Weight)
}

// entropy computes the entropy of a histogram of weights, in nats.
func entropy(counts []float64) float64 {
	var total float64
	for _, c := range counts {
		total += c
	}
	if total <= 0 {
		return 0
	}
	var res float64
	for _, c := range counts {
		if c > 0 {
			p := c / total
			res -= p * logOrZero(p)
		}
	}
	return res
}

func logOrZero(x float64) float64 {
	if x == 0 {
		return 0
	}
	return math.Log(x)
}
