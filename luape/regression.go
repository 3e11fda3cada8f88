package luape

import (
	"math"
)

// RegressionObjective minimizes the weighted variance of the supervision in
// each branch. Boolean supervisions are read as 0 and 1.
type RegressionObjective struct {
	objectiveBase
	branches [3]weightedVariance
}

func (r *RegressionObjective) Update() {
	r.branches = [3]weightedVariance{}
	r.iteratePredictions(func(index, branch int) {
		y := r.supervisions.DoubleAt(index)
		if !math.IsNaN(y) {
			r.branches[branch].Add(y, r.weight(index))
		}
	})
}

// ComputeObjective returns minus the sum of the branches' weighted
// variances, divided by the total weight.
func (r *RegressionObjective) ComputeObjective() float64 {
	var total, weight float64
	for _, b := range r.branches {
		total += b.TotalVariance()
		weight += b.Weight
	}
	if weight <= 0 {
		return 0
	}
	return -total / weight
}

func (r *RegressionObjective) FlipPrediction(index int) {
	y := r.supervisions.DoubleAt(index)
	if math.IsNaN(y) {
		return
	}
	w := r.weight(index)
	r.branches[1].Remove(y, w)
	r.branches[0].Add(y, w)
}

// ComputeVote returns the weighted mean of the supervision.
func (r *RegressionObjective) ComputeVote(indices *IndexSet) Value {
	var acc weightedVariance
	for _, idx := range indices.Indices() {
		y := r.supervisions.DoubleAt(idx)
		if !math.IsNaN(y) {
			acc.Add(y, r.weight(idx))
		}
	}
	if acc.Weight <= 0 {
		return MissingValue(Double)
	}
	return DoubleValue(acc.Mean())
}

func (r *RegressionObjective) VoteKind() Kind {
	return Double
}
