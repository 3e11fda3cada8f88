package luape

import "math"

// A PruneLoss compares a supervision with a model output.
type PruneLoss interface {
	// Loss returns a scalar, non-negative loss for the pair. Missing labels
	// have no loss.
	Loss(label, prediction Value) float64
}

// SquaredLoss is the squared difference of numeric values. Booleans read as
// 0 and 1, and missing predictions are read as MissingPrediction.
type SquaredLoss struct {
	MissingPrediction float64
}

func (s SquaredLoss) Loss(label, prediction Value) float64 {
	if label.Missing {
		return 0
	}
	y := numericValue(label)
	p := s.MissingPrediction
	if !prediction.Missing {
		p = numericValue(prediction)
	}
	return (y - p) * (y - p)
}

func numericValue(v Value) float64 {
	if v.Kind == Boolean {
		return boolToDouble(v.Bool())
	}
	return v.Double()
}

// EqualityLoss is 1 when the predicted class differs from the label, and 0
// otherwise. Probabilities predict true above 0.5; a missing prediction is
// always wrong.
type EqualityLoss struct{}

func (EqualityLoss) Loss(label, prediction Value) float64 {
	if label.Missing {
		return 0
	}
	if prediction.Missing {
		return 1
	}
	var same bool
	switch label.Kind {
	case Boolean, Probability:
		same = label.Bool() == prediction.Bool()
	default:
		same = math.Round(label.Num) == math.Round(prediction.Num)
	}
	if same {
		return 0
	}
	return 1
}

// TotalLoss sums a loss over the outputs of a node on indices.
func TotalLoss(cache *SamplesCache, ref NodeRef, loss PruneLoss, labels *SampleVector,
	indices *IndexSet) float64 {
	if indices.Len() == 0 {
		return 0
	}
	predictions := cache.GetSamples(ref, indices)
	var total float64
	for i, idx := range indices.Indices() {
		total += loss.Loss(labels.At(idx), predictions.At(i))
	}
	return total
}
