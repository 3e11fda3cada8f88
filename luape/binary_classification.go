package luape

import "math"

// BinaryClassificationObjective measures the weighted edge of a split used
// as a boolean classifier, with either polarity.
type BinaryClassificationObjective struct {
	objectiveBase
	correct float64
	errors  float64
	missing float64
}

func (b *BinaryClassificationObjective) Update() {
	b.correct, b.errors, b.missing = 0, 0, 0
	b.iteratePredictions(func(index, branch int) {
		label := b.supervisions.BoolAt(index)
		if label == MissingBool {
			return
		}
		w := b.weight(index)
		switch {
		case branch == 2:
			b.missing += w
		case (branch == 0) == (label == True):
			b.correct += w
		default:
			b.errors += w
		}
	})
}

// ComputeObjective returns max(correct, errors) / total weight.
func (b *BinaryClassificationObjective) ComputeObjective() float64 {
	total := b.correct + b.errors + b.missing
	if total <= 0 {
		return 0
	}
	return math.Max(b.correct, b.errors) / total
}

func (b *BinaryClassificationObjective) FlipPrediction(index int) {
	label := b.supervisions.BoolAt(index)
	if label == MissingBool {
		return
	}
	w := b.weight(index)
	if label == True {
		b.errors -= w
		b.correct += w
	} else {
		b.correct -= w
		b.errors += w
	}
}

// ComputeVote returns the weighted probability of a true label.
func (b *BinaryClassificationObjective) ComputeVote(indices *IndexSet) Value {
	var positive, total float64
	for _, idx := range indices.Indices() {
		label := b.supervisions.BoolAt(idx)
		if label == MissingBool {
			continue
		}
		w := b.weight(idx)
		total += w
		if label == True {
			positive += w
		}
	}
	if total <= 0 {
		return MissingValue(Probability)
	}
	return ProbabilityValue(positive / total)
}

func (b *BinaryClassificationObjective) VoteKind() Kind {
	return Probability
}
