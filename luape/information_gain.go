package luape

import "github.com/unixpickle/essentials"

// InformationGainObjective measures the reduction of label entropy from a
// split. Supervisions are booleans or enum/integer labels.
type InformationGainObjective struct {
	objectiveBase

	// Normalize divides the gain by the mean of the prior entropy and the
	// entropy of the split itself, penalizing unbalanced splits.
	Normalize bool

	numLabels int
	branches  [3][]float64
	prior     []float64
}

func (g *InformationGainObjective) SetSupervisions(supervisions *SampleVector) {
	g.supervisions = supervisions
	g.numLabels = 0
	for i := 0; i < supervisions.Len(); i++ {
		if l := g.label(i); l >= g.numLabels {
			g.numLabels = l + 1
		}
	}
	g.prior = make([]float64, g.numLabels)
	for i := range g.branches {
		g.branches[i] = make([]float64, g.numLabels)
	}
}

func (g *InformationGainObjective) label(index int) int {
	if g.supervisions.Kind() == Boolean {
		switch g.supervisions.BoolAt(index) {
		case True:
			return 1
		case False:
			return 0
		}
		return -1
	}
	l := g.supervisions.IntAt(index)
	if l == MissingInt || l < 0 {
		return -1
	}
	return l
}

func (g *InformationGainObjective) Update() {
	for _, counts := range append(g.branches[:], g.prior) {
		for i := range counts {
			counts[i] = 0
		}
	}
	g.iteratePredictions(func(index, branch int) {
		if l := g.label(index); l >= 0 {
			w := g.weight(index)
			g.branches[branch][l] += w
			g.prior[l] += w
		}
	})
}

func (g *InformationGainObjective) ComputeObjective() float64 {
	var total float64
	var branchWeights [3]float64
	for i, counts := range g.branches {
		for _, c := range counts {
			branchWeights[i] += c
		}
		total += branchWeights[i]
	}
	if total <= 0 {
		return 0
	}
	priorEntropy := entropy(g.prior)
	var conditional float64
	for i, counts := range g.branches {
		if branchWeights[i] > 0 {
			conditional += branchWeights[i] / total * entropy(counts)
		}
	}
	gain := priorEntropy - conditional
	if !g.Normalize {
		return gain
	}
	denom := priorEntropy + entropy(branchWeights[:])
	if denom <= 0 {
		return 0
	}
	return 2 * gain / denom
}

func (g *InformationGainObjective) FlipPrediction(index int) {
	if l := g.label(index); l >= 0 {
		w := g.weight(index)
		g.branches[1][l] -= w
		g.branches[0][l] += w
	}
}

// ComputeVote returns the probability of a true label for boolean
// supervisions, and the heaviest label otherwise. Ties favor the smallest
// label.
func (g *InformationGainObjective) ComputeVote(indices *IndexSet) Value {
	counts := make([]float64, essentials.MaxInt(g.numLabels, 2))
	var total float64
	for _, idx := range indices.Indices() {
		if l := g.label(idx); l >= 0 {
			w := g.weight(idx)
			counts[l] += w
			total += w
		}
	}
	if g.supervisions.Kind() == Boolean {
		if total <= 0 {
			return MissingValue(Probability)
		}
		return ProbabilityValue(counts[1] / total)
	}
	if total <= 0 {
		return MissingValue(Enum)
	}
	best := 0
	for l, c := range counts {
		if c > counts[best] {
			best = l
		}
	}
	return EnumValue(best)
}

func (g *InformationGainObjective) VoteKind() Kind {
	if g.supervisions != nil && g.supervisions.Kind() == Boolean {
		return Probability
	}
	return Enum
}
