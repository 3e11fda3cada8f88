package luape

// BestReplacement finds the Test node under root whose replacement by one of
// its own branches reduces a loss the most, as measured on a validation
// cache with full-population labels.
//
// The total loss of root over indices is also returned. The replacement is
// nil if root has no Test node.
func BestReplacement(cache *SamplesCache, root NodeRef, loss PruneLoss, labels *SampleVector,
	indices *IndexSet) (replacement *Replacement, totalLoss float64) {
	u := cache.Universe()
	info := u.Node(root)
	if info.Kind != TestNode {
		return nil, TotalLoss(cache, root, loss, labels, indices)
	}

	cond := cache.GetSamples(info.Children[TestCondition], indices)
	success, failure, missing := PartitionIndices(indices, cond)
	subsets := [3]*IndexSet{success, failure, missing}

	var q float64
	var childResults []*Replacement
	for i, subset := range subsets {
		res, subLoss := BestReplacement(cache, info.Children[TestSuccess+i], loss, labels, subset)
		q += subLoss
		if res != nil {
			childResults = append(childResults, res)
		}
	}

	var res *Replacement
	for i := range subsets {
		branch := info.Children[TestSuccess+i]
		newLoss := TotalLoss(cache, branch, loss, labels, indices)
		if res == nil || newLoss < res.NewLoss {
			res = &Replacement{
				OldLoss: q,
				NewLoss: newLoss,
				Replace: root,
				With:    branch,
			}
		}
	}
	for _, r := range childResults {
		if r.Delta() > res.Delta() {
			res = r
		}
	}
	return res, q
}

// A Replacement swaps a Test node for one of its branches.
type Replacement struct {
	OldLoss float64
	NewLoss float64

	Replace NodeRef
	With    NodeRef
}

// Delta is the loss reduction of the replacement.
func (r *Replacement) Delta() float64 {
	return r.OldLoss - r.NewLoss
}

// Prune applies the best replacements to a model while they do not increase
// the validation loss, or while the model has more than maxLeaves leaves.
// A zero maxLeaves only applies loss-reducing replacements.
func Prune(cache *SamplesCache, m *Model, loss PruneLoss, labels *SampleVector, maxLeaves int) *Model {
	for {
		r, _ := BestReplacement(cache, m.Root, loss, labels, cache.AllIndices())
		if r == nil {
			return m
		}
		if r.Delta() < 0 && (maxLeaves == 0 || m.NumLeaves() <= maxLeaves) {
			return m
		}
		m = m.Replace(r.Replace, r.With)
	}
}
