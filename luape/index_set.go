package luape

import (
	"fmt"
	"math/rand"

	"github.com/unixpickle/essentials"
	"golang.org/x/exp/slices"
)

// An IndexSet is a strictly increasing sequence of example indices.
//
// Once an IndexSet is handed to a cache or a learner it should be treated as
// immutable. Partitioning always creates new sets.
type IndexSet struct {
	indices []int
}

// NewIndexSet creates an empty set with room for capacity indices.
func NewIndexSet(capacity int) *IndexSet {
	return &IndexSet{indices: make([]int, 0, capacity)}
}

// NewIndexSetInterval creates the set [begin, end).
func NewIndexSetInterval(begin, end int) *IndexSet {
	res := NewIndexSet(essentials.MaxInt(0, end-begin))
	if end > begin {
		res.AddInterval(begin, end)
	}
	return res
}

// NewIndexSetSlice creates a set from sorted, unique indices.
func NewIndexSetSlice(indices []int) *IndexSet {
	res := NewIndexSet(len(indices))
	for _, x := range indices {
		res.Append(x)
	}
	return res
}

// Append adds an index, which must be larger than every index in the set.
func (s *IndexSet) Append(index int) {
	if index < 0 {
		panic(fmt.Sprintf("negative index: %d", index))
	}
	if n := len(s.indices); n > 0 && s.indices[n-1] >= index {
		panic(fmt.Sprintf("index %d appended after %d", index, s.indices[n-1]))
	}
	s.indices = append(s.indices, index)
}

// AddInterval appends the range [begin, end).
func (s *IndexSet) AddInterval(begin, end int) {
	if end <= begin {
		panic(fmt.Sprintf("invalid interval [%d, %d)", begin, end))
	}
	if n := len(s.indices); n > 0 && s.indices[n-1] >= begin {
		panic(fmt.Sprintf("interval [%d, %d) appended after %d", begin, end, s.indices[n-1]))
	}
	for i := begin; i < end; i++ {
		s.indices = append(s.indices, i)
	}
}

// RandomlyExpandUsingSource grows s, which must be a subset of source, to
// newSize indices by merging in contiguous blocks of source taken at random
// offsets.
func (s *IndexSet) RandomlyExpandUsingSource(rng *rand.Rand, newSize int, source *IndexSet) {
	if newSize > source.Len() {
		panic(fmt.Sprintf("cannot expand to %d indices from a source of %d", newSize, source.Len()))
	}
	if newSize <= s.Len() {
		return
	}
	if newSize == source.Len() {
		s.indices = append(s.indices[:0], source.indices...)
		return
	}

	present := make(map[int]struct{}, newSize)
	for _, x := range s.indices {
		present[x] = struct{}{}
	}
	blockSize := essentials.MaxInt(1, (newSize-s.Len())/4)
	for len(present) < newSize {
		start := rng.Intn(source.Len())
		end := essentials.MinInt(source.Len(), start+blockSize)
		for _, x := range source.indices[start:end] {
			if len(present) == newSize {
				break
			}
			if _, ok := present[x]; !ok {
				present[x] = struct{}{}
				s.indices = append(s.indices, x)
			}
		}
	}
	slices.Sort(s.indices)
}

// Len returns the number of indices.
func (s *IndexSet) Len() int {
	return len(s.indices)
}

// At returns the i-th smallest index.
func (s *IndexSet) At(i int) int {
	return s.indices[i]
}

// Back returns the largest index, or -1 if the set is empty.
func (s *IndexSet) Back() int {
	if len(s.indices) == 0 {
		return -1
	}
	return s.indices[len(s.indices)-1]
}

// Indices returns the underlying sorted slice. It must not be modified.
func (s *IndexSet) Indices() []int {
	return s.indices
}

// Contains checks for an index using binary search.
func (s *IndexSet) Contains(index int) bool {
	_, ok := slices.BinarySearch(s.indices, index)
	return ok
}

// IsInterval returns true if s is exactly [0, n).
func (s *IndexSet) IsInterval(n int) bool {
	return len(s.indices) == n && (n == 0 || s.indices[n-1] == n-1)
}

// Equal checks if two sets contain the same indices.
func (s *IndexSet) Equal(other *IndexSet) bool {
	return slices.Equal(s.indices, other.indices)
}

// Mask returns a membership table over [0, size).
func (s *IndexSet) Mask(size int) []bool {
	res := make([]bool, size)
	for _, x := range s.indices {
		res[x] = true
	}
	return res
}

func (s *IndexSet) String() string {
	return fmt.Sprint(s.indices)
}
