package luape

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// DefaultMinRequestsToCache is the number of requests after which an
// uncached node is evaluated over the full population and cached.
const DefaultMinRequestsToCache = 2

// A SortedValue pairs an example index with a numeric node output.
type SortedValue struct {
	Index int
	Value float64
}

type cacheEntry struct {
	samples     *SampleVector
	sorted      []SortedValue
	numRequests int
	removable   bool
	reason      string
	size        int64
}

// A SamplesCache evaluates nodes over a fixed population of examples and
// keeps full-population results of frequently used nodes.
//
// The size ceiling is a soft limit: entries that may not be evicted, or a
// single entry larger than the ceiling, can push the cache above it.
//
// A SamplesCache must not be used from multiple goroutines at once.
type SamplesCache struct {
	// Logger receives eviction and soft limit events. Defaults to a no-op.
	Logger *zap.Logger

	// Metrics, if non-nil, is updated on every request.
	Metrics *CacheMetrics

	// MinRequestsToCache is the number of requests for an uncached node
	// after which it is cached. Zero disables automatic caching.
	MinRequestsToCache int

	universe *Universe
	all      *IndexSet
	inputs   map[NodeRef]*SampleVector
	entries  map[NodeRef]*cacheEntry
	requests map[NodeRef]int

	size    int64
	maxSize int64

	warnedOverBudget bool
}

// NewSamplesCache creates an empty cache for numExamples examples whose
// cached outputs should fit in maxSize bytes.
func NewSamplesCache(u *Universe, numExamples int, maxSize int64) *SamplesCache {
	return &SamplesCache{
		Logger:             zap.NewNop(),
		MinRequestsToCache: DefaultMinRequestsToCache,

		universe: u,
		all:      NewIndexSetInterval(0, numExamples),
		inputs:   map[NodeRef]*SampleVector{},
		entries:  map[NodeRef]*cacheEntry{},
		requests: map[NodeRef]int{},
		maxSize:  maxSize,
	}
}

// SetInput provides the full-population values of an input node.
func (s *SamplesCache) SetInput(ref NodeRef, values *SampleVector) {
	info := s.universe.Node(ref)
	if info.Kind != InputNode {
		panic("node is not an input")
	}
	if values.Kind() != info.Type {
		panic(fmt.Sprintf("input %q expects %s values but got %s", info.Name, info.Type, values.Kind()))
	}
	s.checkFullPopulation(values)
	s.inputs[ref] = values
}

func (s *SamplesCache) Universe() *Universe {
	return s.universe
}

// AllIndices returns the set [0, N) over every example.
func (s *SamplesCache) AllIndices() *IndexSet {
	return s.all
}

func (s *SamplesCache) NumExamples() int {
	return s.all.Len()
}

// Size returns the estimated bytes held by cached entries.
func (s *SamplesCache) Size() int64 {
	return s.size
}

func (s *SamplesCache) MaxSize() int64 {
	return s.maxSize
}

func (s *SamplesCache) NumCachedNodes() int {
	return len(s.entries)
}

func (s *SamplesCache) IsCached(ref NodeRef) bool {
	_, ok := s.entries[ref]
	return ok
}

// CachedNodes lists the nodes that currently have cache entries.
func (s *SamplesCache) CachedNodes() []NodeRef {
	res := make([]NodeRef, 0, len(s.entries))
	for ref := range s.entries {
		res = append(res, ref)
	}
	slices.Sort(res)
	return res
}

// GetSamples returns the outputs of a node over indices, aligned to the
// order of indices.
//
// Cached nodes are returned as views into the cached vector. Uncached nodes
// are evaluated, and cached over the full population once they have been
// requested MinRequestsToCache times.
func (s *SamplesCache) GetSamples(ref NodeRef, indices *IndexSet) *SampleVector {
	typ := s.universe.Type(ref)
	if values, ok := s.inputs[ref]; ok {
		return s.subset(values, indices)
	}
	if entry, ok := s.entries[ref]; ok {
		if entry.samples.Kind() != typ {
			panic(fmt.Sprintf("node %d has kind %s but cached samples have kind %s",
				ref, typ, entry.samples.Kind()))
		}
		entry.numRequests++
		if s.Metrics != nil {
			s.Metrics.Hits.Inc()
		}
		return s.subset(entry.samples, indices)
	}

	if s.Metrics != nil {
		s.Metrics.Misses.Inc()
	}
	s.requests[ref]++
	numRequests := s.requests[ref]
	promote := s.MinRequestsToCache > 0 && numRequests >= s.MinRequestsToCache

	isFull := indices.Len() == s.all.Len()
	if promote && !isFull {
		values := s.compute(ref, s.all)
		s.promote(ref, values, numRequests)
		return s.subset(values, indices)
	}
	values := s.compute(ref, indices)
	if promote {
		s.promote(ref, values, numRequests)
	}
	return values
}

func (s *SamplesCache) promote(ref NodeRef, values *SampleVector, numRequests int) {
	delete(s.requests, ref)
	if s.Metrics != nil {
		s.Metrics.Promotions.Inc()
	}
	s.CacheNode(ref, values, "promoted", true)
	if entry, ok := s.entries[ref]; ok {
		entry.numRequests = numRequests
	}
}

// CacheNode registers the full-population outputs of a node.
//
// Entries that are not removable are never evicted. They are used for the
// supervision and for the root of the model being trained.
func (s *SamplesCache) CacheNode(ref NodeRef, values *SampleVector, reason string, removable bool) {
	if typ := s.universe.Type(ref); typ != values.Kind() {
		panic(fmt.Sprintf("node %d has kind %s but samples have kind %s", ref, typ, values.Kind()))
	}
	s.checkFullPopulation(values)
	if old, ok := s.entries[ref]; ok {
		s.size -= old.size
	}
	entry := &cacheEntry{
		samples:   values,
		removable: removable,
		reason:    reason,
		size:      values.SizeInBytes(),
	}
	s.entries[ref] = entry
	s.size += entry.size
	s.updateSizeMetric()
	s.Logger.Debug("cached node",
		zap.Int32("node", int32(ref)),
		zap.String("reason", reason),
		zap.Bool("removable", removable),
		zap.Int64("bytes", entry.size))
	s.ensureSizeIsLowerThanMaxSize(ref)
}

// UncacheNode drops the entry of a node, if any. Entries of its children
// are unaffected.
func (s *SamplesCache) UncacheNode(ref NodeRef) {
	if entry, ok := s.entries[ref]; ok {
		s.size -= entry.size
		delete(s.entries, ref)
		s.updateSizeMetric()
	}
}

// UncacheNodes drops up to count removable entries, least requested first.
// It returns the number of dropped entries.
func (s *SamplesCache) UncacheNodes(count int) int {
	var dropped int
	for dropped < count {
		ref, ok := s.evictionCandidate(NoNode)
		if !ok {
			break
		}
		s.UncacheNode(ref)
		dropped++
	}
	return dropped
}

// EnsureSizeIsLowerThanMaxSize evicts removable entries until the cache fits
// its ceiling, or nothing else can be evicted.
func (s *SamplesCache) EnsureSizeIsLowerThanMaxSize() {
	s.ensureSizeIsLowerThanMaxSize(NoNode)
}

func (s *SamplesCache) ensureSizeIsLowerThanMaxSize(keep NodeRef) {
	for s.size > s.maxSize {
		ref, ok := s.evictionCandidate(keep)
		if !ok {
			if !s.warnedOverBudget {
				s.warnedOverBudget = true
				s.Logger.Warn("samples cache exceeds its size ceiling",
					zap.Int64("bytes", s.size),
					zap.Int64("max_bytes", s.maxSize))
			}
			return
		}
		entry := s.entries[ref]
		s.Logger.Debug("evicting node",
			zap.Int32("node", int32(ref)),
			zap.String("reason", entry.reason),
			zap.Int("requests", entry.numRequests),
			zap.Int64("bytes", entry.size))
		s.UncacheNode(ref)
		if s.Metrics != nil {
			s.Metrics.Evictions.Inc()
		}
	}
}

// evictionCandidate finds the removable entry with the fewest requests,
// preferring larger entries on ties.
func (s *SamplesCache) evictionCandidate(keep NodeRef) (NodeRef, bool) {
	best := NoNode
	var bestEntry *cacheEntry
	for ref, entry := range s.entries {
		if !entry.removable || ref == keep {
			continue
		}
		if bestEntry == nil ||
			entry.numRequests < bestEntry.numRequests ||
			(entry.numRequests == bestEntry.numRequests && entry.size > bestEntry.size) ||
			(entry.numRequests == bestEntry.numRequests && entry.size == bestEntry.size && ref < best) {
			best = ref
			bestEntry = entry
		}
	}
	return best, bestEntry != nil
}

// GetSortedDoubleValues returns the non-missing outputs of a numeric node
// over indices, sorted by ascending value. Ties keep ascending example order.
//
// The full-population sort is computed once per cached node.
func (s *SamplesCache) GetSortedDoubleValues(ref NodeRef, indices *IndexSet) []SortedValue {
	entry := s.fullEntry(ref)
	entry.numRequests++
	if entry.sorted == nil {
		samples := entry.samples
		sorted := make([]SortedValue, 0, samples.Len())
		for i := 0; i < samples.Len(); i++ {
			if x := samples.DoubleAt(i); !math.IsNaN(x) {
				sorted = append(sorted, SortedValue{Index: i, Value: x})
			}
		}
		slices.SortStableFunc(sorted, func(a, b SortedValue) bool {
			return a.Value < b.Value
		})
		entry.sorted = sorted
		extra := 16 * int64(len(sorted))
		entry.size += extra
		s.size += extra
		s.updateSizeMetric()
		s.ensureSizeIsLowerThanMaxSize(ref)
	}
	if indices.Len() == s.all.Len() {
		return entry.sorted
	}
	mask := indices.Mask(s.all.Len())
	res := make([]SortedValue, 0, indices.Len())
	for _, x := range entry.sorted {
		if mask[x.Index] {
			res = append(res, x)
		}
	}
	return res
}

// fullEntry returns the cache entry of a node, caching it if necessary.
// Inputs get an entry so that their sort can be stored.
func (s *SamplesCache) fullEntry(ref NodeRef) *cacheEntry {
	if entry, ok := s.entries[ref]; ok {
		return entry
	}
	if input, ok := s.inputs[ref]; ok {
		// Input columns are owned by the cache and only the sort is counted.
		entry := &cacheEntry{samples: input, removable: true, reason: "input"}
		s.entries[ref] = entry
		s.ensureSizeIsLowerThanMaxSize(ref)
		return entry
	}
	s.CacheNode(ref, s.compute(ref, s.all), "sorted values", true)
	return s.entries[ref]
}

// PushSumNode appends a child to a Sum node and, if the sum is cached, adds
// the child's outputs to the cached vector in place.
func (s *SamplesCache) PushSumNode(sum, child NodeRef) {
	s.universe.AppendSummand(sum, child)
	entry, ok := s.entries[sum]
	if !ok {
		return
	}
	if entry.samples.Representation() != OwnedRepresentation {
		// Broadcast sums are rebuilt as owned vectors.
		removable, reason := entry.removable, entry.reason
		s.UncacheNode(sum)
		s.CacheNode(sum, s.compute(sum, s.all), reason, removable)
		return
	}
	values := s.GetSamples(child, s.all)
	if s.entries[sum] != entry {
		// Promoting the child evicted the sum.
		return
	}
	accumulate(entry.samples, values)
	if entry.sorted != nil {
		s.size -= 16 * int64(len(entry.sorted))
		entry.size -= 16 * int64(len(entry.sorted))
		entry.sorted = nil
		s.updateSizeMetric()
	}
}

func (s *SamplesCache) subset(values *SampleVector, indices *IndexSet) *SampleVector {
	if values.IsConstant() {
		return NewConstantSamples(indices, values.Constant())
	}
	if indices.Len() == s.all.Len() {
		return values
	}
	return values.View(indices)
}

func (s *SamplesCache) checkFullPopulation(values *SampleVector) {
	if values.Len() != s.all.Len() || !values.Indices().IsInterval(s.all.Len()) {
		panic(fmt.Sprintf("expected samples for all %d examples but got %d",
			s.all.Len(), values.Len()))
	}
}

func (s *SamplesCache) updateSizeMetric() {
	if s.Metrics != nil {
		s.Metrics.CachedBytes.Set(float64(s.size))
	}
}

func (s *SamplesCache) compute(ref NodeRef, indices *IndexSet) *SampleVector {
	info := s.universe.Node(ref)
	class := info.Kind.String()
	if info.Function != nil {
		class = info.Function.Name()
	}
	start := time.Now()
	res := s.computeNode(info, indices)
	elapsed := time.Since(start)
	s.universe.ObserveComputingTime(class, elapsed)
	if s.Metrics != nil {
		s.Metrics.ComputingTime.WithLabelValues(class).Observe(elapsed.Seconds())
		s.Metrics.EvaluatedSamples.WithLabelValues(class).Add(float64(indices.Len()))
	}
	if res.Kind() != info.Type {
		panic(fmt.Sprintf("node %d has kind %s but evaluated to %s", ref, info.Type, res.Kind()))
	}
	return res
}

func (s *SamplesCache) computeNode(info NodeInfo, indices *IndexSet) *SampleVector {
	switch info.Kind {
	case InputNode:
		panic(fmt.Sprintf("no values were provided for input %q", info.Name))
	case ConstantNode:
		return NewConstantSamples(indices, info.Constant)
	case FunctionNode:
		args := make([]*SampleVector, len(info.Children))
		for i, child := range info.Children {
			args[i] = s.GetSamples(child, indices)
		}
		return info.Function.ComputeBatch(indices, args)
	case TestNode:
		return s.computeTest(info, indices)
	default:
		return s.computeSum(info, indices)
	}
}

func (s *SamplesCache) computeTest(info NodeInfo, indices *IndexSet) *SampleVector {
	cond := s.GetSamples(info.Children[TestCondition], indices)
	if cond.IsConstant() {
		var branch int
		switch cond.Constant().Bool() {
		case True:
			branch = TestSuccess
		case False:
			branch = TestFailure
		default:
			branch = TestMissing
		}
		return s.GetSamples(info.Children[branch], indices)
	}

	success, failure, missing := PartitionIndices(indices, cond)
	var branches [3]*SampleVector
	for i, subset := range []*IndexSet{success, failure, missing} {
		if subset.Len() > 0 {
			branches[i] = s.GetSamples(info.Children[TestSuccess+i], subset)
		}
	}

	out := newSampleBuilder(info.Type, indices)
	var cursors [3]int
	for i := 0; i < indices.Len(); i++ {
		var b int
		switch cond.BoolAt(i) {
		case True:
			b = 0
		case False:
			b = 1
		default:
			b = 2
		}
		out.Set(i, branches[b], cursors[b])
		cursors[b]++
	}
	return out.Build()
}

func (s *SamplesCache) computeSum(info NodeInfo, indices *IndexSet) *SampleVector {
	var res *SampleVector
	if info.Type == Object {
		res = NewObjectSamples(indices, make([]any, indices.Len()))
	} else {
		res = NewDoubleSamples(Double, indices, make([]float64, indices.Len()))
	}
	for _, child := range info.Children {
		accumulate(res, s.GetSamples(child, indices))
	}
	return res
}

// PartitionIndices splits indices by the outputs of a condition, which are
// aligned to indices. The results preserve ascending order.
func PartitionIndices(indices *IndexSet, cond *SampleVector) (success, failure, missing *IndexSet) {
	success = NewIndexSet(0)
	failure = NewIndexSet(0)
	missing = NewIndexSet(0)
	for i, idx := range indices.Indices() {
		switch cond.BoolAt(i) {
		case True:
			success.Append(idx)
		case False:
			failure.Append(idx)
		default:
			missing.Append(idx)
		}
	}
	return
}

// accumulate adds values into an owned double or object sum vector.
func accumulate(sum, values *SampleVector) {
	if sum.kind == Object {
		for i := range sum.objects {
			vec := addVector(toVector(sum.objects[i]), values.ObjectAt(i))
			if vec != nil {
				sum.objects[i] = vec
			}
		}
		return
	}
	for i := range sum.doubles {
		sum.doubles[i] += values.DoubleAt(i)
	}
}

func toVector(obj any) []float64 {
	if obj == nil {
		return nil
	}
	return obj.([]float64)
}

// A sampleBuilder assembles an owned SampleVector from elements of other
// vectors without boxing.
type sampleBuilder struct {
	kind    Kind
	indices *IndexSet
	bools   []uint8
	ints    []int
	doubles []float64
	objects []any
}

func newSampleBuilder(kind Kind, indices *IndexSet) *sampleBuilder {
	b := &sampleBuilder{kind: kind, indices: indices}
	n := indices.Len()
	switch kind {
	case Boolean:
		b.bools = make([]uint8, n)
	case Integer, Enum:
		b.ints = make([]int, n)
	case Double, Probability:
		b.doubles = make([]float64, n)
	default:
		b.objects = make([]any, n)
	}
	return b
}

// Set copies the j-th element of src into position i.
func (b *sampleBuilder) Set(i int, src *SampleVector, j int) {
	switch b.kind {
	case Boolean:
		b.bools[i] = src.BoolAt(j)
	case Integer, Enum:
		b.ints[i] = src.IntAt(j)
	case Double, Probability:
		b.doubles[i] = src.DoubleAt(j)
	default:
		b.objects[i] = src.ObjectAt(j)
	}
}

func (b *sampleBuilder) Build() *SampleVector {
	switch b.kind {
	case Boolean:
		return NewBoolSamples(b.indices, b.bools)
	case Integer, Enum:
		return NewIntSamples(b.kind, b.indices, b.ints)
	case Double, Probability:
		return NewDoubleSamples(b.kind, b.indices, b.doubles)
	default:
		return NewObjectSamples(b.indices, b.objects)
	}
}
