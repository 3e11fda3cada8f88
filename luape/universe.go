package luape

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/unixpickle/essentials"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MaxInternedDepth bounds which function applications are shared. Nodes
// whose depth is at least this value are always allocated fresh.
const MaxInternedDepth = 4

// A NodeRef is a handle to a node owned by a Universe.
type NodeRef int32

// NoNode is the zero handle returned when no node exists.
const NoNode NodeRef = -1

// NodeKind is the variant of an expression node.
type NodeKind uint8

const (
	InputNode NodeKind = iota
	ConstantNode
	FunctionNode
	TestNode
	SumNode
)

func (n NodeKind) String() string {
	return [...]string{"input", "constant", "function", "test", "sum"}[n]
}

// Child positions of a Test node.
const (
	TestCondition = iota
	TestSuccess
	TestFailure
	TestMissing
)

// NodeInfo is a snapshot of a node's attributes.
type NodeInfo struct {
	Ref   NodeRef
	Kind  NodeKind
	Type  Kind
	Depth int

	// Name and Position are set for input nodes. The supervision node of a
	// dataset is an input with a negative position.
	Name     string
	Position int

	Constant Value
	Function Function
	Children []NodeRef

	Importance float64
}

type node struct {
	kind       NodeKind
	typ        Kind
	depth      int
	name       string
	position   int
	constant   Value
	function   Function
	children   []NodeRef
	importance float64
}

type applicationKey struct {
	function Function
	children string
}

// TimeStat accumulates computing time for one class of nodes.
type TimeStat struct {
	Count int
	Total time.Duration
}

func (t TimeStat) Mean() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// A Universe owns every node of a training run and interns functions,
// shallow function applications, and missing constants so that structurally
// identical expressions share one handle.
//
// A Universe may be shared between goroutines; all methods are serialized by
// a single lock.
type Universe struct {
	lock sync.Mutex

	nodes        []*node
	inputs       []NodeRef
	functions    map[string]Function
	applications map[applicationKey]NodeRef
	missing      map[Kind]NodeRef
	timeStats    map[string]*TimeStat
}

func NewUniverse() *Universe {
	return &Universe{
		functions:    map[string]Function{},
		applications: map[applicationKey]NodeRef{},
		missing:      map[Kind]NodeRef{},
		timeStats:    map[string]*TimeStat{},
	}
}

// NewInput creates an input node reading the next position of an example's
// raw feature vector.
func (u *Universe) NewInput(name string, kind Kind) NodeRef {
	u.lock.Lock()
	defer u.lock.Unlock()
	ref := u.add(&node{kind: InputNode, typ: kind, name: name, position: len(u.inputs)})
	u.inputs = append(u.inputs, ref)
	return ref
}

// NewSupervision creates an input-like node whose values are only ever
// provided through a SamplesCache.
func (u *Universe) NewSupervision(kind Kind) NodeRef {
	u.lock.Lock()
	defer u.lock.Unlock()
	return u.add(&node{kind: InputNode, typ: kind, name: "supervision", position: -1})
}

// Inputs returns the input nodes in positional order.
func (u *Universe) Inputs() []NodeRef {
	u.lock.Lock()
	defer u.lock.Unlock()
	return slices.Clone(u.inputs)
}

// NewConstant creates a constant node. Missing constants are shared per kind.
func (u *Universe) NewConstant(v Value) NodeRef {
	u.lock.Lock()
	defer u.lock.Unlock()
	if v.Missing {
		if ref, ok := u.missing[v.Kind]; ok {
			return ref
		}
		ref := u.add(&node{kind: ConstantNode, typ: v.Kind, constant: MissingValue(v.Kind)})
		u.missing[v.Kind] = ref
		return ref
	}
	return u.add(&node{kind: ConstantNode, typ: v.Kind, constant: v})
}

// Function returns the canonical instance for a function's class and
// parameters.
func (u *Universe) Function(f Function) Function {
	u.lock.Lock()
	defer u.lock.Unlock()
	return u.canonicalFunction(f)
}

func (u *Universe) canonicalFunction(f Function) Function {
	key := functionKey(f)
	if existing, ok := u.functions[key]; ok {
		return existing
	}
	u.functions[key] = f
	return f
}

// NewFunctionNode applies f to children. Applications shallower than
// MaxInternedDepth are interned, so equal calls return equal handles.
func (u *Universe) NewFunctionNode(f Function, children ...NodeRef) NodeRef {
	u.lock.Lock()
	defer u.lock.Unlock()

	f = u.canonicalFunction(f)
	if len(children) != f.Arity() {
		panic(fmt.Sprintf("%s expects %d children but got %d", f.Name(), f.Arity(), len(children)))
	}
	children = slices.Clone(children)
	if c, ok := f.(interface{ Commutative() bool }); ok && c.Commutative() {
		slices.Sort(children)
	}

	kinds := make([]Kind, len(children))
	depth := 0
	for i, child := range children {
		n := u.get(child)
		kinds[i] = n.typ
		depth = essentials.MaxInt(depth, n.depth)
	}
	depth++
	outKind := f.OutputKind(kinds)

	if depth >= MaxInternedDepth {
		return u.add(&node{kind: FunctionNode, typ: outKind, depth: depth, function: f, children: children})
	}
	key := applicationKey{function: f, children: encodeRefs(children)}
	if ref, ok := u.applications[key]; ok {
		return ref
	}
	ref := u.add(&node{kind: FunctionNode, typ: outKind, depth: depth, function: f, children: children})
	u.applications[key] = ref
	return ref
}

// NewTest creates a ternary branch on a boolean or probability condition.
// All three branches must have the same kind.
func (u *Universe) NewTest(condition, success, failure, missing NodeRef) NodeRef {
	u.lock.Lock()
	defer u.lock.Unlock()
	cond := u.get(condition)
	if !cond.typ.IsCondition() {
		panic("test condition must be boolean or probability, got " + cond.typ.String())
	}
	kind := u.get(success).typ
	depth := cond.depth
	for _, branch := range []NodeRef{success, failure, missing} {
		n := u.get(branch)
		if n.typ != kind {
			panic(fmt.Sprintf("test branches have kinds %s and %s", kind, n.typ))
		}
		depth = essentials.MaxInt(depth, n.depth)
	}
	return u.add(&node{
		kind:     TestNode,
		typ:      kind,
		depth:    depth + 1,
		children: []NodeRef{condition, success, failure, missing},
	})
}

// NewSum creates an accumulator node of the given kind. Double sums accept
// numeric and boolean children, Object sums add []float64 vectors.
func (u *Universe) NewSum(kind Kind, children ...NodeRef) NodeRef {
	if kind != Double && kind != Object {
		panic("sums must be double or object, got " + kind.String())
	}
	u.lock.Lock()
	defer u.lock.Unlock()
	ref := u.add(&node{kind: SumNode, typ: kind, depth: 1})
	for _, child := range children {
		u.appendSummand(ref, child)
	}
	return ref
}

// AppendSummand adds a child to a Sum node. Use SamplesCache.PushSumNode to
// keep cached sums up to date.
func (u *Universe) AppendSummand(sum, child NodeRef) {
	u.lock.Lock()
	defer u.lock.Unlock()
	u.appendSummand(sum, child)
}

func (u *Universe) appendSummand(sum, child NodeRef) {
	s := u.get(sum)
	if s.kind != SumNode {
		panic("node is not a sum")
	}
	c := u.get(child)
	if s.typ == Double && !(c.typ.IsNumeric() || c.typ == Boolean) {
		panic("cannot add " + c.typ.String() + " to a double sum")
	} else if s.typ == Object && c.typ != Object {
		panic("cannot add " + c.typ.String() + " to a vector sum")
	}
	s.children = append(s.children, child)
	s.depth = essentials.MaxInt(s.depth, c.depth+1)
}

// Node returns a snapshot of a node.
func (u *Universe) Node(ref NodeRef) NodeInfo {
	u.lock.Lock()
	defer u.lock.Unlock()
	n := u.get(ref)
	return NodeInfo{
		Ref:        ref,
		Kind:       n.kind,
		Type:       n.typ,
		Depth:      n.depth,
		Name:       n.name,
		Position:   n.position,
		Constant:   n.constant,
		Function:   n.function,
		Children:   slices.Clone(n.children),
		Importance: n.importance,
	}
}

// Type returns the result kind of a node.
func (u *Universe) Type(ref NodeRef) Kind {
	u.lock.Lock()
	defer u.lock.Unlock()
	return u.get(ref).typ
}

// NumNodes returns the number of allocated nodes.
func (u *Universe) NumNodes() int {
	u.lock.Lock()
	defer u.lock.Unlock()
	return len(u.nodes)
}

// AddImportance accumulates importance on a node.
func (u *Universe) AddImportance(ref NodeRef, delta float64) {
	u.lock.Lock()
	defer u.lock.Unlock()
	u.get(ref).importance += delta
}

func (u *Universe) Importance(ref NodeRef) float64 {
	u.lock.Lock()
	defer u.lock.Unlock()
	return u.get(ref).importance
}

// ImportanceEntry is a row of Universe.Importances().
type ImportanceEntry struct {
	Node       NodeRef
	Importance float64
}

// Importances lists nodes with non-zero importance, most important first.
func (u *Universe) Importances() []ImportanceEntry {
	u.lock.Lock()
	defer u.lock.Unlock()
	var refs []NodeRef
	var scores []float64
	for i, n := range u.nodes {
		if n.importance != 0 {
			refs = append(refs, NodeRef(i))
			scores = append(scores, n.importance)
		}
	}
	essentials.VoodooSort(scores, func(i, j int) bool {
		return scores[i] > scores[j]
	}, refs)
	res := make([]ImportanceEntry, len(refs))
	for i, ref := range refs {
		res[i] = ImportanceEntry{Node: ref, Importance: scores[i]}
	}
	return res
}

// ObserveComputingTime records time spent evaluating a class of nodes.
func (u *Universe) ObserveComputingTime(class string, d time.Duration) {
	u.lock.Lock()
	defer u.lock.Unlock()
	stat, ok := u.timeStats[class]
	if !ok {
		stat = &TimeStat{}
		u.timeStats[class] = stat
	}
	stat.Count++
	stat.Total += d
}

// TimeStats returns a copy of the per-class computing time statistics.
func (u *Universe) TimeStats() map[string]TimeStat {
	u.lock.Lock()
	defer u.lock.Unlock()
	res := make(map[string]TimeStat, len(u.timeStats))
	for k, v := range u.timeStats {
		res[k] = *v
	}
	return res
}

// NodeClass names the statistics class of a node.
func (u *Universe) NodeClass(ref NodeRef) string {
	u.lock.Lock()
	defer u.lock.Unlock()
	n := u.get(ref)
	if n.kind == FunctionNode {
		return n.function.Name()
	}
	return n.kind.String()
}

// Formatter defers Format until the result is printed, for log fields that
// are usually discarded.
func (u *Universe) Formatter(ref NodeRef) fmt.Stringer {
	return nodeFormatter{universe: u, ref: ref}
}

type nodeFormatter struct {
	universe *Universe
	ref      NodeRef
}

func (n nodeFormatter) String() string {
	return n.universe.Format(n.ref)
}

// Format renders an expression as text.
func (u *Universe) Format(ref NodeRef) string {
	info := u.Node(ref)
	switch info.Kind {
	case InputNode:
		return info.Name
	case ConstantNode:
		return info.Constant.String()
	case FunctionNode:
		args := make([]string, len(info.Children))
		for i, c := range info.Children {
			args[i] = u.Format(c)
		}
		switch f := info.Function.(type) {
		case *Stump:
			return fmt.Sprintf("%s > %v", args[0], f.Threshold)
		case *Arithmetic:
			return "(" + args[0] + " " + f.Op.String() + " " + args[1] + ")"
		case *EqualsConstant:
			return fmt.Sprintf("%s == %d", args[0], f.Value)
		}
		params := info.Function.Params()
		for _, p := range params {
			args = append(args, strconv.FormatFloat(p, 'g', -1, 64))
		}
		return info.Function.Name() + "(" + strings.Join(args, ", ") + ")"
	case TestNode:
		return fmt.Sprintf(
			"if %s {\n%s\n} else {\n%s\n} missing {\n%s\n}",
			u.Format(info.Children[TestCondition]),
			indentText(u.Format(info.Children[TestSuccess])),
			indentText(u.Format(info.Children[TestFailure])),
			indentText(u.Format(info.Children[TestMissing])),
		)
	default:
		terms := make([]string, len(info.Children))
		for i, c := range info.Children {
			terms[i] = u.Format(c)
		}
		return "sum(\n" + indentText(strings.Join(terms, ",\n")) + "\n)"
	}
}

// Reachable lists every node reachable from root, children before parents.
func (u *Universe) Reachable(root NodeRef) []NodeRef {
	visited := map[NodeRef]bool{}
	var res []NodeRef
	var visit func(NodeRef)
	visit = func(ref NodeRef) {
		if visited[ref] {
			return
		}
		visited[ref] = true
		for _, child := range u.Node(ref).Children {
			visit(child)
		}
		res = append(res, ref)
	}
	visit(root)
	return res
}

// FunctionKeys lists the interned function classes, sorted.
func (u *Universe) FunctionKeys() []string {
	u.lock.Lock()
	defer u.lock.Unlock()
	keys := maps.Keys(u.functions)
	sort.Strings(keys)
	return keys
}

func (u *Universe) add(n *node) NodeRef {
	u.nodes = append(u.nodes, n)
	return NodeRef(len(u.nodes) - 1)
}

func (u *Universe) get(ref NodeRef) *node {
	if ref < 0 || int(ref) >= len(u.nodes) {
		panic(fmt.Sprintf("node %d is not registered", ref))
	}
	return u.nodes[ref]
}

func encodeRefs(refs []NodeRef) string {
	var b strings.Builder
	for i, r := range refs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(r)))
	}
	return b.String()
}

func indentText(text string) string {
	lines := strings.Split(text, "\n")
	for i, x := range lines {
		lines[i] = "  " + x
	}
	return strings.Join(lines, "\n")
}
