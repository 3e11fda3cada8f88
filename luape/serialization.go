package luape

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

type modelJSON struct {
	Inputs []inputJSON `json:"inputs"`
	Nodes  []nodeJSON  `json:"nodes"`
	Root   int         `json:"root"`
}

type inputJSON struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type nodeJSON struct {
	Kind string `json:"kind"`
	Type string `json:"type"`

	Input    *int       `json:"input,omitempty"`
	Value    *valueJSON `json:"value,omitempty"`
	Function string     `json:"function,omitempty"`
	Params   []float64  `json:"params,omitempty"`
	Children []int      `json:"children,omitempty"`

	Importance float64 `json:"importance,omitempty"`
}

type valueJSON struct {
	Missing bool      `json:"missing,omitempty"`
	Num     float64   `json:"num,omitempty"`
	Vector  []float64 `json:"vector,omitempty"`
}

// WriteModel encodes a model as JSON. Every node reachable from the root is
// written once, after its children, and referenced by position, so shared
// sub-expressions stay shared when the model is read back.
func WriteModel(w io.Writer, m *Model) error {
	doc, err := encodeModel(m)
	if err != nil {
		return errors.Wrap(err, "write model")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "write model")
	}
	return nil
}

func encodeModel(m *Model) (*modelJSON, error) {
	u := m.Universe
	doc := &modelJSON{}
	for _, ref := range u.Inputs() {
		info := u.Node(ref)
		doc.Inputs = append(doc.Inputs, inputJSON{Name: info.Name, Kind: info.Type.String()})
	}

	positions := map[NodeRef]int{}
	for _, ref := range u.Reachable(m.Root) {
		info := u.Node(ref)
		n := nodeJSON{
			Kind:       info.Kind.String(),
			Type:       info.Type.String(),
			Importance: info.Importance,
		}
		switch info.Kind {
		case InputNode:
			if info.Position < 0 {
				return nil, errors.New("model references a supervision node")
			}
			pos := info.Position
			n.Input = &pos
		case ConstantNode:
			v, err := encodeValue(info.Constant)
			if err != nil {
				return nil, err
			}
			n.Value = v
		case FunctionNode:
			n.Function = info.Function.Name()
			n.Params = info.Function.Params()
		}
		for _, c := range info.Children {
			n.Children = append(n.Children, positions[c])
		}
		positions[ref] = len(doc.Nodes)
		doc.Nodes = append(doc.Nodes, n)
	}
	doc.Root = positions[m.Root]
	return doc, nil
}

func encodeValue(v Value) (*valueJSON, error) {
	if v.Missing {
		return &valueJSON{Missing: true}, nil
	}
	if v.Kind == Object {
		vec, ok := v.Obj.([]float64)
		if !ok {
			return nil, fmt.Errorf("cannot encode object constant of type %T", v.Obj)
		}
		return &valueJSON{Vector: vec}, nil
	}
	return &valueJSON{Num: v.Num}, nil
}

// ReadModel decodes a model written by WriteModel into a new Universe.
func ReadModel(r io.Reader) (*Model, error) {
	var doc modelJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "read model")
	}
	m, err := decodeModel(&doc)
	if err != nil {
		return nil, errors.Wrap(err, "read model")
	}
	return m, nil
}

func decodeModel(doc *modelJSON) (m *Model, err error) {
	defer func() {
		// Malformed node graphs trip the Universe's contract checks.
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid node graph: %v", r)
		}
	}()

	u := NewUniverse()
	var inputs []NodeRef
	for _, in := range doc.Inputs {
		kind, err := ParseKind(in.Kind)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, u.NewInput(in.Name, kind))
	}

	refs := make([]NodeRef, len(doc.Nodes))
	for i, n := range doc.Nodes {
		kind, err := ParseKind(n.Type)
		if err != nil {
			return nil, err
		}
		children := make([]NodeRef, len(n.Children))
		for j, c := range n.Children {
			if c < 0 || c >= i {
				return nil, fmt.Errorf("node %d references node %d", i, c)
			}
			children[j] = refs[c]
		}
		var ref NodeRef
		switch n.Kind {
		case "input":
			if n.Input == nil || *n.Input < 0 || *n.Input >= len(inputs) {
				return nil, fmt.Errorf("node %d: invalid input", i)
			}
			ref = inputs[*n.Input]
		case "constant":
			if n.Value == nil {
				return nil, fmt.Errorf("node %d: missing value", i)
			}
			ref = u.NewConstant(decodeValue(kind, n.Value))
		case "function":
			f, err := NewFunction(n.Function, n.Params)
			if err != nil {
				return nil, errors.Wrapf(err, "node %d", i)
			}
			ref = u.NewFunctionNode(f, children...)
		case "test":
			if len(children) != 4 {
				return nil, fmt.Errorf("node %d: test has %d children", i, len(children))
			}
			ref = u.NewTest(children[0], children[1], children[2], children[3])
		case "sum":
			ref = u.NewSum(kind, children...)
		default:
			return nil, fmt.Errorf("node %d: unknown kind %q", i, n.Kind)
		}
		if u.Type(ref) != kind {
			return nil, fmt.Errorf("node %d: expected kind %s but got %s", i, kind, u.Type(ref))
		}
		if n.Importance != 0 {
			u.AddImportance(ref, n.Importance)
		}
		refs[i] = ref
	}
	if doc.Root < 0 || doc.Root >= len(refs) {
		return nil, fmt.Errorf("invalid root %d", doc.Root)
	}
	return &Model{Universe: u, Root: refs[doc.Root]}, nil
}

func decodeValue(kind Kind, v *valueJSON) Value {
	if v.Missing {
		return MissingValue(kind)
	}
	if kind == Object {
		return ObjectValue(v.Vector)
	}
	return Value{Kind: kind, Num: v.Num}
}

// Save writes an object to a file with an encoding function.
func Save[T any](path string, obj T, f func(io.Writer, T) error) error {
	w, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "save")
	}
	defer w.Close()
	if err := f(w, obj); err != nil {
		return errors.Wrap(err, "save")
	}
	return errors.Wrap(w.Close(), "save")
}

// Load reads an object from a file with a decoding function.
func Load[T any](path string, f func(io.Reader) (T, error)) (T, error) {
	r, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, errors.Wrap(err, "load")
	}
	defer r.Close()
	return f(r)
}
