package luape

import (
	"fmt"

	"github.com/pkg/errors"
)

// An InputSpec declares one raw input of a dataset.
type InputSpec struct {
	Name string
	Kind Kind
}

// A Dataset holds raw example values, column by column, along with one
// supervision per example.
type Dataset struct {
	Inputs          []InputSpec
	SupervisionKind Kind

	// Columns[j][i] is input j of example i.
	Columns      [][]Value
	Supervisions []Value

	// Weights is either nil or holds one weight per example.
	Weights []float64
}

func NewDataset(inputs []InputSpec, supervisionKind Kind) *Dataset {
	return &Dataset{
		Inputs:          inputs,
		SupervisionKind: supervisionKind,
		Columns:         make([][]Value, len(inputs)),
	}
}

// Add appends an example after checking it against the declared kinds.
func (d *Dataset) Add(inputs []Value, supervision Value) error {
	if len(inputs) != len(d.Inputs) {
		return fmt.Errorf("example has %d inputs but %d are declared", len(inputs), len(d.Inputs))
	}
	for j, v := range inputs {
		if v.Kind != d.Inputs[j].Kind {
			return fmt.Errorf("input %q expects %s but got %s", d.Inputs[j].Name,
				d.Inputs[j].Kind, v.Kind)
		}
	}
	if supervision.Kind != d.SupervisionKind {
		return fmt.Errorf("supervision expects %s but got %s", d.SupervisionKind, supervision.Kind)
	}
	for j, v := range inputs {
		d.Columns[j] = append(d.Columns[j], v)
	}
	d.Supervisions = append(d.Supervisions, supervision)
	return nil
}

func (d *Dataset) NumExamples() int {
	return len(d.Supervisions)
}

// Row returns the inputs of one example.
func (d *Dataset) Row(i int) []Value {
	res := make([]Value, len(d.Columns))
	for j, col := range d.Columns {
		res[j] = col[i]
	}
	return res
}

// Validate checks that the dataset is rectangular and that every value has
// its declared kind.
func (d *Dataset) Validate() error {
	if len(d.Columns) != len(d.Inputs) {
		return fmt.Errorf("%d columns for %d inputs", len(d.Columns), len(d.Inputs))
	}
	n := len(d.Supervisions)
	for j, col := range d.Columns {
		if len(col) != n {
			return fmt.Errorf("input %q has %d values for %d examples", d.Inputs[j].Name, len(col), n)
		}
		for i, v := range col {
			if v.Kind != d.Inputs[j].Kind {
				return fmt.Errorf("example %d: input %q expects %s but got %s", i,
					d.Inputs[j].Name, d.Inputs[j].Kind, v.Kind)
			}
		}
	}
	for i, v := range d.Supervisions {
		if v.Kind != d.SupervisionKind {
			return fmt.Errorf("example %d: supervision expects %s but got %s", i,
				d.SupervisionKind, v.Kind)
		}
	}
	if d.Weights != nil && len(d.Weights) != n {
		return fmt.Errorf("%d weights for %d examples", len(d.Weights), n)
	}
	for i, w := range d.Weights {
		if w < 0 {
			return fmt.Errorf("example %d has negative weight %f", i, w)
		}
	}
	return nil
}

// DeclareInputs creates the input nodes of the dataset in a universe that
// has no inputs yet, or checks them against an existing declaration.
func (d *Dataset) DeclareInputs(u *Universe) ([]NodeRef, error) {
	existing := u.Inputs()
	if len(existing) == 0 {
		res := make([]NodeRef, len(d.Inputs))
		for i, in := range d.Inputs {
			res[i] = u.NewInput(in.Name, in.Kind)
		}
		return res, nil
	}
	if len(existing) != len(d.Inputs) {
		return nil, fmt.Errorf("universe has %d inputs but dataset has %d", len(existing), len(d.Inputs))
	}
	for i, ref := range existing {
		info := u.Node(ref)
		if info.Name != d.Inputs[i].Name || info.Type != d.Inputs[i].Kind {
			return nil, fmt.Errorf("input %d is %s %s in the universe but %s %s in the dataset",
				i, info.Name, info.Type, d.Inputs[i].Name, d.Inputs[i].Kind)
		}
	}
	return existing, nil
}

// NewSamplesCache validates the dataset and creates a cache holding its
// input columns.
func (d *Dataset) NewSamplesCache(u *Universe, maxSize int64) (*SamplesCache, error) {
	if err := d.Validate(); err != nil {
		return nil, errors.Wrap(err, "create samples cache")
	}
	inputs, err := d.DeclareInputs(u)
	if err != nil {
		return nil, errors.Wrap(err, "create samples cache")
	}
	cache := NewSamplesCache(u, d.NumExamples(), maxSize)
	all := cache.AllIndices()
	for j, ref := range inputs {
		cache.SetInput(ref, NewSamplesFromValues(d.Inputs[j].Kind, all, d.Columns[j]))
	}
	return cache, nil
}

// SupervisionSamples packs the supervisions into a full-population vector.
func (d *Dataset) SupervisionSamples() *SampleVector {
	return NewSamplesFromValues(d.SupervisionKind, NewIndexSetInterval(0, d.NumExamples()),
		d.Supervisions)
}
