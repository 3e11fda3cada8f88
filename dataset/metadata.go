// Package dataset reads luape datasets from CSV files and SQL databases,
// using YAML metadata to declare the kind of every column.
package dataset

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/luape/luape"
	"gopkg.in/yaml.v2"
)

// A Feature declares one column. Columns with Values are enums whose class
// is the position of the raw value in Values.
type Feature struct {
	Name   string   `yaml:"name"`
	Kind   string   `yaml:"kind"`
	Values []string `yaml:"values"`
}

// Metadata declares the inputs and the supervision of a dataset.
type Metadata struct {
	Features    []Feature `yaml:"features"`
	Supervision Feature   `yaml:"supervision"`

	// Missing lists raw values read as missing. Empty strings are always
	// missing.
	Missing []string `yaml:"missing"`
}

// ReadMetadata parses a YAML metadata document.
func ReadMetadata(data []byte) (*Metadata, error) {
	var md Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, errors.Wrap(err, "parse metadata")
	}
	if len(md.Features) == 0 {
		return nil, errors.New("parse metadata: no features declared")
	}
	if md.Supervision.Name == "" {
		return nil, errors.New("parse metadata: no supervision declared")
	}
	seen := map[string]bool{md.Supervision.Name: true}
	for _, f := range append([]Feature{md.Supervision}, md.Features...) {
		if _, err := f.kind(); err != nil {
			return nil, errors.Wrap(err, "parse metadata")
		}
	}
	for _, f := range md.Features {
		if seen[f.Name] {
			return nil, fmt.Errorf("parse metadata: duplicate column %q", f.Name)
		}
		seen[f.Name] = true
	}
	return &md, nil
}

// ReadMetadataFile reads a YAML metadata file.
func ReadMetadataFile(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read metadata")
	}
	md, err := ReadMetadata(data)
	if err != nil {
		return nil, errors.Wrapf(err, "read metadata %s", path)
	}
	return md, nil
}

func (f Feature) kind() (luape.Kind, error) {
	if len(f.Values) > 0 {
		if f.Kind != "" && f.Kind != "enum" {
			return 0, fmt.Errorf("column %q lists values but has kind %s", f.Name, f.Kind)
		}
		return luape.Enum, nil
	}
	if f.Kind == "" {
		return luape.Double, nil
	}
	k, err := luape.ParseKind(f.Kind)
	if err != nil {
		return 0, errors.Wrapf(err, "column %q", f.Name)
	}
	if k == luape.Enum || k == luape.Object {
		return 0, fmt.Errorf("column %q: kind %s needs a list of values", f.Name, k)
	}
	return k, nil
}

// Inputs returns the input declarations in column order.
func (m *Metadata) Inputs() []luape.InputSpec {
	res := make([]luape.InputSpec, len(m.Features))
	for i, f := range m.Features {
		k, _ := f.kind()
		res[i] = luape.InputSpec{Name: f.Name, Kind: k}
	}
	return res
}

// NewDataset creates an empty dataset with the declared columns.
func (m *Metadata) NewDataset() *luape.Dataset {
	k, _ := m.Supervision.kind()
	return luape.NewDataset(m.Inputs(), k)
}

// AddRecord parses a record keyed by column name and adds it to d.
func (m *Metadata) AddRecord(d *luape.Dataset, record map[string]string) error {
	inputs := make([]luape.Value, len(m.Features))
	for i, f := range m.Features {
		raw, ok := record[f.Name]
		if !ok {
			return fmt.Errorf("record has no column %q", f.Name)
		}
		v, err := m.ParseValue(f, raw)
		if err != nil {
			return err
		}
		inputs[i] = v
	}
	// Unlabeled records have a missing supervision.
	raw := record[m.Supervision.Name]
	supervision, err := m.ParseValue(m.Supervision, raw)
	if err != nil {
		return err
	}
	return d.Add(inputs, supervision)
}

// ParseValue converts a raw column value.
func (m *Metadata) ParseValue(f Feature, raw string) (luape.Value, error) {
	kind, err := f.kind()
	if err != nil {
		return luape.Value{}, err
	}
	raw = strings.TrimSpace(raw)
	if m.isMissing(raw) {
		return luape.MissingValue(kind), nil
	}
	switch kind {
	case luape.Boolean:
		switch strings.ToLower(raw) {
		case "true", "t", "yes", "y", "1":
			return luape.BoolValue(true), nil
		case "false", "f", "no", "n", "0":
			return luape.BoolValue(false), nil
		}
		return luape.Value{}, fmt.Errorf("column %q: invalid boolean %q", f.Name, raw)
	case luape.Integer:
		x, err := strconv.Atoi(raw)
		if err != nil {
			return luape.Value{}, errors.Wrapf(err, "column %q", f.Name)
		}
		return luape.IntValue(x), nil
	case luape.Enum:
		for i, v := range f.Values {
			if v == raw {
				return luape.EnumValue(i), nil
			}
		}
		return luape.Value{}, fmt.Errorf("column %q: undeclared value %q", f.Name, raw)
	case luape.Probability:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return luape.Value{}, errors.Wrapf(err, "column %q", f.Name)
		}
		if x < 0 || x > 1 {
			return luape.Value{}, fmt.Errorf("column %q: probability %f out of range", f.Name, x)
		}
		return luape.ProbabilityValue(x), nil
	default:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return luape.Value{}, errors.Wrapf(err, "column %q", f.Name)
		}
		return luape.DoubleValue(x), nil
	}
}

func (m *Metadata) isMissing(raw string) bool {
	if raw == "" {
		return true
	}
	for _, x := range m.Missing {
		if x == raw {
			return true
		}
	}
	return false
}
