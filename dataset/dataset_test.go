package dataset

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/luape/luape"
)

const testMetadata = `
features:
  - name: age
    kind: integer
  - name: income
  - name: color
    values: [red, green, blue]
  - name: member
    kind: boolean
supervision:
  name: churned
  kind: boolean
missing: ["?", "NA"]
`

func TestReadMetadata(t *testing.T) {
	md, err := ReadMetadata([]byte(testMetadata))
	require.NoError(t, err)
	assert.Equal(t, []luape.InputSpec{
		{Name: "age", Kind: luape.Integer},
		{Name: "income", Kind: luape.Double},
		{Name: "color", Kind: luape.Enum},
		{Name: "member", Kind: luape.Boolean},
	}, md.Inputs())
	assert.Equal(t, luape.Boolean, md.NewDataset().SupervisionKind)
}

func TestReadMetadataErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"no features":    "supervision: {name: y}\n",
		"no supervision": "features: [{name: x}]\n",
		"bad kind":       "features: [{name: x, kind: complex}]\nsupervision: {name: y}\n",
		"enum kind":      "features: [{name: x, kind: enum}]\nsupervision: {name: y}\n",
		"duplicate":      "features: [{name: x}, {name: x}]\nsupervision: {name: y}\n",
		"shadowing":      "features: [{name: y}]\nsupervision: {name: y}\n",
		"values kind":    "features: [{name: x, kind: double, values: [a]}]\nsupervision: {name: y}\n",
		"syntax":         "features: [",
	} {
		_, err := ReadMetadata([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestParseValue(t *testing.T) {
	md, err := ReadMetadata([]byte(testMetadata))
	require.NoError(t, err)
	age, income, color, member := md.Features[0], md.Features[1], md.Features[2], md.Features[3]

	for _, test := range []struct {
		f        Feature
		raw      string
		expected luape.Value
	}{
		{age, " 42 ", luape.IntValue(42)},
		{age, "?", luape.MissingValue(luape.Integer)},
		{income, "1.5e3", luape.DoubleValue(1500)},
		{income, "", luape.MissingValue(luape.Double)},
		{color, "blue", luape.EnumValue(2)},
		{color, "NA", luape.MissingValue(luape.Enum)},
		{member, "Yes", luape.BoolValue(true)},
		{member, "0", luape.BoolValue(false)},
		{member, "f", luape.BoolValue(false)},
	} {
		v, err := md.ParseValue(test.f, test.raw)
		require.NoError(t, err)
		assert.True(t, test.expected.Equal(v), "%s %q: got %v", test.f.Name, test.raw, v)
	}

	for _, test := range []struct {
		f   Feature
		raw string
	}{
		{age, "4.5"},
		{income, "lots"},
		{color, "purple"},
		{member, "maybe"},
		{Feature{Name: "p", Kind: "probability"}, "1.5"},
	} {
		_, err := md.ParseValue(test.f, test.raw)
		assert.Error(t, err, "%s %q", test.f.Name, test.raw)
	}
}

const testCSV = `id,age,income,color,member,churned
1,30,1000,red,yes,false
2,?,2500.5,green,no,true
3,51,,blue,y,
4,22,800,red,NA,true
`

func TestReadCSV(t *testing.T) {
	md, err := ReadMetadata([]byte(testMetadata))
	require.NoError(t, err)
	d, err := ReadCSV(strings.NewReader(testCSV), md)
	require.NoError(t, err)

	require.Equal(t, 4, d.NumExamples())
	assert.True(t, d.Columns[0][1].Missing)
	assert.Equal(t, 2500.5, d.Columns[1][1].Num)
	assert.True(t, math.IsNaN(d.Columns[1][2].Double()))
	assert.Equal(t, 2, d.Columns[2][2].Int())
	assert.True(t, d.Columns[3][3].Missing)
	assert.True(t, d.Supervisions[2].Missing)
	assert.Equal(t, luape.True, d.Supervisions[3].Bool())
	require.NoError(t, d.Validate())
}

func TestReadCSVErrors(t *testing.T) {
	md, err := ReadMetadata([]byte(testMetadata))
	require.NoError(t, err)

	_, err = ReadCSV(strings.NewReader("age,income,color,churned\n1,2,red,true\n"), md)
	assert.ErrorContains(t, err, "member")

	_, err = ReadCSV(strings.NewReader("age,income,color,member,churned\n1,2,pink,yes,true\n"), md)
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadCSV(strings.NewReader(""), md)
	assert.Error(t, err)
}

func TestReadCSVFile(t *testing.T) {
	dir := t.TempDir()
	mdPath := filepath.Join(dir, "meta.yaml")
	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(mdPath, []byte(testMetadata), 0644))
	require.NoError(t, os.WriteFile(csvPath, []byte(testCSV), 0644))

	md, err := ReadMetadataFile(mdPath)
	require.NoError(t, err)
	d, err := ReadCSVFile(csvPath, md)
	require.NoError(t, err)
	assert.Equal(t, 4, d.NumExamples())

	_, err = ReadCSVFile(filepath.Join(dir, "missing.csv"), md)
	assert.Error(t, err)
}

func TestReadSQL(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `CREATE TABLE customers (
		age INTEGER, income REAL, color TEXT, member TEXT, churned TEXT)`)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO customers VALUES
		(30, 1000, 'red', 'yes', 'false'),
		(NULL, 2500.5, 'green', 'no', 'true'),
		(51, NULL, 'blue', 'y', NULL)`)
	require.NoError(t, err)

	md, err := ReadMetadata([]byte(testMetadata))
	require.NoError(t, err)
	d, err := ReadSQL(ctx, db, "SELECT * FROM customers", md)
	require.NoError(t, err)

	require.Equal(t, 3, d.NumExamples())
	assert.Equal(t, 30, d.Columns[0][0].Int())
	assert.True(t, d.Columns[0][1].Missing)
	assert.True(t, d.Columns[1][2].Missing)
	assert.True(t, d.Supervisions[2].Missing)

	_, err = ReadSQL(ctx, db, "SELECT age FROM customers", md)
	assert.Error(t, err, "missing columns should be reported")
}
