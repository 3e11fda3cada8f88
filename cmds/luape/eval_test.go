package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/unixpickle/luape/luape"
)

func TestEvaluateBoolean(t *testing.T) {
	labels := []luape.Value{
		luape.BoolValue(true),
		luape.BoolValue(false),
		luape.BoolValue(true),
		luape.MissingValue(luape.Boolean),
		luape.BoolValue(false),
	}
	predictions := []luape.Value{
		luape.ProbabilityValue(0.9),
		luape.ProbabilityValue(0.7),
		luape.BoolValue(true),
		luape.BoolValue(true),
		luape.MissingValue(luape.Probability),
	}
	res := evaluate(luape.Boolean, labels, predictions)
	assert.Equal(t, 4, res.Labeled)
	assert.Equal(t, 1, res.MissingPredictions)
	assert.Equal(t, 0.5, res.Accuracy)
}

func TestEvaluateRegression(t *testing.T) {
	labels := []luape.Value{luape.DoubleValue(1), luape.DoubleValue(2), luape.DoubleValue(math.NaN())}
	predictions := []luape.Value{luape.DoubleValue(2), luape.DoubleValue(4), luape.DoubleValue(0)}
	res := evaluate(luape.Double, labels, predictions)
	assert.Equal(t, 2, res.Labeled)
	assert.InDelta(t, 2.5, res.MSE, 1e-12)

	res = evaluate(luape.Double, labels[:1], []luape.Value{luape.MissingValue(luape.Double)})
	assert.Equal(t, 0.0, res.MSE)
	assert.Equal(t, 1, res.MissingPredictions)
}

func TestEvaluateEnum(t *testing.T) {
	labels := []luape.Value{luape.EnumValue(0), luape.EnumValue(2), luape.EnumValue(1)}
	predictions := []luape.Value{luape.EnumValue(0), luape.EnumValue(1), luape.EnumValue(1)}
	res := evaluate(luape.Enum, labels, predictions)
	assert.InDelta(t, 2.0/3, res.Accuracy, 1e-12)
}

func TestPredictAll(t *testing.T) {
	u := luape.NewUniverse()
	x := u.NewInput("x", luape.Double)
	m := &luape.Model{Universe: u, Root: u.NewFunctionNode(&luape.Scale{Factor: 2}, x)}
	d := luape.NewDataset([]luape.InputSpec{{Name: "x", Kind: luape.Double}}, luape.Double)
	for i := 0; i < 50; i++ {
		d.Add([]luape.Value{luape.DoubleValue(float64(i))}, luape.DoubleValue(0))
	}
	predictions := predictAll(m, d)
	for i, p := range predictions {
		assert.Equal(t, float64(2*i), p.Double())
	}
}
