package main

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/unixpickle/luape/luape"
)

func evalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure a model on a labeled dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadModel(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "eval")
			}
			_, d, err := readDataset(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "eval")
			}
			if _, err := d.DeclareInputs(model.Universe); err != nil {
				return errors.Wrap(err, "eval")
			}
			predictions := predictAll(model, d)
			result := evaluate(d.SupervisionKind, d.Supervisions, predictions)
			fmt.Println("Examples:", result.Labeled)
			fmt.Println("Missing predictions:", result.MissingPredictions)
			if d.SupervisionKind == luape.Boolean || d.SupervisionKind == luape.Enum {
				fmt.Printf("Accuracy: %.4f\n", result.Accuracy)
			} else {
				fmt.Printf("MSE: %.6f\n", result.MSE)
				fmt.Printf("RMSE: %.6f\n", math.Sqrt(result.MSE))
			}
			return nil
		},
	}
	addDataFlags(cmd)
	addModelFlags(cmd)
	return cmd
}

type evalResult struct {
	Labeled            int
	MissingPredictions int
	Accuracy           float64
	MSE                float64
}

// evaluate ignores examples without supervision. Missing predictions count
// as errors.
func evaluate(kind luape.Kind, labels, predictions []luape.Value) *evalResult {
	res := &evalResult{}
	var correct int
	var sqErr float64
	for i, label := range labels {
		if label.Missing {
			continue
		}
		res.Labeled++
		pred := predictions[i]
		if pred.Missing {
			res.MissingPredictions++
			continue
		}
		switch kind {
		case luape.Boolean:
			if pred.Kind.IsCondition() && pred.Bool() == label.Bool() {
				correct++
			}
		case luape.Enum:
			if pred.Int() == label.Int() {
				correct++
			}
		default:
			diff := pred.Double() - label.Double()
			sqErr += diff * diff
		}
	}
	if res.Labeled > 0 {
		res.Accuracy = float64(correct) / float64(res.Labeled)
	}
	if n := res.Labeled - res.MissingPredictions; n > 0 {
		res.MSE = sqErr / float64(n)
	}
	return res
}
