package main

import (
	"encoding/csv"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/luape/luape"
)

func predictCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Write one prediction per example as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadModel(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "predict")
			}
			_, d, err := readDataset(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "predict")
			}
			if _, err := d.DeclareInputs(model.Universe); err != nil {
				return errors.Wrap(err, "predict")
			}

			predictions := predictAll(model, d)
			w := csv.NewWriter(os.Stdout)
			w.Write([]string{"prediction"})
			for _, p := range predictions {
				w.Write([]string{p.String()})
			}
			w.Flush()
			return w.Error()
		},
	}
	addDataFlags(cmd)
	addModelFlags(cmd)
	return cmd
}

func predictAll(model *luape.Model, d *luape.Dataset) []luape.Value {
	res := make([]luape.Value, d.NumExamples())
	essentials.ConcurrentMap(runtime.GOMAXPROCS(0), len(res), func(i int) {
		res[i] = model.Predict(d.Row(i))
	})
	return res
}
