package main

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/unixpickle/luape/luape"
	"go.uber.org/zap"
)

func growCommand() *cobra.Command {
	var configPath string
	var metricsAddr string
	var numImportances int
	cmd := &cobra.Command{
		Use:   "grow",
		Short: "Grow a model on a dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()

			cfg := luape.DefaultLearnerConfig()
			if configPath != "" {
				var err error
				cfg, err = luape.LoadLearnerConfig(configPath)
				if err != nil {
					return err
				}
			}

			registry := prometheus.NewRegistry()
			if metricsAddr != "" {
				go func() {
					mux := http.NewServeMux()
					mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						logger.Warn("metrics server stopped", zap.Error(err))
					}
				}()
			}

			logger.Info("reading dataset", zap.String("metadata", metadataPath))
			_, d, err := readDataset(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "grow")
			}

			trainer := &luape.Trainer{Config: cfg, Logger: logger, Registerer: registry}
			model, err := trainer.Train(d)
			if err != nil {
				return err
			}

			for i, entry := range model.Universe.Importances() {
				if i >= numImportances || entry.Importance == 0 {
					break
				}
				logger.Info("importance",
					zap.String("node", model.Universe.Format(entry.Node)),
					zap.Float64("value", entry.Importance))
			}

			if err := saveModel(cmd.Context(), model); err != nil {
				return errors.Wrap(err, "grow")
			}
			logger.Info("saved model", zap.String("path", modelPath), zap.String("name", modelName))
			return nil
		},
	}
	addDataFlags(cmd)
	addModelFlags(cmd)
	cmd.Flags().StringVar(&configPath, "config", "", "YAML learner configuration")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	cmd.Flags().IntVar(&numImportances, "importances", 10, "number of node importances to log")
	return cmd
}
