package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/luape/dataset"
	"github.com/unixpickle/luape/luape"
	"github.com/unixpickle/luape/modelstore"
	"go.uber.org/zap"
)

const version = "0.1.0"

var (
	verbose bool

	metadataPath string
	csvPath      string
	sqlitePath   string
	postgresDSN  string
	query        string

	modelPath string
	redisAddr string
	modelName string
)

func main() {
	root := &cobra.Command{
		Use:           "luape",
		Short:         "Grow and apply expression-tree models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log learner progress")

	root.AddCommand(growCommand(), predictCommand(), evalCommand(), &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("luape", version)
		},
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "luape:", err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	essentials.Must(err)
	return logger
}

func addDataFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&metadataPath, "metadata", "", "YAML file declaring the columns")
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file with one example per line")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "SQLite database to query")
	cmd.Flags().StringVar(&postgresDSN, "postgres", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&query, "query", "", "SQL query returning one example per row")
	cmd.MarkFlagRequired("metadata")
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&modelPath, "model", "", "model file")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address storing models")
	cmd.Flags().StringVar(&modelName, "name", "", "model name in redis")
}

func readDataset(ctx context.Context) (*dataset.Metadata, *luape.Dataset, error) {
	md, err := dataset.ReadMetadataFile(metadataPath)
	if err != nil {
		return nil, nil, err
	}
	if csvPath != "" {
		d, err := dataset.ReadCSVFile(csvPath, md)
		return md, d, err
	}
	if query == "" {
		return nil, nil, errors.New("one of --csv or --query is required")
	}
	var open func(string) (*sql.DB, error)
	var source string
	if sqlitePath != "" {
		open, source = dataset.OpenSQLite, sqlitePath
	} else if postgresDSN != "" {
		open, source = dataset.OpenPostgres, postgresDSN
	} else {
		return nil, nil, errors.New("--query needs --sqlite or --postgres")
	}
	db, err := open(source)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()
	d, err := dataset.ReadSQL(ctx, db, query, md)
	return md, d, err
}

func modelStore() (modelstore.Store, func(), error) {
	if redisAddr == "" {
		return nil, nil, errors.New("--redis is required with --name")
	}
	client, err := modelstore.DialRedis(redisAddr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		return nil, nil, err
	}
	return modelstore.NewRedisStore(client, "luape"), func() { client.Close() }, nil
}

func saveModel(ctx context.Context, m *luape.Model) error {
	if modelName != "" {
		store, closeStore, err := modelStore()
		if err != nil {
			return err
		}
		defer closeStore()
		return modelstore.SaveModel(ctx, store, modelName, m)
	}
	if modelPath == "" {
		return errors.New("one of --model or --name is required")
	}
	return luape.Save(modelPath, m, luape.WriteModel)
}

func loadModel(ctx context.Context) (*luape.Model, error) {
	if modelName != "" {
		store, closeStore, err := modelStore()
		if err != nil {
			return nil, err
		}
		defer closeStore()
		return modelstore.LoadModel(ctx, store, modelName)
	}
	if modelPath == "" {
		return nil, errors.New("one of --model or --name is required")
	}
	return luape.Load(modelPath, luape.ReadModel)
}
