package luape

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// LearnerConfig gathers the knobs of every learner.
type LearnerConfig struct {
	MinExamplesToSplit          int `yaml:"min_examples_to_split"`
	MaxDepth                    int `yaml:"max_depth"`
	NumAttributeSamplesPerSplit int `yaml:"num_attribute_samples_per_split"`

	// MaxCacheSizeMB is the soft ceiling of each samples cache.
	MaxCacheSizeMB     float64 `yaml:"max_cache_size_mb"`
	MinRequestsToCache int     `yaml:"min_requests_to_cache"`

	Objective   string `yaml:"objective"`
	WeakLearner string `yaml:"weak_learner"`

	// BoostingIterations, when positive, trains a boosted ensemble.
	BoostingIterations int     `yaml:"boosting_iterations"`
	Shrinkage          float64 `yaml:"shrinkage"`

	// NumTrees, when above one, trains a forest.
	NumTrees       int     `yaml:"num_trees"`
	SampleFraction float64 `yaml:"sample_fraction"`

	Seed int64 `yaml:"seed"`
}

func DefaultLearnerConfig() *LearnerConfig {
	return &LearnerConfig{
		MinExamplesToSplit: 2,
		MaxCacheSizeMB:     512,
		MinRequestsToCache: DefaultMinRequestsToCache,
		Objective:          "regression",
		WeakLearner:        "exact",
		Shrinkage:          1,
		NumTrees:           1,
	}
}

// LoadLearnerConfig reads a YAML file over the default configuration.
func LoadLearnerConfig(path string) (*LearnerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load learner config")
	}
	cfg := DefaultLearnerConfig()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrap(err, "load learner config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "load learner config")
	}
	return cfg, nil
}

// Validate returns an error describing the first invalid setting.
func (c *LearnerConfig) Validate() error {
	switch {
	case c.MinExamplesToSplit < 0:
		return fmt.Errorf("min_examples_to_split must be non-negative, got %d", c.MinExamplesToSplit)
	case c.MaxDepth < 0:
		return fmt.Errorf("max_depth must be non-negative, got %d", c.MaxDepth)
	case c.NumAttributeSamplesPerSplit < 0:
		return fmt.Errorf("num_attribute_samples_per_split must be non-negative, got %d",
			c.NumAttributeSamplesPerSplit)
	case c.MaxCacheSizeMB <= 0:
		return fmt.Errorf("max_cache_size_mb must be positive, got %f", c.MaxCacheSizeMB)
	case c.MinRequestsToCache < 0:
		return fmt.Errorf("min_requests_to_cache must be non-negative, got %d", c.MinRequestsToCache)
	case c.BoostingIterations < 0:
		return fmt.Errorf("boosting_iterations must be non-negative, got %d", c.BoostingIterations)
	case c.NumTrees < 0:
		return fmt.Errorf("num_trees must be non-negative, got %d", c.NumTrees)
	case c.SampleFraction < 0 || c.SampleFraction > 1:
		return fmt.Errorf("sample_fraction must be in [0, 1], got %f", c.SampleFraction)
	case c.BoostingIterations > 0 && c.NumTrees > 1:
		return errors.New("boosting and forests cannot be combined")
	}
	if _, ok := NewObjective(c.Objective); !ok {
		return fmt.Errorf("unknown objective: %s", c.Objective)
	}
	if _, ok := NewWeakLearner(c.WeakLearner, c.NumAttributeSamplesPerSplit); !ok {
		return fmt.Errorf("unknown weak learner: %s", c.WeakLearner)
	}
	if c.BoostingIterations > 0 && c.Objective != "regression" {
		return errors.New("boosting requires the regression objective")
	}
	return nil
}

// MaxCacheSize returns the cache ceiling in bytes.
func (c *LearnerConfig) MaxCacheSize() int64 {
	return int64(c.MaxCacheSizeMB * (1 << 20))
}

// NewTreeLearner creates the configured tree learner.
func (c *LearnerConfig) NewTreeLearner(metrics *LearnerMetrics) *TreeLearner {
	weak, ok := NewWeakLearner(c.WeakLearner, c.NumAttributeSamplesPerSplit)
	if !ok {
		panic("unknown weak learner: " + c.WeakLearner)
	}
	return &TreeLearner{
		WeakLearner:        weak,
		MinExamplesToSplit: c.MinExamplesToSplit,
		MaxDepth:           c.MaxDepth,
		Metrics:            metrics,
	}
}

// NewObjective creates the configured objective.
func (c *LearnerConfig) NewObjective() LearningObjective {
	obj, ok := NewObjective(c.Objective)
	if !ok {
		panic("unknown objective: " + c.Objective)
	}
	return obj
}
