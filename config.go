package flux

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-fluxmodels/internal/merge"
	"github.com/goliatone/go-fluxmodels/pkg/activity"
)

// Config is the declarative form of the runtime options.
//
//	evaluator: cel
//	program_cache_size: 512
//	log_level: debug
//	log_format: json
//	activity:
//	  enabled: true
//	  channel: ui
type Config struct {
	Evaluator        string           `yaml:"evaluator"`
	ProgramCacheSize int              `yaml:"program_cache_size"`
	LogLevel         string           `yaml:"log_level"`
	LogFormat        string           `yaml:"log_format"`
	Activity         *activity.Config `yaml:"activity"`

	// LogOutput receives log records when LogLevel is set. Defaults to stderr.
	LogOutput io.Writer `yaml:"-"`
}

// LoadConfig parses a YAML document.
func LoadConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("flux: parse config: %w", err)
	}
	return cfg, nil
}

// LoadConfigLayers parses YAML documents ordered from strongest to weakest
// and merges them key by key, so an override file only needs the settings it
// changes.
func LoadConfigLayers(docs ...[]byte) (Config, error) {
	layers := make([]map[string]any, 0, len(docs))
	for i, data := range docs {
		var layer map[string]any
		if err := yaml.Unmarshal(data, &layer); err != nil {
			return Config{}, fmt.Errorf("flux: parse config layer %d: %w", i, err)
		}
		layers = append(layers, layer)
	}
	merged, err := yaml.Marshal(merge.Layers(layers...))
	if err != nil {
		return Config{}, fmt.Errorf("flux: merge config layers: %w", err)
	}
	return LoadConfig(merged)
}

// LoadConfigFile reads and parses the YAML file at path.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("flux: read config: %w", err)
	}
	return LoadConfig(data)
}

// Options converts the configuration into runtime options.
func (c Config) Options() ([]Option, error) {
	var opts []Option

	size := c.ProgramCacheSize
	if size < 0 {
		return nil, fmt.Errorf("flux: program_cache_size must not be negative, got %d", size)
	}
	if size == 0 {
		size = DefaultProgramCacheSize
	}
	cache, err := NewLRUProgramCache(size)
	if err != nil {
		return nil, err
	}

	switch engine := strings.ToLower(strings.TrimSpace(c.Evaluator)); engine {
	case "", "expr":
		opts = append(opts, WithProgramCache(cache))
	case "cel":
		opts = append(opts, WithEvaluator(NewCELEvaluator(CELWithProgramCache(cache))))
	case "js":
		if !JSEvaluatorAvailable() {
			return nil, fmt.Errorf("flux: js evaluator requires the js_eval build tag")
		}
		opts = append(opts, WithEvaluator(NewJSEvaluator(JSWithProgramCache(cache))))
	default:
		return nil, fmt.Errorf("flux: unknown evaluator %q", c.Evaluator)
	}

	if c.LogLevel != "" {
		logger, err := c.logger()
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithLogger(logger))
	}

	if c.Activity != nil {
		opts = append(opts, WithActivityConfig(*c.Activity))
	}
	return opts, nil
}

func (c Config) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("flux: log_level: %w", err)
	}
	out := c.LogOutput
	if out == nil {
		out = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		return slog.New(slog.NewTextHandler(out, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(out, handlerOpts)), nil
	}
	return nil, fmt.Errorf("flux: unknown log_format %q", c.LogFormat)
}
