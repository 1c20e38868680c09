package flux

// jsEvaluatorConfig is shared by the goja build and the stub so options
// compile with or without the js_eval tag.
type jsEvaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// JSEvaluatorOption configures NewJSEvaluator.
type JSEvaluatorOption func(*jsEvaluatorConfig)

// JSWithProgramCache reuses compiled scripts across evaluations.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		cfg.cache = cache
	}
}

// JSWithFunctionRegistry exposes a copy of registry to scripts.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		if registry != nil {
			cfg.registry = registry.Clone()
		}
	}
}

func newJSEvaluatorConfig(opts []JSEvaluatorOption) jsEvaluatorConfig {
	var cfg jsEvaluatorConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// JSEvaluatorAvailable reports whether the binary was built with js_eval,
// which compiles in the goja engine.
func JSEvaluatorAvailable() bool {
	return jsEvaluatorAvailable()
}
