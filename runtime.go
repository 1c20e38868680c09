package flux

import (
	"log/slog"

	"github.com/goliatone/go-fluxmodels/pkg/activity"
)

// Runtime is the explicit context shared by states created through it: the
// default store, logger, expression evaluator and activity emitter.
type Runtime struct {
	store           *Store
	logger          *slog.Logger
	evaluator       Evaluator
	evaluatorLogger EvaluatorLogger
	emitter         *activity.Emitter
	listeners       []Registration
}

// Option configures a Runtime.
type Option func(*runtimeConfig)

type runtimeConfig struct {
	store           *Store
	logger          *slog.Logger
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	evaluatorLogger EvaluatorLogger
	activityHooks   activity.Hooks
	activity        *activity.Config
}

func applyOptions(opts []Option) runtimeConfig {
	cfg := runtimeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// New builds a runtime. Without options it owns a fresh store, discards logs
// and evaluates expressions with expr-lang behind an LRU program cache.
func New(opts ...Option) *Runtime {
	cfg := applyOptions(opts)

	r := &Runtime{
		store:  cfg.store,
		logger: cfg.logger,
	}
	if r.store == nil {
		r.store = NewStore()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}

	r.evaluatorLogger = cfg.evaluatorLogger
	if r.evaluatorLogger == nil {
		r.evaluatorLogger = SlogEvaluatorLogger(r.logger)
	}

	r.evaluator = cfg.evaluator
	if r.evaluator == nil {
		cache := cfg.programCache
		if cache == nil {
			if lruCache, err := NewLRUProgramCache(DefaultProgramCacheSize); err == nil {
				cache = lruCache
			}
		}
		exprOpts := []ExprEvaluatorOption{ExprWithProgramCache(cache)}
		if cfg.functions != nil {
			exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.functions))
		}
		r.evaluator = NewExprEvaluator(exprOpts...)
	}

	activityCfg := activity.Config{Enabled: true}
	if cfg.activity != nil {
		activityCfg = *cfg.activity
	}
	r.emitter = activity.NewEmitter(cfg.activityHooks, activityCfg)
	r.listeners = r.activityListeners()
	return r
}

// DefaultStore returns the store used when no store is supplied.
func (r *Runtime) DefaultStore() *Store {
	return r.store
}

// Logger returns the runtime logger.
func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

// Evaluator returns the expression evaluator.
func (r *Runtime) Evaluator() Evaluator {
	return r.evaluator
}

// ActivityHooks returns a copy of the configured activity hooks.
func (r *Runtime) ActivityHooks() activity.Hooks {
	return r.emitter.Hooks()
}

// WithStore sets the default store.
func WithStore(store *Store) Option {
	return func(cfg *runtimeConfig) {
		cfg.store = store
	}
}

// WithLogger sets the structured logger used by the runtime.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *runtimeConfig) {
		cfg.logger = logger
	}
}

// WithEvaluator replaces the default expr evaluator. Program cache and
// function registry options only apply to the default evaluator.
func WithEvaluator(evaluator Evaluator) Option {
	return func(cfg *runtimeConfig) {
		cfg.evaluator = evaluator
	}
}

// WithActivityHooks attaches activity hooks. Hooks are cloned and nil entries
// dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *runtimeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig overrides the activity emission defaults. Activity is
// enabled by default whenever hooks are configured.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *runtimeConfig) {
		cfg.activity = &config
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
