package flux

import (
	"context"
	"log/slog"
	"time"
)

// EvaluatorLogEvent describes one evaluation. Prop is set when the
// expression resolved an injected field.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Model    string
	Prop     string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// SlogEvaluatorLogger writes evaluation events to logger: failures at warn
// level, successes at debug level.
func SlogEvaluatorLogger(logger *slog.Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("engine", event.Engine),
			slog.String("expr", event.Expr),
			slog.String("model", event.Model),
			slog.Duration("duration", event.Duration),
		}
		if event.Prop != "" {
			attrs = append(attrs, slog.String("prop", event.Prop))
		}
		if event.Err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.Any("error", event.Err))
		}
		logger.LogAttrs(context.Background(), level, "flux: evaluation", attrs...)
	})
}

// WithEvaluatorLogger attaches an evaluator logger to the runtime. By default
// evaluations are logged through the runtime logger.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *runtimeConfig) {
		if logger == nil {
			cfg.evaluatorLogger = noopEvaluatorLogger{}
			return
		}
		cfg.evaluatorLogger = logger
	}
}
