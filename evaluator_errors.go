package flux

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyExpression is returned by every evaluator for a blank expression.
var ErrEmptyExpression = errors.New("flux: expression must not be empty")

// EvaluationError reports a failed expression together with the model and
// field it was evaluated for.
type EvaluationError struct {
	Engine string
	Expr   string
	Model  string
	Prop   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "flux: %s evaluator expr=%q model=%s", e.Engine, e.Expr, orUnknown(e.Model))
	if e.Prop != "" {
		fmt.Fprintf(&b, " prop=%s", e.Prop)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// wrapEvaluatorError prefixes engine failures that are not tied to a
// particular expression.
func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) || strings.HasPrefix(err.Error(), "flux:") {
		return err
	}
	return fmt.Errorf("flux: %s evaluator: %w", engine, err)
}

// wrapEvaluationError attaches expression metadata to err. An existing
// EvaluationError keeps the values it already carries.
func wrapEvaluationError(engine, expr string, ctx EvalContext, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{Engine: engine, Expr: expr, Model: ctx.Model, Prop: ctx.PropName, Err: err}
	}
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&evalErr.Engine, engine)
	fill(&evalErr.Expr, expr)
	fill(&evalErr.Model, ctx.Model)
	fill(&evalErr.Prop, ctx.PropName)
	return evalErr
}
