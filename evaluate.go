package flux

import "time"

// Evaluate runs expr with the runtime evaluator and logs the attempt.
func (r *Runtime) Evaluate(ctx EvalContext, expr string) (any, error) {
	if expr == "" {
		return nil, ErrEmptyExpression
	}
	if r.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	engine := evaluatorEngineName(r.evaluator)
	start := time.Now()
	value, evalErr := r.evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx, evalErr)
	r.evaluatorLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Model:    orUnknown(ctx.Model),
		Prop:     ctx.PropName,
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

// EvaluateOn runs expr against the raw field values of target's state.
// Reading raw values never resolves injections nor marks proxy fields as
// observed.
func (r *Runtime) EvaluateOn(target Accessor, expr string) (any, error) {
	ctx, err := evalContextOf(target)
	if err != nil {
		return nil, err
	}
	return r.Evaluate(ctx, expr)
}

func evalContextOf(target Accessor) (EvalContext, error) {
	manager := Instance(target)
	if manager == nil {
		return EvalContext{}, ErrNotState
	}
	ctx := EvalContext{
		Fields: manager.state.Raw(),
		Model:  manager.model.Name(),
	}
	if _, ok := manager.key.(defaultKey); !ok {
		ctx.Key = manager.key
	}
	return ctx, nil
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	}
	if name := jsEngineName(e); name != "" {
		return name
	}
	return "custom"
}
