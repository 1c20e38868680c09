package flux

import (
	"errors"
	"strings"
	"time"

	exprlang "github.com/expr-lang/expr"
	exprparser "github.com/expr-lang/expr/parser"
	exprtypes "github.com/expr-lang/expr/types"
	exprvm "github.com/expr-lang/expr/vm"
)

const exprEngine = "expr"

var errRuleWithoutEvaluator = errors.New("compiled rule missing evaluator")

// ExprEvaluatorOption configures NewExprEvaluator.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache reuses compiled programs across evaluations.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry exposes a copy of registry to expressions.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry != nil {
			e.registry = registry.Clone()
		}
	}
}

// exprEvaluator is the runtime default. Programs are compiled per set of
// owner field names: fields are declared untyped and shadow expr builtins of
// the same name, so a field called count or len reads as the field. Unknown
// identifiers evaluate to nil.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator builds an Evaluator on github.com/expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *exprEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	return (&exprCompiledRule{evaluator: e, expression: expression}).Evaluate(ctx)
}

// Compile checks the syntax of expression. Type checking happens on the
// first evaluation, once the owner's field names are known.
func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	if _, err := exprparser.Parse(expression); err != nil {
		return nil, wrapEvaluationError(exprEngine, expression, EvalContext{}, err)
	}
	return &exprCompiledRule{evaluator: e, expression: expression}, nil
}

func (e *exprEvaluator) program(expression string, fields []string) (*exprvm.Program, error) {
	key := exprEngine + ":" + strings.Join(fields, ",") + ":" + expression
	if program, ok := cachedProgram[*exprvm.Program](e.cache, key); ok {
		return program, nil
	}

	env := exprtypes.Map{
		"now":    exprtypes.TypeOf(time.Time{}),
		"args":   exprtypes.Any,
		"ctx":    exprtypes.Any,
		"fields": exprtypes.Any,
	}
	options := []exprlang.Option{exprlang.AllowUndefinedVariables()}
	for _, name := range fields {
		env[name] = exprtypes.Any
		options = append(options, exprlang.DisableBuiltin(name))
	}
	if e.registry != nil {
		env["call"] = exprtypes.TypeOf(e.registry.Call)
		for _, name := range e.registry.Names() {
			delete(env, name)
			options = append(options, exprlang.Function(name, e.registry.bound(name)))
		}
	}
	options = append([]exprlang.Option{exprlang.Env(env)}, options...)

	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError(exprEngine, expression, EvalContext{}, err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

type exprCompiledRule struct {
	evaluator  *exprEvaluator
	expression string
}

func (r *exprCompiledRule) Evaluate(ctx EvalContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError(exprEngine, errRuleWithoutEvaluator)
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	program, err := r.evaluator.program(r.expression, ctx.fieldNames())
	if err != nil {
		return nil, wrapEvaluationError(exprEngine, r.expression, ctx, err)
	}
	result, err := exprlang.Run(program, ctx.variables(r.evaluator.registry))
	if err != nil {
		return nil, wrapEvaluationError(exprEngine, r.expression, ctx, err)
	}
	return result, nil
}
