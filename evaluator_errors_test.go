package flux

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "kind == 'A'", EvalContext{Model: "Hub", PropName: "current"}, base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "kind == 'A'" {
		t.Fatalf("unexpected engine metadata %+v", evalErr)
	}
	if evalErr.Model != "Hub" || evalErr.Prop != "current" {
		t.Fatalf("unexpected state metadata %+v", evalErr)
	}
	if !errors.Is(err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
	want := `flux: expr evaluator expr="kind == 'A'" model=Hub prop=current: boom`
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{Engine: "expr", Err: base}

	err := wrapEvaluationError("cel", "rule", EvalContext{Model: "Counter"}, existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" || existing.Model != "Counter" {
		t.Fatalf("missing metadata should be filled, got %+v", existing)
	}
	if existing.Prop != "" || strings.Contains(err.Error(), "prop=") {
		t.Fatalf("expected no prop in %q", err.Error())
	}
}

func TestEvaluationErrorWithoutModel(t *testing.T) {
	err := wrapEvaluationError("cel", "x", EvalContext{}, errors.New("parse"))
	if !strings.Contains(err.Error(), "model=unknown") {
		t.Fatalf("expected unknown model label, got %q", err.Error())
	}
}

func TestWrapEvaluatorErrorKeepsPrefixedErrors(t *testing.T) {
	if got := wrapEvaluatorError("expr", ErrEmptyExpression); got != ErrEmptyExpression {
		t.Fatalf("expected prefixed error to pass through, got %v", got)
	}
	got := wrapEvaluatorError("cel", errors.New("parse"))
	if got == nil || got.Error() != "flux: cel evaluator: parse" {
		t.Fatalf("unexpected wrapped error %v", got)
	}
	if wrapEvaluatorError("expr", nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
}
