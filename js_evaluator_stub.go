//go:build !js_eval

package flux

// NewJSEvaluator is nil in builds without js_eval. Config rejects the "js"
// engine in that case.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool { return false }

func jsEngineName(Evaluator) string { return "" }
