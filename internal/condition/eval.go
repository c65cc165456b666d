// Package condition evaluates the restricted boolean expressions carried
// by condition nodes against a run payload.
package condition

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// Evaluate compiles and runs an expression against the payload and
// coerces the result to a boolean. It fails closed: a malformed
// expression or a runtime failure (e.g. a missing field) yields false
// together with the error, never a panic into the engine's control flow.
// An empty expression is true, so an unconfigured condition passes
// everything through its true port.
func Evaluate(expression string, payload map[string]any) (bool, error) {
	if expression == "" {
		return true, nil
	}

	env := make(map[string]any, len(payload))
	for k, v := range payload {
		env[k] = v
	}

	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		// Retry without the bool constraint: "tweets" alone is a valid
		// truthiness check even though it is not typed bool.
		program, err = expr.Compile(expression, expr.Env(env))
		if err != nil {
			return false, fmt.Errorf("compile condition %q: %w", expression, err)
		}
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate condition %q: %w", expression, err)
	}

	return isTruthy(result), nil
}

// isTruthy converts a value to a boolean.
func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case []any:
		return len(val) != 0
	case map[string]any:
		return len(val) != 0
	default:
		return true
	}
}
