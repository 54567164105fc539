package multiparty

import (
	"github.com/expr-lang/expr"
)

// EvaluateBarrierCondition evaluates a barrier step's barrier_wait_for
// expression against the current status of every step in the session,
// e.g. "collect_a == \"Completed\" && collect_b == \"Completed\"". An
// empty expression falls back to "every dependency satisfied," which is
// the common case DependsOn alone already covers.
func EvaluateBarrierCondition(expression string, steps []*Step) (bool, error) {
	if expression == "" {
		return true, nil
	}

	env := make(map[string]any, len(steps))
	for _, s := range steps {
		env[s.ID] = string(s.Status)
	}

	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, errValidation("multiparty.EvaluateBarrierCondition", "invalid barrier_wait_for expression: "+err.Error())
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false, errExternal("multiparty.EvaluateBarrierCondition", "evaluating barrier_wait_for: "+err.Error())
	}
	result, ok := out.(bool)
	if !ok {
		return false, errValidation("multiparty.EvaluateBarrierCondition", "barrier_wait_for must evaluate to a boolean")
	}
	return result, nil
}
