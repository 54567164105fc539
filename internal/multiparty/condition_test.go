package multiparty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateBarrierCondition_EmptyExpressionIsAlwaysSatisfied(t *testing.T) {
	ok, err := EvaluateBarrierCondition("", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateBarrierCondition_MultipleStepReferences(t *testing.T) {
	steps := []*Step{
		{ID: "a", Status: StepCompleted},
		{ID: "b", Status: StepCompleted},
	}
	ok, err := EvaluateBarrierCondition(`a == "Completed" && b == "Completed"`, steps)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateBarrierCondition_PartiallySatisfied(t *testing.T) {
	steps := []*Step{
		{ID: "a", Status: StepCompleted},
		{ID: "b", Status: StepRunning},
	}
	ok, err := EvaluateBarrierCondition(`a == "Completed" && b == "Completed"`, steps)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateBarrierCondition_InvalidExpressionErrors(t *testing.T) {
	_, err := EvaluateBarrierCondition(`this is not valid expr (((`, nil)
	require.Error(t, err)
}

func TestEvaluateBarrierCondition_NonBooleanResultErrors(t *testing.T) {
	steps := []*Step{{ID: "a", Status: StepCompleted}}
	_, err := EvaluateBarrierCondition(`a`, steps)
	require.Error(t, err)
}
