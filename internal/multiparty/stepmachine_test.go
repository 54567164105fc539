package multiparty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldStatus_HigherRankWins(t *testing.T) {
	tests := []struct {
		name     string
		current  StepStatus
		observed StepStatus
		want     StepStatus
	}{
		{"running observed over pending", StepPending, StepRunning, StepRunning},
		{"pending observed after running does not regress", StepRunning, StepPending, StepRunning},
		{"failed always wins", StepShared, StepFailed, StepFailed},
		{"shared outranks completed", StepCompleted, StepShared, StepShared},
		{"equal rank keeps current", StepCompleted, StepCompleted, StepCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FoldStatus(tt.current, tt.observed))
		})
	}
}

func TestNormalizeEngineStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want StepStatus
	}{
		{"COMPLETED", StepCompleted},
		{"success", StepCompleted},
		{"in_progress", StepRunning},
		{"Running", StepRunning},
		{"FAILED", StepFailed},
		{"shared", StepShared},
		{"sharing", StepSharing},
		{"ready", StepReady},
		{"waiting_for_inputs", StepWaitingForInputs},
		{"", StepPending},
		{"some-unknown-value", StepPending},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEngineStatus(tt.raw))
		})
	}
}

func TestDeriveSteps_MyActionAndInitialStatus(t *testing.T) {
	spec := FlowSpec{
		Steps: []StepSpec{
			{ID: "gen", Name: "Generate", Kind: "generate", Targets: []string{"contributors"}},
			{ID: "agg", Name: "Aggregate", Kind: "aggregate", Targets: []string{"owner"}, DependsOn: []string{"gen"}},
		},
	}
	participants := []Participant{
		{Email: "owner@example.org", Role: "owner"},
		{Email: "c1@example.org", Role: "contributor1"},
	}

	asContributor := DeriveSteps(spec, participants, "c1@example.org")
	gen := findStep(asContributor, "gen")
	require.NotNil(t, gen)
	assert.True(t, gen.MyAction)
	assert.Equal(t, StepReady, gen.Status)

	agg := findStep(asContributor, "agg")
	require.NotNil(t, agg)
	assert.False(t, agg.MyAction)
	assert.Equal(t, StepPending, agg.Status)

	asOwner := DeriveSteps(spec, participants, "owner@example.org")
	aggOwner := findStep(asOwner, "agg")
	require.NotNil(t, aggOwner)
	assert.True(t, aggOwner.MyAction)
	assert.Equal(t, StepWaitingForInputs, aggOwner.Status)
}

func TestRecomputeReadiness_PromotesWhenDependencySatisfied(t *testing.T) {
	gen := &Step{ID: "gen", MyAction: true, Status: StepCompleted}
	agg := &Step{ID: "agg", MyAction: true, DependsOn: []string{"gen"}, Status: StepWaitingForInputs}
	steps := []*Step{gen, agg}

	RecomputeReadiness(agg, steps)
	assert.Equal(t, StepReady, agg.Status)
}

func TestRecomputeReadiness_StaysWaitingWhenDependencyUnsatisfied(t *testing.T) {
	gen := &Step{ID: "gen", MyAction: true, Status: StepRunning}
	agg := &Step{ID: "agg", MyAction: true, DependsOn: []string{"gen"}, Status: StepWaitingForInputs}
	steps := []*Step{gen, agg}

	RecomputeReadiness(agg, steps)
	assert.Equal(t, StepWaitingForInputs, agg.Status)
}

func TestRecomputeReadiness_IgnoresNonOwnedSteps(t *testing.T) {
	s := &Step{ID: "x", MyAction: false, Status: StepPending}
	RecomputeReadiness(s, []*Step{s})
	assert.Equal(t, StepPending, s.Status)
}

func TestStepLifecycleTransitions(t *testing.T) {
	s := &Step{ID: "gen", Status: StepReady}
	require.NoError(t, Start(s))
	assert.Equal(t, StepRunning, s.Status)

	require.NoError(t, Complete(s))
	assert.Equal(t, StepCompleted, s.Status)

	require.Error(t, Complete(s), "completing an already-completed step is invalid")
}

func TestFail_AlwaysSucceedsRegardlessOfCurrentStatus(t *testing.T) {
	for _, status := range []StepStatus{StepPending, StepReady, StepRunning, StepSharing} {
		s := &Step{ID: "x", Status: status}
		Fail(s)
		assert.Equal(t, StepFailed, s.Status)
	}
}

func TestCompleteBarrier_RequiresBarrierStep(t *testing.T) {
	s := &Step{ID: "x", IsBarrier: false, Status: StepWaitingForInputs}
	require.Error(t, CompleteBarrier(s, []*Step{s}))
}

func TestCompleteBarrier_UnsatisfiedConditionLeavesWaiting(t *testing.T) {
	dep := &Step{ID: "gen", Status: StepRunning}
	barrier := &Step{ID: "b", IsBarrier: true, Status: StepWaitingForInputs, BarrierWaitFor: `gen == "Completed"`}
	require.NoError(t, CompleteBarrier(barrier, []*Step{dep, barrier}))
	assert.Equal(t, StepWaitingForInputs, barrier.Status)
}

func TestCompleteBarrier_SatisfiedConditionCompletes(t *testing.T) {
	dep := &Step{ID: "gen", Status: StepCompleted}
	barrier := &Step{ID: "b", IsBarrier: true, Status: StepWaitingForInputs, BarrierWaitFor: `gen == "Completed"`}
	require.NoError(t, CompleteBarrier(barrier, []*Step{dep, barrier}))
	assert.Equal(t, StepCompleted, barrier.Status)
}

func TestBeginShareAndFinishShare(t *testing.T) {
	s := &Step{ID: "gen", Status: StepCompleted, SharesOutput: true}
	require.NoError(t, BeginShare(s))
	assert.Equal(t, StepSharing, s.Status)

	require.NoError(t, FinishShare(s))
	assert.Equal(t, StepShared, s.Status)
}

func TestBeginShare_RejectsStepThatDoesNotShare(t *testing.T) {
	s := &Step{ID: "gen", Status: StepCompleted, SharesOutput: false}
	require.Error(t, BeginShare(s))
}
