package multiparty

import (
	"context"

	"github.com/openmined/biovault-desktop/internal/sharedtree"
)

// FlowStarter is the seam a "uses" step delegates to: C3's flow-run
// supervisor, invoked with the flow identified by Uses (spec §3 "Step"
// kind "uses": "delegates to a named single-party flow run").
type FlowStarter interface {
	StartFlow(ctx context.Context, flowID string, stepOutputDir string) error
}

// ExecuteStep runs step s to completion synchronously, dispatching on its
// Kind: the built-in "generate"/"aggregate" kinds, or a delegated "uses"
// flow via starter. Barrier steps are never executed here — they resolve
// through CompleteBarrier instead.
func ExecuteStep(ctx context.Context, sess *Session, s *Step, stepIndex int, starter FlowStarter) error {
	if err := Start(s); err != nil {
		return err
	}

	outputDir := sharedtree.StepOutputDir(sess.SessionDir, stepIndex, s.ID)

	var runErr error
	switch s.Kind {
	case "generate":
		runErr = RunGenerate(outputDir)
	case "aggregate":
		var contributorDirs []string
		for _, depID := range s.DependsOn {
			dep := findStep(sess.Steps, depID)
			if dep == nil {
				continue
			}
			contributorDirs = append(contributorDirs, dep.TargetEmails...)
		}
		contributorDirs = dedupe(contributorDirs)
		depIndex := stepIndex - 1
		if depIndex < 0 {
			depIndex = 0
		}
		_, runErr = RunAggregate(sess.SessionDir, depIndex, firstOr(s.DependsOn, s.ID), contributorDirs, outputDir)
	case "uses":
		if starter == nil {
			runErr = errValidation("multiparty.ExecuteStep", "step "+s.ID+" uses a flow but no FlowStarter was provided")
		} else {
			runErr = starter.StartFlow(ctx, s.Uses, outputDir)
		}
	default:
		runErr = errValidation("multiparty.ExecuteStep", "unknown step kind: "+s.Kind)
	}

	if runErr != nil {
		Fail(s)
		_ = WriteProgressRecord(sess.SessionDir, sess.LocalRole, s.ID, StepFailed)
		return runErr
	}

	if err := Complete(s); err != nil {
		return err
	}
	return WriteProgressRecord(sess.SessionDir, sess.LocalRole, s.ID, StepCompleted)
}

func firstOr(list []string, fallback string) string {
	if len(list) > 0 {
		return list[0]
	}
	return fallback
}
