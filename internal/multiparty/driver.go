package multiparty

// AdvanceSession performs one scheduling pass over sess: it folds peer
// observations into every step, recomputes readiness, resolves any
// barrier whose dependencies are satisfied, and returns the list of
// locally-owned steps now Ready to run (spec §4.4 "Step derivation" +
// "Observation" combined into the steady-state scheduling loop a
// supervising goroutine calls on a timer or on file-watch events).
func AdvanceSession(sess *Session) []*Step {
	ObserveSession(sess)

	var ready []*Step
	for _, s := range sess.Steps {
		// ObserveSession has just re-derived readiness, so a barrier is
		// Ready here exactly when its dependencies are satisfied.
		if s.IsBarrier && s.Status == StepReady {
			if err := CompleteBarrier(s, sess.Steps); err == nil && s.Status == StepCompleted {
				_ = WriteProgressRecord(sess.SessionDir, sess.LocalRole, s.ID, StepCompleted)
			}
		}
	}

	// Re-derive readiness once more now that any barriers this pass
	// resolved may unblock their dependents.
	for _, s := range sess.Steps {
		RecomputeReadiness(s, sess.Steps)
		if s.MyAction && s.Status == StepReady {
			ready = append(ready, s)
		}
	}
	return ready
}
