package multiparty

import "strings"

// FlowSpec is the parsed shape of a multiparty flow's spec.yaml (spec §4.4
// "Step derivation"). Datasites.Groups holds the explicit group include
// lists; Steps holds the DAG in declaration order.
type FlowSpec struct {
	Datasites DatasitesSpec `yaml:"datasites"`
	Steps     []StepSpec    `yaml:"steps"`
}

// DatasitesSpec carries the explicit group definitions referenced by
// steps' targets/share_to lists.
type DatasitesSpec struct {
	Groups map[string][]string `yaml:"groups"`
}

// StepSpec is one step as authored in a flow's spec.yaml, before group
// tokens are resolved to concrete emails.
type StepSpec struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Kind           string   `yaml:"kind"` // "generate" | "aggregate" | "barrier" | "uses"
	Uses           string   `yaml:"uses,omitempty"`
	DependsOn      []string `yaml:"depends_on,omitempty"`
	Targets        []string `yaml:"targets,omitempty"`
	IsBarrier      bool     `yaml:"is_barrier,omitempty"`
	BarrierWaitFor string   `yaml:"barrier_wait_for,omitempty"`
	SharesOutput   bool     `yaml:"shares_output,omitempty"`
	ShareTo        []string `yaml:"share_to,omitempty"`
	AutoRun        bool     `yaml:"auto_run,omitempty"`
}

// DeriveSteps resolves every step's group tokens against participants and
// computes each step's target emails, share-to emails, whether the local
// participant owns the step ("my_action"), and its initial status
// (spec §4.4 "Step derivation").
func DeriveSteps(spec FlowSpec, participants []Participant, localEmail string) []*Step {
	explicit := make([]ExplicitGroup, 0, len(spec.Datasites.Groups))
	for name, tokens := range spec.Datasites.Groups {
		explicit = append(explicit, ExplicitGroup{Name: name, Include: tokens})
	}
	groups := ResolveGroups(participants, explicit)

	steps := make([]*Step, 0, len(spec.Steps))
	for _, ss := range spec.Steps {
		targetEmails := resolveGroupTargets(ss.Targets, groups)
		shareTo := resolveGroupTargets(ss.ShareTo, groups)
		isBarrier := ss.IsBarrier || ss.Kind == "barrier"
		myAction := isBarrier || containsEmail(targetEmails, localEmail)

		steps = append(steps, &Step{
			ID:             ss.ID,
			Name:           ss.Name,
			DependsOn:      ss.DependsOn,
			Targets:        ss.Targets,
			TargetEmails:   targetEmails,
			IsBarrier:      isBarrier,
			BarrierWaitFor: ss.BarrierWaitFor,
			SharesOutput:   ss.SharesOutput,
			ShareTo:        shareTo,
			MyAction:       myAction,
			AutoRun:        ss.AutoRun,
			Status:         initialStatus(ss, isBarrier, myAction),
			Kind:           ss.Kind,
			Uses:           ss.Uses,
		})
	}
	return steps
}

func resolveGroupTargets(tokens []string, groups map[string][]string) []string {
	var out []string
	for _, t := range tokens {
		if strings.Contains(t, "@") {
			out = append(out, t)
			continue
		}
		if members, ok := groups[t]; ok {
			out = append(out, members...)
		}
	}
	return dedupe(out)
}

func initialStatus(ss StepSpec, isBarrier, myAction bool) StepStatus {
	if isBarrier {
		return StepWaitingForInputs
	}
	if !myAction {
		return StepPending
	}
	if len(ss.DependsOn) == 0 {
		return StepReady
	}
	return StepWaitingForInputs
}

func containsEmail(list []string, email string) bool {
	for _, e := range list {
		if e == email {
			return true
		}
	}
	return false
}

func findStep(steps []*Step, id string) *Step {
	for _, s := range steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// isSatisfied reports whether dep has produced output a dependent step can
// consume: either it finished locally (Completed) or its output has
// already been shared to us (Shared).
func isSatisfied(dep *Step) bool {
	return dep.Status == StepCompleted || dep.Status == StepShared
}

// RecomputeReadiness re-evaluates s's readiness against steps, the full
// step set it belongs to. Only steps the local participant owns move
// between WaitingForInputs and Ready; a non-owned step stays Pending until
// an external observation promotes it (spec §4.4 "Observation").
func RecomputeReadiness(s *Step, steps []*Step) {
	if !s.MyAction {
		return
	}
	if s.Status != StepPending && s.Status != StepWaitingForInputs {
		return
	}

	for _, depID := range s.DependsOn {
		dep := findStep(steps, depID)
		if dep == nil || !isSatisfied(dep) {
			s.Status = StepWaitingForInputs
			return
		}
	}
	s.Status = StepReady
}

// Start transitions a Ready step into Running.
func Start(s *Step) error {
	if s.Status != StepReady {
		return errState("multiparty.Start", "step "+s.ID+" is not ready")
	}
	s.Status = StepRunning
	return nil
}

// Complete transitions a Running step into Completed.
func Complete(s *Step) error {
	if s.Status != StepRunning {
		return errState("multiparty.Complete", "step "+s.ID+" is not running")
	}
	s.Status = StepCompleted
	return nil
}

// Fail unconditionally moves s to Failed; any in-flight status can fail.
func Fail(s *Step) {
	s.Status = StepFailed
}

// CompleteBarrier resolves a barrier step directly from WaitingForInputs/
// Ready to Completed: barriers synchronize, they never run a process of
// their own. When the step declares a barrier_wait_for expression, it is
// evaluated against every step's current status first; an unmet
// condition leaves the barrier in WaitingForInputs.
func CompleteBarrier(s *Step, allSteps []*Step) error {
	if !s.IsBarrier {
		return errValidation("multiparty.CompleteBarrier", "step "+s.ID+" is not a barrier")
	}
	if s.Status != StepWaitingForInputs && s.Status != StepReady {
		return errState("multiparty.CompleteBarrier", "step "+s.ID+" is not waiting")
	}

	satisfied, err := EvaluateBarrierCondition(s.BarrierWaitFor, allSteps)
	if err != nil {
		return err
	}
	if !satisfied {
		s.Status = StepWaitingForInputs
		return nil
	}

	s.Status = StepCompleted
	return nil
}

// BeginShare transitions a Completed step that shares its output into
// Sharing, ahead of the permission document being written.
func BeginShare(s *Step) error {
	if s.Status != StepCompleted {
		return errState("multiparty.BeginShare", "step "+s.ID+" is not completed")
	}
	if !s.SharesOutput {
		return errValidation("multiparty.BeginShare", "step "+s.ID+" does not share output")
	}
	s.Status = StepSharing
	return nil
}

// FinishShare transitions a Sharing step into Shared once the permission
// document and progress record have both been written.
func FinishShare(s *Step) error {
	if s.Status != StepSharing {
		return errState("multiparty.FinishShare", "step "+s.ID+" is not sharing")
	}
	s.Status = StepShared
	return nil
}

// FoldStatus folds an observed status into current using the fixed rank
// order (spec §4.4 "Observation"): higher-ranked statuses always win,
// regardless of arrival order, so that out-of-order progress records from
// peers never regress a step's apparent state.
func FoldStatus(current, observed StepStatus) StepStatus {
	if statusRank[observed] > statusRank[current] {
		return observed
	}
	return current
}

// NormalizeEngineStatus maps the vocabulary an external workflow engine or
// peer might report onto the fixed StepStatus set.
func NormalizeEngineStatus(raw string) StepStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "complete", "completed", "done", "success", "succeeded":
		return StepCompleted
	case "in_progress", "in-progress", "running":
		return StepRunning
	case "failed", "failure", "error":
		return StepFailed
	case "shared":
		return StepShared
	case "sharing":
		return StepSharing
	case "ready":
		return StepReady
	case "waiting", "waiting_for_inputs", "waitingforinputs":
		return StepWaitingForInputs
	case "pending", "":
		return StepPending
	default:
		return StepPending
	}
}
