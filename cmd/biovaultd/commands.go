package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/openmined/biovault-desktop/internal/bridge"
	"github.com/openmined/biovault-desktop/internal/flowrun"
	"github.com/openmined/biovault-desktop/internal/multiparty"
	"github.com/openmined/biovault-desktop/internal/profile"
	"github.com/openmined/biovault-desktop/internal/store"
)

// registerCommands publishes the bridge's built-in command catalogue: the
// C1 profile surface, the C3 flow-run surface, and the C4 multiparty
// surface, each following the same decode-params/call-component/return
// shape (spec §4.5, §6 "Command bridge wire format").
func registerCommands(reg *bridge.Registry, registry *profile.Registry, db *store.Store, sup *flowrun.Supervisor, mpm *multiparty.Manager, logger *slog.Logger) {
	registerProfileCommands(reg, registry)
	registerFlowRunCommands(reg, sup)
	registerMultipartyCommands(reg, mpm, registry)

	reg.Register("bridge.ping", bridge.CommandFlags{ReadOnly: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		return map[string]string{"status": "ok"}, nil
	})
}

func registerProfileCommands(reg *bridge.Registry, registry *profile.Registry) {
	reg.Register("profile.list", bridge.CommandFlags{ReadOnly: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		return registry.BootState(), nil
	})

	reg.Register("profile.current", bridge.CommandFlags{ReadOnly: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		return registry.Current(), nil
	})

	reg.Register("profile.create", bridge.CommandFlags{Dangerous: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			Home  string  `json:"home"`
			Email *string `json:"email,omitempty"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return registry.Create(req.Home, req.Email)
	})

	reg.Register("profile.select", bridge.CommandFlags{LongRunning: true, Dangerous: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			Selector string `json:"selector"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return registry.Select(req.Selector, 0)
	})

	reg.Register("profile.switch", bridge.CommandFlags{LongRunning: true, Dangerous: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			Selector string `json:"selector"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return registry.Switch(req.Selector, 0, profile.SwitchHooks{})
	})

	reg.Register("profile.move_home", bridge.CommandFlags{Dangerous: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			ProfileID string `json:"profile_id"`
			NewHome   string `json:"new_home"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return registry.MoveHome(req.ProfileID, req.NewHome)
	})

	reg.Register("profile.delete", bridge.CommandFlags{Dangerous: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			ProfileID  string `json:"profile_id"`
			DeleteHome bool   `json:"delete_home"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return nil, registry.Delete(req.ProfileID, req.DeleteHome)
	})

	reg.Register("profile.lookup_by_email", bridge.CommandFlags{ReadOnly: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return registry.LookupByEmail(req.Email)
	})
}

func registerFlowRunCommands(reg *bridge.Registry, sup *flowrun.Supervisor) {
	reg.Register("run.start", bridge.CommandFlags{LongRunning: true, EmitsEvents: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req flowrun.StartRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return sup.Start(ctx, req)
	})

	reg.Register("run.pause", bridge.CommandFlags{Dangerous: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			RunID string `json:"run_id"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return nil, sup.Pause(req.RunID)
	})

	reg.Register("run.resume", bridge.CommandFlags{LongRunning: true, EmitsEvents: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			RunID            string `json:"run_id"`
			ForceRemoveLocks bool   `json:"force_remove_lock"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return nil, sup.Resume(ctx, req.RunID, req.ForceRemoveLocks)
	})

	reg.Register("run.get", bridge.CommandFlags{ReadOnly: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			RunID string `json:"run_id"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return sup.Get(req.RunID)
	})

	reg.Register("run.list", bridge.CommandFlags{ReadOnly: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		return sup.List(), nil
	})
}

func registerMultipartyCommands(reg *bridge.Registry, mpm *multiparty.Manager, registry *profile.Registry) {
	reg.Register("multiparty.create_session", bridge.CommandFlags{Dangerous: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			Flow         string                   `json:"flow"`
			Spec         multiparty.FlowSpec       `json:"spec"`
			LocalEmail   string                    `json:"local_email"`
			LocalRole    string                    `json:"local_role"`
			Participants []multiparty.Participant `json:"participants"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		home := currentHome(registry)
		return mpm.CreateSession(home, req.Flow, req.Spec, req.LocalEmail, req.LocalRole, req.Participants)
	})

	reg.Register("multiparty.join_session", bridge.CommandFlags{Dangerous: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			OwnerEmail string `json:"owner_email"`
			Flow       string `json:"flow"`
			SessionID  string `json:"session_id"`
			LocalEmail string `json:"local_email"`
			LocalRole  string `json:"local_role"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		home := currentHome(registry)
		return mpm.JoinSession(home, req.OwnerEmail, req.Flow, req.SessionID, req.LocalEmail, req.LocalRole)
	})

	reg.Register("multiparty.get_session", bridge.CommandFlags{ReadOnly: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			SessionID string `json:"session_id"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return mpm.Get(req.SessionID)
	})

	reg.Register("multiparty.list_sessions", bridge.CommandFlags{ReadOnly: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		return mpm.List(), nil
	})

	reg.Register("multiparty.advance", bridge.CommandFlags{LongRunning: true, EmitsEvents: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			SessionID string `json:"session_id"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return mpm.Advance(ctx, req.SessionID)
	})

	reg.Register("multiparty.run_step", bridge.CommandFlags{LongRunning: true, EmitsEvents: true}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			SessionID string `json:"session_id"`
			StepID    string `json:"step_id"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return mpm.RunStep(ctx, req.SessionID, req.StepID)
	})

	reg.Register("multiparty.share_step_outputs", bridge.CommandFlags{}, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req struct {
			SessionID string `json:"session_id"`
			StepID    string `json:"step_id"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return mpm.ShareStep(req.SessionID, req.StepID)
	})
}

func currentHome(registry *profile.Registry) string {
	if p := registry.Current(); p != nil {
		return p.Home
	}
	return ""
}
