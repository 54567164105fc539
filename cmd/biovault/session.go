package main

import (
	"github.com/spf13/cobra"
)

// newSessionCmd is the multiparty-session client surface; a thin wrapper
// over the daemon's multiparty.* bridge commands (spec §4.4).
func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage multiparty sessions via the daemon",
	}
	cmd.AddCommand(newSessionGetCmd())
	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionAdvanceCmd())
	cmd.AddCommand(newSessionRunStepCmd())
	cmd.AddCommand(newSessionShareCmd())
	return cmd
}

func newSessionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <session-id>",
		Short: "Show one multiparty session's derived steps and status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := callBridge("multiparty.get_session", map[string]any{"session_id": args[0]}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every multiparty session this daemon process is tracking",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []map[string]any
			if err := callBridge("multiparty.list_sessions", map[string]any{}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newSessionAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance <session-id>",
		Short: "Run one scheduling pass: observe peers, resolve barriers, run ready auto-run steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := callBridge("multiparty.advance", map[string]any{"session_id": args[0]}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newSessionRunStepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-step <session-id> <step-id>",
		Short: "Explicitly run one locally-owned step regardless of auto_run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := callBridge("multiparty.run_step", map[string]any{"session_id": args[0], "step_id": args[1]}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newSessionShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share <session-id> <step-id>",
		Short: `Share a completed step's output (spec §4.4 "Sharing outputs")`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := callBridge("multiparty.share_step_outputs", map[string]any{"session_id": args[0], "step_id": args[1]}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}
