package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start, pause, and resume flow runs via the daemon",
	}
	cmd.AddCommand(newRunPingCmd())
	cmd.AddCommand(newRunStartCmd())
	cmd.AddCommand(newRunPauseCmd())
	cmd.AddCommand(newRunResumeCmd())
	cmd.AddCommand(newRunGetCmd())
	cmd.AddCommand(newRunListCmd())
	return cmd
}

// newRunPingCmd is a minimal liveness check against the daemon's bridge.
func newRunPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the daemon's command bridge is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := callBridge("bridge.ping", map[string]any{}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newRunStartCmd() *cobra.Command {
	var flowID, flowRoot, engineBinary, resultsDir string
	var concurrency int
	var resume bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: `Start a flow run (spec §4.3 "Start")`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"FlowID":          flowID,
				"FlowRoot":        flowRoot,
				"EngineBinary":    engineBinary,
				"ResultsDir":      resultsDir,
				"ConcurrencyHint": concurrency,
				"Resume":          resume,
			}
			var out map[string]any
			if err := callBridge("run.start", req, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&flowID, "flow-id", "", "flow identifier")
	cmd.Flags().StringVar(&flowRoot, "flow-root", "", "flow root directory")
	cmd.Flags().StringVar(&engineBinary, "engine", "", "workflow engine binary (default nextflow)")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "", "override results directory")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "concurrency hint")
	cmd.Flags().BoolVar(&resume, "resume", false, "pass the engine's resume flag")
	return cmd
}

func newRunPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <run-id>",
		Short: "Request a graceful stop of a running flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callBridge("run.pause", map[string]any{"run_id": args[0]}, nil)
		},
	}
}

func newRunResumeCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: `Resume a paused flow run (spec §4.3 "Resume")`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callBridge("run.resume", map[string]any{
				"run_id":            args[0],
				"force_remove_lock": force,
			}, nil)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "force-clear stale engine cache locks")
	return cmd
}

func newRunGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <run-id>",
		Short: "Show one run's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := callBridge("run.get", map[string]any{"run_id": args[0]}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newRunListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every run this daemon process is tracking",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []map[string]any
			if err := callBridge("run.list", map[string]any{}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
