package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openmined/biovault-desktop/internal/profile"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage BioVault profiles",
	}
	cmd.AddCommand(newProfileListCmd())
	cmd.AddCommand(newProfileCreateCmd())
	cmd.AddCommand(newProfileSwitchCmd())
	return cmd
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known profiles and the boot state",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := profile.Open()
			if err != nil {
				return err
			}
			state := registry.BootState()
			data, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func newProfileCreateCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "create <home>",
		Short: "Create a new profile rooted at <home>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := profile.Open()
			if err != nil {
				return err
			}
			var emailPtr *string
			if email != "" {
				emailPtr = &email
			}
			p, err := registry.Create(args[0], emailPtr)
			if err != nil {
				return err
			}
			fmt.Printf("created profile %s at %s\n", p.ID, p.Home)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email to associate with the profile")
	return cmd
}

func newProfileSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <selector>",
		Short: "Switch the active profile in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := profile.Open()
			if err != nil {
				return err
			}
			p, err := registry.Switch(args[0], 0, profile.SwitchHooks{})
			if err != nil {
				return err
			}
			fmt.Printf("switched to profile %s (%s)\n", p.ID, p.Home)
			return nil
		},
	}
}
