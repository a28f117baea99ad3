package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"murmur/internal/permission"
)

func newConsentCommand() *cobra.Command {
	consentCmd := &cobra.Command{
		Use:         "consent",
		Short:       "Inspect or change the stored speech recognition permission",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}

	consentCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := permission.NewConsentStore("")
			status, decidedAt, err := store.Load()
			if err != nil {
				return err
			}
			authorizer := permission.NewLocalAuthorizer(store, false)
			effective, err := authorizer.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Consent file: %s\n", store.Path())
			fmt.Fprintf(out, "Stored: %s\n", status)
			if !decidedAt.IsZero() {
				fmt.Fprintf(out, "Decided: %s\n", decidedAt.Local().Format(time.RFC3339))
			}
			if effective != status {
				fmt.Fprintf(out, "Effective: %s (%s=1)\n", effective, permission.RestrictedEnv)
			}
			return nil
		},
	})
	consentCmd.AddCommand(newConsentDecisionCommand("grant", "Allow speech recognition without prompting", permission.StatusAuthorized))
	consentCmd.AddCommand(newConsentDecisionCommand("deny", "Refuse speech recognition", permission.StatusDenied))
	consentCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Forget the stored decision so murmur asks again",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := permission.NewConsentStore("")
			if err := store.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Speech recognition consent reset")
			return nil
		},
	})

	return consentCmd
}

func newConsentDecisionCommand(use, short string, status permission.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := permission.NewConsentStore("")
			if err := store.Save(status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Speech recognition consent: %s\n", status)
			return nil
		},
	}
}
