package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func statusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status [subscriptionId]",
		Short: "Show a subscription's billing status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := flags.client().SubscriptionStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status:               %s\n", status.Status)
			if status.CurrentPeriodEnd > 0 {
				fmt.Fprintf(out, "Current period end:   %s\n", time.Unix(status.CurrentPeriodEnd, 0).UTC().Format(time.RFC3339))
			}
			fmt.Fprintf(out, "Cancel at period end: %t\n", status.CancelAtPeriodEnd)
			return nil
		},
	}
}

func locationCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "location",
		Short: "Show the location the server resolves for this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			geo, err := flags.client().GeoInfo(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(geo)
		},
	}
}
