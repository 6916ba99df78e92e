package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xavierca1/pmp-enrollment/internal/enrollment"
	"github.com/xavierca1/pmp-enrollment/internal/entity"
)

// printNavigator "redirects" by printing the hosted checkout URL.
type printNavigator struct {
	out io.Writer
}

func (n printNavigator) Redirect(url string) error {
	_, err := fmt.Fprintf(n.out, "Checkout: %s\n", url)
	return err
}

func checkoutCmd(flags *globalFlags) *cobra.Command {
	var form enrollment.Form

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Register a lead and open a hosted checkout session",
		Long: `Runs the hosted-redirect branch of the enrollment flow:
detects the location, validates the form, saves the lead and prints
the processor's checkout URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			wf := enrollment.NewWorkflow(flags.client(), enrollment.Options{
				Navigator:   printNavigator{out: out},
				StepTimeout: flags.timeout,
				Logger:      flags.logger(cmd),
			})
			wf.SelectPaymentMethod(entity.PaymentMethodHostedRedirect)

			geo := wf.DetectLocation(ctx)
			fmt.Fprintf(out, "Location: %s, %s (%s)\n", geo.City, geo.Country, geo.IP)

			if err := wf.Submit(ctx, form); err != nil {
				if errors.Is(err, enrollment.ErrInvalidForm) {
					for _, verr := range wf.ValidationErrors() {
						fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", verr.Error())
					}
				}
				return fmt.Errorf("%s: %w", wf.Message(), err)
			}

			if id := wf.LeadID(); id != "" {
				fmt.Fprintf(out, "Lead: %s\n", id)
			}
			fmt.Fprintf(out, "State: %s\n", wf.State())
			return nil
		},
	}

	cmd.Flags().StringVar(&form.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&form.Country, "country", "", "country")
	cmd.Flags().StringVar(&form.State, "state", "", "state or region")
	cmd.Flags().StringVar(&form.City, "city", "", "city")

	return cmd
}
