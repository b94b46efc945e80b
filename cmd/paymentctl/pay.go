package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/payment-orchestrator/internal/app"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/core"
	"github.com/joseph-ayodele/payment-orchestrator/internal/extraction"
)

func reviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review [document-id]",
		Short: "Show the payment fields extracted from an analysed document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				data, err := a.Gateway.FetchDataForReview(ctx, args[0])
				if err != nil {
					return err
				}
				f := core.PayInputFromReview(data).Fields
				fmt.Printf("Document:  %s (%s)\n", data.Document.ID, data.Document.Name)
				fmt.Printf("Recipient: %s\n", f.Recipient)
				fmt.Printf("IBAN:      %s\n", f.IBAN)
				fmt.Printf("Amount:    %s\n", f.Amount)
				fmt.Printf("Purpose:   %s\n", f.Purpose)
				fmt.Printf("Payable:   %t\n", extraction.IsPayable(data.Extractions))
				if extraction.HasMultipleInvoices(data.Extractions) {
					fmt.Println("Warning:   the document contains multiple invoices")
				}
				return nil
			})
		},
	}
}

func payCmd() *cobra.Command {
	var (
		documentID string
		providerID string
		fields     struct{ recipient, iban, bic, amount, purpose string }
		yes        bool
	)
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Create a payment request and hand it to the selected provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				o := a.NewOrchestrator()
				if err := o.Start(ctx); err != nil {
					return err
				}
				if providerID != "" {
					if err := o.SelectProviderByID(ctx, providerID); err != nil {
						return err
					}
				}

				var in core.PayInput
				if documentID != "" {
					data, err := a.Gateway.FetchDataForReview(ctx, documentID)
					if err != nil {
						return err
					}
					in = core.PayInputFromReview(data)
				}
				override(&in.Fields.Recipient, fields.recipient)
				override(&in.Fields.IBAN, fields.iban)
				override(&in.Fields.BIC, fields.bic)
				override(&in.Fields.Amount, fields.amount)
				override(&in.Fields.Purpose, fields.purpose)

				out, err := o.Pay(ctx, in)
				if err != nil {
					return explain(err)
				}
				if out == nil {
					if !yes {
						fmt.Println("Share the generated PDF with the banking app and choose it from the share sheet.")
						fmt.Println("Rerun with --yes to continue.")
						return nil
					}
					if out, err = o.ConfirmOnboarding(ctx); err != nil {
						return explain(err)
					}
				}
				printOutcome(out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&documentID, "document", "", "prefill fields from an analysed document")
	cmd.Flags().StringVar(&providerID, "provider", "", "payment provider id (defaults to the remembered one)")
	cmd.Flags().StringVar(&fields.recipient, "recipient", "", "payment recipient")
	cmd.Flags().StringVar(&fields.iban, "iban", "", "recipient IBAN")
	cmd.Flags().StringVar(&fields.bic, "bic", "", "recipient BIC")
	cmd.Flags().StringVar(&fields.amount, "amount", "", "amount, e.g. 15.00 or 1500 (cents)")
	cmd.Flags().StringVar(&fields.purpose, "purpose", "", "payment purpose")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the share onboarding prompt")
	return cmd
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// explain lists every failing field of a validation error.
func explain(err error) error {
	var vErr *common.ValidationFailedError
	if !errors.As(err, &vErr) {
		return err
	}
	for _, f := range vErr.Fields {
		printError("  %s: %s\n", f.Field, f.Message)
	}
	return err
}

func printOutcome(out *core.Outcome) {
	fmt.Printf("Payment request %s via %s: %s\n", out.RequestID, out.Provider.Name, out.Kind)
	fmt.Printf("Amount: %s\n", out.Info.AmountString())
	switch {
	case out.DeepLink != "" && out.Opened:
		fmt.Printf("Opened %s\n", out.DeepLink)
	case out.DeepLink != "":
		fmt.Printf("The platform declined to open %s\n", out.DeepLink)
	case out.Artifact != nil:
		fmt.Printf("QR code PDF: %s (%d bytes)\n", out.Artifact.Path, out.Artifact.Size)
	default:
		fmt.Printf("Install %s and run the payment again.\n", out.Provider.Name)
	}
}
