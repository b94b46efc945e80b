package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/payment-orchestrator/internal/app"
)

func statusCmd() *cobra.Command {
	var qrOut string
	cmd := &cobra.Command{
		Use:   "status [request-id]",
		Short: "Show a payment request as the backend sees it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				pr, err := a.API.PaymentRequest(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("ID:        %s\n", pr.ID)
				fmt.Printf("Provider:  %s\n", pr.PaymentProvider)
				fmt.Printf("Recipient: %s\n", pr.Recipient)
				fmt.Printf("IBAN:      %s\n", pr.IBAN)
				fmt.Printf("Amount:    %s %s\n", pr.Amount.StringFixed(2), pr.Currency)
				fmt.Printf("Purpose:   %s\n", pr.Purpose)
				fmt.Printf("Status:    %s\n", pr.Status)
				if rec, err := a.History.Get(ctx, pr.ID); err == nil {
					fmt.Printf("Hand-off:  %s\n", rec.Outcome)
				}
				if qrOut == "" {
					return nil
				}
				png, err := a.API.QRCodeImage(ctx, pr.ID)
				if err != nil {
					return err
				}
				if err := os.WriteFile(qrOut, png, 0o644); err != nil {
					return err
				}
				fmt.Printf("QR code:   %s\n", qrOut)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&qrOut, "qr", "", "write the QR code PNG to this path")
	return cmd
}

func exportCmd() *cobra.Command {
	var out, fromStr, toStr string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded payment requests to XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDate("from", fromStr)
			if err != nil {
				return err
			}
			to, err := parseDate("to", toStr)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				xlsx, err := a.Export.ExportPaymentRequestsXLSX(ctx, from, to)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, xlsx, 0o644); err != nil {
					return err
				}
				fmt.Printf("Exported to %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "payment-requests.xlsx", "output XLSX file path")
	cmd.Flags().StringVar(&fromStr, "from", "", "from date YYYY-MM-DD")
	cmd.Flags().StringVar(&toStr, "to", "", "to date YYYY-MM-DD")
	return cmd
}
