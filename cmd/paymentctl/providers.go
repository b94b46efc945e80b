package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/payment-orchestrator/internal/app"
)

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List payment providers usable on this platform, installed apps first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				o := a.NewOrchestrator()
				if err := o.Start(ctx); err != nil {
					return err
				}
				selected := ""
				if p := o.SelectedProvider(); p != nil {
					selected = p.ID
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "\tID\tNAME\tINSTALLED\tAPP\tSHARE PDF")
				for _, p := range o.Providers() {
					mark := ""
					if p.ID == selected {
						mark = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%t\n", mark, p.ID, p.Name,
						a.Registry.IsInstalled(p),
						p.SupportsGPC(a.Registry.Platform()),
						p.SupportsOpenWith(a.Registry.Platform()))
				}
				return w.Flush()
			})
		},
	}
}

func selectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select [provider-id]",
		Short: "Remember a payment provider for the next payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				o := a.NewOrchestrator()
				if err := o.Start(ctx); err != nil {
					return err
				}
				if err := o.SelectProviderByID(ctx, args[0]); err != nil {
					return err
				}
				p := o.SelectedProvider()
				fmt.Printf("Selected %s (%s)\n", p.Name, p.ID)
				return nil
			})
		},
	}
}
