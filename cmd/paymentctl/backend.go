package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/payment-orchestrator/internal/app"
	"github.com/joseph-ayodele/payment-orchestrator/internal/fakeapi"
	"github.com/joseph-ayodele/payment-orchestrator/internal/onboarding"
)

func dbCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "db-check",
		Short: "Open, migrate and ping the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.DB.HealthCheck(ctx, time.Second); err != nil {
					return fmt.Errorf("DB health: FAIL (%w)", err)
				}
				fmt.Printf("DB health: OK (%s)\n", a.DB.Dialect())
				recs, err := a.History.List(ctx, nil, nil)
				if err != nil {
					return err
				}
				fmt.Printf("payment requests recorded: %d\n", len(recs))
				if _, ok, err := a.Store.Get(ctx, onboarding.StoreKey); err == nil {
					fmt.Printf("onboarding counters present: %t\n", ok)
				}
				return nil
			})
		},
	}
}

func fakeBackendCmd() *cobra.Command {
	var (
		addr         string
		clientID     string
		clientSecret string
		latency      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fake-backend",
		Short: "Serve an in-memory document and payment backend for local runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			b := fakeapi.New(logger)
			fakeapi.Seed(b)
			if clientID != "" {
				b.RequireClient(clientID, clientSecret)
			}
			b.SetLatency(latency)

			srv := &http.Server{Addr: addr, Handler: b.Router(), ReadHeaderTimeout: 5 * time.Second}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("fake backend listening", "addr", addr, "document_id", fakeapi.DemoDocumentID)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9090", "listen address")
	cmd.Flags().StringVar(&clientID, "client-id", "", "require this client id for tokens")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "client secret paired with --client-id")
	cmd.Flags().DurationVar(&latency, "latency", 0, "delay added to every call")
	return cmd
}
