package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/example/tablesched/internal/application/monitor"
	"github.com/example/tablesched/internal/application/usecases"
	"github.com/example/tablesched/internal/interfaces/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the webhook server and the store health monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, migrateUp)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}

			m := &monitor.Monitor{
				Store:    usecases.PingStore{Repo: a.repo},
				Interval: a.cfg.MonitorInterval(),
				Timeout:  a.cfg.StoreTimeout(),
				Log:      a.log.Named("monitor"),
			}
			go func() { _ = m.Run(ctx) }()

			ws := &web.Server{
				Reservations:       a.svc,
				Health:             m,
				Log:                a.log.Named("http"),
				RateLimitPerMinute: a.cfg.RateLimitPerMinute,
				TrustedProxies:     a.cfg.TrustedProxies,
			}
			return web.Start(ctx, a.cfg.ListenAddr, ws.Routes(), a.log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "apply database migrations on startup (postgres backend)")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
