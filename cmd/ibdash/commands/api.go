package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/ibdash/internal/api"
	"github.com/wonny/ibdash/internal/api/handlers"
	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/internal/scheduler"
	"github.com/wonny/ibdash/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the dashboard API server",
	Long: `Starts the REST API server together with the background scheduler
(gateway session tickle and high-water mark ratchet).

Endpoints:
  GET    /health
  GET    /api/dashboard
  GET    /api/orders            POST /api/orders
  POST   /api/orders/preview
  PATCH  /api/orders/{id}       DELETE /api/orders/{id}
  GET    /api/context/{pair}

Example:
  go run ./cmd/ibdash api
  go run ./cmd/ibdash api --port 8080 --dry-run`,
	RunE: runAPIServer,
}

var (
	apiPort     string
	apiNoStream bool
	apiShutdown time.Duration
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
	apiCmd.Flags().BoolVar(&apiNoStream, "no-stream", false, "do not subscribe to live order updates")
	apiCmd.Flags().DurationVar(&apiShutdown, "shutdown-timeout", 30*time.Second, "graceful shutdown timeout")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewGatewayTickleJob(a.client, cfg.Schedule.Tickle, log)); err != nil {
		return err
	}
	if err := sched.AddJob(jobs.NewHWMRatchetJob(a.provider, cfg.Schedule.HWM, log)); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if !apiNoStream && !cfg.DryRun() {
		stream := gateway.NewStream(cfg.Gateway.BaseURL, cfg.Gateway.InsecureTLS, a.client, log)
		stream.OnOrder(func(u gateway.OrderUpdate) {
			log.WithFields(map[string]interface{}{
				"order_id": u.OrderID,
				"ticker":   u.Ticker,
				"status":   u.Status,
				"filled":   u.FilledQuantity,
			}).Info("Order update")
		})
		stream.OnError(func(err error) {
			log.WithError(err).Warn("Order stream error")
		})
		if err := stream.Connect(ctx); err != nil {
			log.WithError(err).Warn("Order stream unavailable; continuing without live updates")
		} else {
			defer stream.Close()
		}
	}

	router := api.NewRouter(api.Handlers{
		Orders:  handlers.NewOrderHandler(a.builder, a.placer(), a.channel, a.book, log),
		Account: handlers.NewAccountHandler(a.client, a.provider, a.risk, log),
		Market:  handlers.NewMarketHandler(a.client, log),
	}, log)
	server := api.New(cfg, log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s (%s)\n", cfg.Port, cfg.Trading.Mode)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Run(ctx, apiShutdown); err != nil {
		return err
	}
	log.Info("Server stopped")
	return nil
}
