// Command alertsctl is the Siouxland Civic Alerts operations CLI.
//
// Usage:
//
//	alertsctl run
//	alertsctl vapid generate
//	alertsctl ledger cleanup --days 30
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/siouxland-alerts/internal/cache"
	"github.com/albapepper/siouxland-alerts/internal/config"
	"github.com/albapepper/siouxland-alerts/internal/db"
	"github.com/albapepper/siouxland-alerts/internal/dispatch"
	"github.com/albapepper/siouxland-alerts/internal/ledger"
	"github.com/albapepper/siouxland-alerts/internal/observability"
	"github.com/albapepper/siouxland-alerts/internal/pipeline"
	"github.com/albapepper/siouxland-alerts/internal/source"
	"github.com/albapepper/siouxland-alerts/internal/subs"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "alertsctl",
		Short: "Siouxland Civic Alerts operations CLI",
	}

	root.AddCommand(runCmd())
	root.AddCommand(vapidCmd())
	root.AddCommand(ledgerCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one full alert pipeline pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				redisAddr := cfg.RedisAddr
				if !cfg.CacheEnabled {
					redisAddr = ""
				}
				snapshots := cache.New(redisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.StatusTTL)

				var webPush dispatch.WebPusher
				if wp := dispatch.NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject); wp != nil {
					webPush = wp
				}
				store := subs.New(pool.Pool)
				sender := dispatch.New(store, webPush, dispatch.NewExpoSender(cfg.ExpoPushURL), logger)

				orch := pipeline.New(pipeline.Deps{
					Weather:   source.NewWeatherClient(cfg.NWSBaseURL, cfg.NWSZone, cfg.NWSStation, cfg.NWSUserAgent),
					River:     source.NewRiverClient(cfg.NWPSBaseURL, cfg.RiverGaugeID),
					Air:       source.NewAirQualityClient(cfg.AirNowBase, cfg.AirNowAPIKey, cfg.AirNowZip),
					Traffic:   source.NewTrafficClient(cfg.TrafficFeed),
					Subs:      store,
					Ledger:    ledger.New(pool.Pool, clockwork.NewRealClock()),
					Sender:    sender,
					Snapshots: snapshots,
				}, cfg.LedgerRetention, logger, observability.NewMetrics())

				start := time.Now()
				result := orch.Run(ctx)
				for alertType, dr := range result.Results {
					logger.Info("domain finished", "domain", alertType,
						"checked", dr.Checked, "matched", dr.Matched, "notified", dr.Notified)
				}
				logger.Info("run finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"cleaned_up", result.CleanedUp)
				if result.CleanupErr != nil {
					return fmt.Errorf("ledger cleanup: %w", result.CleanupErr)
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// vapid command
// --------------------------------------------------------------------------

func vapidCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vapid",
		Short: "Web push key management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Generate a new VAPID key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
			if err != nil {
				return fmt.Errorf("generate VAPID keys: %w", err)
			}
			fmt.Printf("VAPID_PUBLIC_KEY=%s\n", publicKey)
			fmt.Printf("VAPID_PRIVATE_KEY=%s\n", privateKey)
			return nil
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// ledger command
// --------------------------------------------------------------------------

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Dedup ledger maintenance",
	}
	cmd.AddCommand(ledgerCleanupCmd())
	return cmd
}

func ledgerCleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete ledger entries older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				maxAge := cfg.LedgerRetention
				if days > 0 {
					maxAge = time.Duration(days) * 24 * time.Hour
				}
				store := ledger.New(pool.Pool, clockwork.NewRealClock())
				deleted, err := store.Cleanup(ctx, maxAge)
				if err != nil {
					return fmt.Errorf("cleanup: %w", err)
				}
				logger.Info("Ledger cleanup finished", "deleted", deleted, "max_age", maxAge)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (default: LEDGER_RETENTION_DAYS)")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withPool handles config loading, DB connection, and context cancellation.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
