package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/config"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/httpapi"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/hub"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/printing"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/store"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/store/memory"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/store/postgres"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/store/sqlite"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/telemetry"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/ticketing"
	"github.com/Guesen/sistem-antrian-puskesmas/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup(context.Background(), "ticket-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	ticketStore, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("store open driver=%s: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	allocator := ticketing.NewAllocator(ticketStore, ticketing.Options{
		Location:            cfg.Location,
		RetentionDays:       cfg.RetentionDays,
		DisableRequestSweep: !cfg.SweepOnRequest,
		Serialize:           cfg.Serialize,
	})

	layout := printing.DefaultLayout()
	layout.Header = cfg.PrinterHeader
	layout.Subheader = cfg.PrinterSubheader
	printer := printing.Select(printing.Config{
		Device:     cfg.PrinterDevice,
		Autodetect: cfg.PrinterAutodetect,
		Layout:     layout,
	})

	displays := hub.New()
	handler := httpapi.NewHandler(allocator, httpapi.Options{
		Printer:   printer,
		Publisher: displays,
		Display:   httpapi.NewDisplayHandler(displays, allocator.CurrentCounts),
		Location:  cfg.Location,
	})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:      cfg.RateLimitPerMinute,
		IPBurst:          cfg.RateLimitBurst,
		CounterPerMinute: cfg.CounterRateLimitPerMinute,
		CounterBurst:     cfg.CounterRateLimitBurst,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(handler.Routes())), "ticket-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	if cfg.SweepInterval > 0 {
		log.Printf("background sweep interval=%s retention_days=%d", cfg.SweepInterval, cfg.RetentionDays)
		go allocator.Sweeper().Run(ctx, cfg.SweepInterval, nil)
	}

	go func() {
		log.Printf("ticket-service listening on %s driver=%s", server.Addr, cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.TicketStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		pgStore := postgres.NewStore(pool, postgres.Options{Location: cfg.Location})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pgStore.Ping(pingCtx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, pool, migrations.Files); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("db migrate: %w", err)
			}
		}
		return pgStore, pool.Close, nil
	case config.DriverSQLite:
		liteStore, err := sqlite.Open(cfg.SQLitePath, sqlite.Options{Location: cfg.Location})
		if err != nil {
			return nil, nil, err
		}
		return liteStore, func() {
			if err := liteStore.Close(); err != nil {
				log.Printf("sqlite close error: %v", err)
			}
		}, nil
	case config.DriverMemory:
		log.Printf("memory store selected, tickets are lost on restart")
		return memory.NewStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
