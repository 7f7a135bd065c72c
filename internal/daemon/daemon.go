package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskbay-network/taskbay/internal/api"
	"github.com/taskbay-network/taskbay/internal/app/escrow"
	"github.com/taskbay-network/taskbay/internal/app/wallet"
	"github.com/taskbay-network/taskbay/internal/infra/mirror"
	"github.com/taskbay-network/taskbay/internal/infra/sqlite"

	_ "github.com/taskbay-network/taskbay/internal/infra/metrics" // Register Prometheus metrics
)

// Daemon is the core taskbay runtime. It wires together all services.
type Daemon struct {
	Config Config
	DB     *sqlite.DB
	Ledger *escrow.Ledger
	Wallet *wallet.Service
	Mirror *mirror.Store
	Server *api.Server
	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	dir := cfg.Storage.Dir
	if dir == "" {
		dir = taskbayHome()
	}
	db, err := sqlite.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ledger := escrow.NewLedger(db)
	w := wallet.NewService(db)

	// Rebuild the mirror from the durable event feed, then keep it
	// current from the live feed.
	m := mirror.NewStore()
	if err := replayMirror(db, m); err != nil {
		db.Close()
		return nil, fmt.Errorf("replay mirror: %w", err)
	}
	ledger.Subscribe(m)

	srv := api.NewServer(ledger, w, m, db)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	hub := api.NewFeedHub()
	srv.SetFeedHub(hub)
	ledger.Subscribe(hub)

	return &Daemon{
		Config: cfg,
		DB:     db,
		Ledger: ledger,
		Wallet: w,
		Mirror: m,
		Server: srv,
	}, nil
}

// replayMirror feeds the whole durable event feed into the mirror store.
func replayMirror(db *sqlite.DB, m *mirror.Store) error {
	const batch = 500
	var after int64
	for {
		events, err := db.EventsSince(after, batch)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		m.Replay(events)
		after = events[len(events)-1].Seq
	}
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long for the SSE feed
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	fmt.Printf("taskbay serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Printf("[daemon] serve error: %v", err)
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
