// Command svctree-daemon wires the cronservice, statsstore, and natsworker
// examples together under one Manager and exposes the resulting Stats over
// HTTP, mirroring the teacher's bootstrap sequence: init logging, init
// tracing, install a signal-driven context, serve until told to stop.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/swarmguard/svctree"
	"github.com/swarmguard/svctree/examples/cronservice"
	"github.com/swarmguard/svctree/examples/natsworker"
	"github.com/swarmguard/svctree/examples/statsstore"
	"github.com/swarmguard/svctree/internal/logging"
	"github.com/swarmguard/svctree/internal/telemetry"
)

type rootService struct {
	svctree.BaseService

	stats  *statsstore.Service
	cron   *cronservice.Service
	nc     *nats.Conn // nil when no NATS server was reachable at startup
	logger *slog.Logger
}

func (r *rootService) Run(ctx context.Context) error {
	mgr := r.GetManager()

	if _, err := mgr.SpawnChildService(ctx, r.stats, svctree.Daemon(), svctree.WithName("statsstore")); err != nil {
		return err
	}
	if _, err := mgr.SpawnChildService(ctx, r.cron, svctree.Daemon(), svctree.WithName("cronservice")); err != nil {
		return err
	}
	if r.nc != nil {
		if err := natsworker.Start(ctx, mgr, r.nc, "svctree.events", func(taskCtx context.Context, msg *nats.Msg) error {
			r.logger.Debug("nats event handled", "subject", msg.Subject)
			return nil
		}); err != nil {
			return err
		}
	}

	<-ctx.Done()
	return nil
}

func main() {
	logger := logging.Init("svctree-daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTrace := telemetry.InitTracer(ctx, "svctree-daemon")
	defer telemetry.Flush(context.Background(), shutdownTrace)

	meter, shutdownMeter := telemetry.InitMeter(ctx, "svctree-daemon")
	defer telemetry.Flush(context.Background(), shutdownMeter)

	store, err := statsstore.Open("svctree-stats.db", 5*time.Second)
	if err != nil {
		logger.Error("opening stats store", "error", err)
		return
	}
	defer store.Close()

	// Connect with backoff rather than failing startup outright: a NATS
	// server that isn't up yet during compose/k8s bring-up shouldn't take
	// the whole daemon down with it.
	nc, err := natsworker.Connect(ctx, nats.DefaultURL, 5*time.Second)
	if err != nil {
		logger.Warn("no NATS server reachable at startup; running without the event worker", "error", err)
		nc = nil
	} else {
		defer nc.Close()
	}

	root := &rootService{
		stats: store,
		cron: cronservice.New([]cronservice.Job{
			{Name: "heartbeat", Spec: "@every 30s", Run: func(context.Context) error {
				logger.Debug("heartbeat tick")
				return nil
			}},
		}, logger),
		nc:     nc,
		logger: logger,
	}

	mgr := svctree.NewManager(root, svctree.WithLogger(logger), svctree.WithMeter(meter))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/stats", func(w http.ResponseWriter, r *http.Request) {
		snap, err := store.Snapshot(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(snap)
	})

	srv := &http.Server{Addr: ":8089", Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited", "error", err)
		}
	}()

	go func() {
		if err := mgr.Run(ctx); err != nil {
			logger.Error("svctree-daemon exited with error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = mgr.Stop(stopCtx)
	_ = srv.Shutdown(stopCtx)
}
