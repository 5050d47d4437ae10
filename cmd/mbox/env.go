package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codewandler/mbox-go/adapters/nats"
	"github.com/codewandler/mbox-go/adapters/prometheus"
	"github.com/codewandler/mbox-go/core/app"
	"github.com/codewandler/mbox-go/core/cluster"
)

// env is a set of nodes in one process that can reach each other.
type env struct {
	log       *slog.Logger
	transport string
	apps      []*app.App
	closers   []func()
	registry  *prom.Registry
}

func newEnv(ctx context.Context, cfg config, numNodes int) (_ *env, err error) {
	e := &env{log: newLogger(cfg.Log.Level), transport: cfg.Transport}
	defer func() {
		if err != nil {
			e.Close()
		}
	}()

	var metrics *prometheus.AllMetrics
	if cfg.Metrics.Addr != "" {
		e.registry = prom.NewRegistry()
		metrics = prometheus.NewAllMetrics(e.registry)
		e.serveMetrics(cfg.Metrics.Addr)
	}

	var newTransport func() (cluster.Transport, error)
	switch cfg.Transport {
	case "", "memory":
		tr := cluster.NewInMemoryTransport().WithLog(e.log)
		e.closers = append(e.closers, func() { _ = tr.Close() })
		newTransport = func() (cluster.Transport, error) { return tr, nil }
	case "nats":
		connect := nats.ReuseConnection(nats.ConnectURL(cfg.NATS.URL))
		newTransport = func() (cluster.Transport, error) {
			tr, err := nats.NewTransport(nats.TransportConfig{
				Connect:       connect,
				Log:           e.log,
				SubjectPrefix: cfg.NATS.Prefix,
			})
			if err != nil {
				return nil, err
			}
			e.closers = append(e.closers, func() { _ = tr.Close() })
			return tr, nil
		}
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	for i := 0; i < numNodes; i++ {
		tr, err := newTransport()
		if err != nil {
			return nil, fmt.Errorf("create transport: %w", err)
		}

		appCfg := cfg.App
		appCfg.Context = ctx
		appCfg.Log = e.log
		appCfg.Node.Transport = tr
		if appCfg.Node.Name != "" {
			appCfg.Node.Name = fmt.Sprintf("%s-%d", appCfg.Node.Name, i)
		}
		appCfg.Node.ID = "" // one process, many peers
		if metrics != nil {
			appCfg.ClusterMetrics = metrics.Cluster
			appCfg.MailboxMetrics = metrics.Mailbox
		}

		a, err := app.Run(appCfg)
		if err != nil {
			return nil, fmt.Errorf("start node %d: %w", i, err)
		}
		e.apps = append(e.apps, a)
	}

	// wait until every node sees every other one
	return e, e.awaitPeers(ctx, 10*time.Second)
}

func (e *env) awaitPeers(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		if e.allReachable() {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.New("nodes did not discover each other")
		case <-tick.C:
		}
	}
}

func (e *env) allReachable() bool {
	for _, a := range e.apps {
		for _, b := range e.apps {
			if !a.Node().Reachable(b.Node().ID()) {
				return false
			}
		}
	}
	return true
}

func (e *env) serveMetrics(addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	e.log.Info("serving metrics", slog.String("addr", addr))
	e.closers = append(e.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

func (e *env) Close() {
	for _, a := range e.apps {
		a.Stop()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// === stats helpers ===

type memUsage struct {
	Alloc uint64 // bytes allocated and not yet freed (heap)
	Sys   uint64 // total bytes obtained from OS
	NumGC uint32 // gc cycles
}

func getMemUsage() memUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return memUsage{
		Alloc: m.Alloc,
		Sys:   m.Sys,
		NumGC: m.NumGC,
	}
}
