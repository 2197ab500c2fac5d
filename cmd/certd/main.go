package main

import (
    "context"
    "io"
    "os"
    "os/signal"
    "syscall"
    "time"

    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"

    "github.com/vaheed/certd/internal/api"
    "github.com/vaheed/certd/internal/certificate"
    "github.com/vaheed/certd/internal/config"
    "github.com/vaheed/certd/internal/logging"
    "github.com/vaheed/certd/internal/metrics"
    "github.com/vaheed/certd/internal/models"
    "github.com/vaheed/certd/internal/version"
    "github.com/vaheed/certd/internal/webhook"
)

func main() {
    lg := logging.New("certd")
    defer func() { _ = lg.Sync() }()
    cfg, err := config.Load()
    if err != nil {
        lg.Error("config", zap.Error(err))
        os.Exit(2)
    }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    store, err := models.Open(ctx, cfg)
    if err != nil { lg.Error("store", zap.String("store", cfg.Store), zap.Error(err)); os.Exit(2) }
    if cfg.Store == config.StoreMemory {
        lg.Warn("using in-memory store; certificates are lost on restart and not shared between instances")
    }

    svc := certificate.NewService(store,
        certificate.WithIssuerCheck(cfg.EnforceIssuer),
        certificate.WithLogger(lg),
    )
    hooks := &webhook.Client{URL: cfg.HookURL, Secret: cfg.HookSecret}
    s := api.New(lg, svc, hooks, time.Duration(cfg.DBTimeoutMS)*time.Millisecond)

    lg.Info("starting", zap.String("version", version.String()), zap.String("store", cfg.Store), zap.Bool("enforce_issuer", cfg.EnforceIssuer))
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error { return s.Start(gctx, cfg.HTTPAddr) })
    g.Go(func() error { watchStore(gctx, lg, svc, storeWatchInterval); return nil })
    err = g.Wait()
    if c, ok := store.(io.Closer); ok {
        if cerr := c.Close(); cerr != nil { lg.Warn("store close", zap.Error(cerr)) }
    }
    if err != nil {
        lg.Error("http", zap.Error(err))
        os.Exit(1)
    }
    lg.Info("shutting down")
}

const storeWatchInterval = 15 * time.Second

// watchStore pings the store every interval until ctx is done, exporting the result as
// certd_store_up and logging each transition.
func watchStore(ctx context.Context, lg *zap.Logger, p certificate.Pinger, interval time.Duration) {
    t := time.NewTicker(interval)
    defer t.Stop()
    up := true
    for {
        pctx, cancel := context.WithTimeout(ctx, interval)
        err := p.Ping(pctx)
        cancel()
        if ctx.Err() != nil { return }
        metrics.SetStoreUp(err == nil)
        switch {
        case err != nil && up:
            lg.Warn("store unreachable", zap.Error(err))
        case err == nil && !up:
            lg.Info("store reachable again")
        }
        up = err == nil
        select {
        case <-ctx.Done():
            return
        case <-t.C:
        }
    }
}
