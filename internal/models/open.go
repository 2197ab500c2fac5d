package models

import (
    "context"
    "fmt"
    "time"

    "github.com/vaheed/certd/internal/certificate"
    "github.com/vaheed/certd/internal/config"
    "github.com/vaheed/certd/internal/db"
)

// Open returns the store selected by cfg. SQL stores are pinged and migrated before use.
func Open(ctx context.Context, cfg *config.Config) (certificate.Store, error) {
    switch cfg.Store {
    case config.StorePostgres, config.StoreSQLite:
    default:
        return certificate.NewMemoryStore(), nil
    }
    d, err := db.Connect(db.Dialect(cfg.Store), cfg.DBURL)
    if err != nil {
        return nil, fmt.Errorf("connect: %w", err)
    }
    d.ConfigurePool(cfg.DBMaxOpen, cfg.DBMaxIdle, cfg.DBConnMaxLife)
    ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
    defer cancel()
    if err := d.Ping(ctx); err != nil {
        _ = d.Close()
        return nil, fmt.Errorf("ping: %w", err)
    }
    if err := d.Migrate(ctx); err != nil {
        _ = d.Close()
        return nil, fmt.Errorf("migrate: %w", err)
    }
    return NewStore(d), nil
}
