package db

import (
    "context"
    "database/sql"
    "embed"
    "fmt"
    "strconv"
    "strings"
    "time"

    _ "github.com/jackc/pgx/v5/stdlib"
    _ "modernc.org/sqlite"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

type Dialect string

const (
    Postgres Dialect = "postgres"
    SQLite   Dialect = "sqlite"
)

func (d Dialect) driver() (string, error) {
    switch d {
    case Postgres:
        return "pgx", nil
    case SQLite:
        return "sqlite", nil
    }
    return "", fmt.Errorf("unsupported dialect %q", string(d))
}

type DB struct {
    *sql.DB
    Dialect Dialect
}

func Connect(dialect Dialect, url string) (*DB, error) {
    driver, err := dialect.driver()
    if err != nil {
        return nil, err
    }
    db, err := sql.Open(driver, url)
    if err != nil {
        return nil, err
    }
    // defaults; allow caller to tune via ConfigurePool
    db.SetMaxOpenConns(10)
    db.SetMaxIdleConns(5)
    db.SetConnMaxLifetime(30 * time.Minute)
    if dialect == SQLite {
        // one writer; transactions serialize on the single connection
        db.SetMaxOpenConns(1)
    }
    return &DB{DB: db, Dialect: dialect}, nil
}

func (d *DB) Ping(ctx context.Context) error { return d.DB.PingContext(ctx) }

// Rebind rewrites '?' placeholders into the dialect's form.
func (d *DB) Rebind(q string) string {
    if d.Dialect != Postgres {
        return q
    }
    var b strings.Builder
    n := 0
    for _, r := range q {
        if r == '?' {
            n++
            b.WriteByte('$')
            b.WriteString(strconv.Itoa(n))
            continue
        }
        b.WriteRune(r)
    }
    return b.String()
}

func (d *DB) Migrate(ctx context.Context) error {
    if _, err := d.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version text primary key)`); err != nil {
        return err
    }
    dir := "migrations/" + string(d.Dialect)
    entries, err := migrations.ReadDir(dir)
    if err != nil {
        return err
    }
    for _, e := range entries {
        if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
            continue
        }
        version := e.Name()
        var exists bool
        if err := d.QueryRowContext(ctx, d.Rebind(`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=?)`), version).Scan(&exists); err != nil {
            return err
        }
        if exists {
            continue
        }
        b, err := migrations.ReadFile(dir + "/" + version)
        if err != nil {
            return err
        }
        if _, err := d.ExecContext(ctx, string(b)); err != nil {
            return fmt.Errorf("migration %s failed: %w", version, err)
        }
        if _, err := d.ExecContext(ctx, d.Rebind(`INSERT INTO schema_migrations(version) VALUES(?)`), version); err != nil {
            return err
        }
    }
    return nil
}

func (d *DB) ConfigurePool(maxOpen, maxIdle, maxLifeSeconds int) {
    if maxOpen > 0 && d.Dialect != SQLite { d.DB.SetMaxOpenConns(maxOpen) }
    if maxIdle >= 0 { d.DB.SetMaxIdleConns(maxIdle) }
    if maxLifeSeconds > 0 { d.DB.SetConnMaxLifetime(time.Duration(maxLifeSeconds) * time.Second) }
}
