package config

import (
    "errors"
    "fmt"
    "os"
    "strconv"

    "github.com/joho/godotenv"
)

const (
    StoreMemory   = "memory"
    StorePostgres = "postgres"
    StoreSQLite   = "sqlite"
)

type Config struct {
    HTTPAddr      string
    Store         string
    DBURL         string
    DBMaxOpen     int
    DBMaxIdle     int
    DBConnMaxLife int // seconds
    DBTimeoutMS   int
    EnforceIssuer bool
    HookURL       string
    HookSecret    []byte
}

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// Load reads an optional .env file (or the files named) into the environment, without
// overriding variables that are already set, then parses the configuration.
func Load(files ...string) (*Config, error) {
    if len(files) == 0 {
        if _, err := os.Stat(".env"); err == nil {
            files = []string{".env"}
        }
    }
    if len(files) > 0 {
        if err := godotenv.Load(files...); err != nil {
            return nil, fmt.Errorf("load env file: %w", err)
        }
    }
    return Parse()
}

func Parse() (*Config, error) {
    cfg := &Config{}
    addr := ":5000"
    if p := os.Getenv("PORT"); p != "" {
        addr = ":" + p
    }
    cfg.HTTPAddr = getenv("CERTD_HTTP_ADDR", addr)
    cfg.Store = getenv("CERTD_STORE", StoreMemory)
    cfg.DBURL = getenv("CERTD_DB_URL", "")
    cfg.DBMaxOpen = atoi(getenv("CERTD_DB_MAX_OPEN", "10"))
    cfg.DBMaxIdle = atoi(getenv("CERTD_DB_MAX_IDLE", "5"))
    cfg.DBConnMaxLife = atoi(getenv("CERTD_DB_CONN_MAX_LIFETIME", "1800"))
    cfg.DBTimeoutMS = atoi(getenv("CERTD_DB_TIMEOUT_MS", "2000"))
    cfg.HookURL = getenv("CERTD_HOOK_URL", "")
    cfg.HookSecret = []byte(getenv("CERTD_HOOK_SECRET", ""))

    enforce, err := strconv.ParseBool(getenv("CERTD_ENFORCE_ISSUER", "true"))
    if err != nil {
        return nil, fmt.Errorf("CERTD_ENFORCE_ISSUER: %w", err)
    }
    cfg.EnforceIssuer = enforce

    if err := cfg.Validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

func (c *Config) Validate() error {
    switch c.Store {
    case StoreMemory:
    case StorePostgres, StoreSQLite:
        if c.DBURL == "" {
            return fmt.Errorf("CERTD_DB_URL is required for store %q", c.Store)
        }
    default:
        return fmt.Errorf("unknown CERTD_STORE %q", c.Store)
    }
    if c.DBTimeoutMS <= 0 {
        return errors.New("CERTD_DB_TIMEOUT_MS must be positive")
    }
    if c.HookURL != "" && len(c.HookSecret) == 0 {
        return errors.New("CERTD_HOOK_SECRET is required when CERTD_HOOK_URL is set")
    }
    return nil
}

func atoi(s string) int {
    n, _ := strconv.Atoi(s)
    return n
}
