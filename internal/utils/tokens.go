package utils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// TokenInfo is what the service knows about an API token.
type TokenInfo struct {
	RateLimit int
	Label     string
}

var tokens struct {
	sync.RWMutex
	cache map[string]TokenInfo
}

var tokenDB struct {
	sync.Mutex
	dsn string
	db  *sql.DB
}

var (
	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrTokenStoreNotReady signals that the token store has not been loaded yet.
	ErrTokenStoreNotReady = errors.New("token store not ready")
	// ErrTokenStoreDisabled is returned when no token database is configured.
	ErrTokenStoreDisabled = errors.New("token store disabled")
)

const (
	tokensDDL = `CREATE TABLE IF NOT EXISTS api_tokens (
		token TEXT PRIMARY KEY,
		rate_limit INTEGER NOT NULL DEFAULT 60,
		label TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	tokensSelect = `SELECT token, rate_limit, label FROM api_tokens;`
)

func postgresPort(cfg PostgresConfig) int {
	if cfg.Port != 0 {
		return cfg.Port
	}
	return 5432
}

func postgresDSN(cfg PostgresConfig) (string, error) {
	if strings.HasPrefix(cfg.Host, "postgres://") || strings.HasPrefix(cfg.Host, "postgresql://") {
		return cfg.Host, nil
	}
	switch {
	case cfg.Host == "":
		return "", ErrTokenStoreDisabled
	case cfg.Database == "":
		return "", fmt.Errorf("postgres database is empty")
	case cfg.User == "":
		return "", fmt.Errorf("postgres user is empty")
	}

	hostPort := cfg.Host
	port := postgresPort(cfg)
	switch {
	case strings.HasPrefix(hostPort, "["):
		if !strings.Contains(hostPort, "]:") {
			hostPort = fmt.Sprintf("%s:%d", hostPort, port)
		}
	case strings.Count(hostPort, ":") >= 2:
		hostPort = fmt.Sprintf("[%s]:%d", hostPort, port)
	case !strings.Contains(hostPort, ":"):
		hostPort = fmt.Sprintf("%s:%d", hostPort, port)
	}

	u := &url.URL{Scheme: "postgres", Host: hostPort, Path: "/" + cfg.Database}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func getTokenDB(ctx context.Context, cfg PostgresConfig) (*sql.DB, error) {
	dsn, err := postgresDSN(cfg)
	if err != nil {
		return nil, err
	}

	tokenDB.Lock()
	defer tokenDB.Unlock()

	if tokenDB.db != nil && tokenDB.dsn == dsn {
		return tokenDB.db, nil
	}
	if tokenDB.db != nil {
		_ = tokenDB.db.Close()
		tokenDB.db = nil
		tokenDB.dsn = ""
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Small control-plane table, a handful of connections is plenty.
	db.SetMaxOpenConns(3)
	db.SetMaxIdleConns(3)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	tokenDB.db = db
	tokenDB.dsn = dsn
	return db, nil
}

// LoadTokensFromPostgres ensures the api_tokens table exists, then replaces the
// in-memory token cache with its content. On error the cache is left untouched.
func LoadTokensFromPostgres(ctx context.Context, cfg PostgresConfig) error {
	db, err := getTokenDB(ctx, cfg)
	if err != nil {
		return err
	}
	cache, err := loadTokens(ctx, db)
	if err != nil {
		return err
	}
	replaceTokens(cache)
	return nil
}

func loadTokens(ctx context.Context, db *sql.DB) (map[string]TokenInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, tokensDDL); err != nil {
		return nil, fmt.Errorf("ensure api_tokens schema: %w", err)
	}

	rows, err := db.QueryContext(ctx, tokensSelect)
	if err != nil {
		return nil, fmt.Errorf("query api_tokens: %w", err)
	}
	defer rows.Close()

	cache := make(map[string]TokenInfo)
	for rows.Next() {
		var token, label string
		var limit int
		if err := rows.Scan(&token, &limit, &label); err != nil {
			return nil, err
		}
		cache[token] = TokenInfo{RateLimit: limit, Label: label}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cache, nil
}

// LoadTokensFromMap replaces the token cache with the given token -> rate limit
// map. Intended for tests and local debugging.
func LoadTokensFromMap(m map[string]int) {
	cache := make(map[string]TokenInfo, len(m))
	for k, v := range m {
		cache[k] = TokenInfo{RateLimit: v}
	}
	replaceTokens(cache)
}

func replaceTokens(cache map[string]TokenInfo) {
	tokens.Lock()
	tokens.cache = cache
	tokens.Unlock()
}

// TokensReady returns true if the token cache has been initialized at least once.
func TokensReady() bool {
	tokens.RLock()
	defer tokens.RUnlock()
	return tokens.cache != nil
}

// ValidateToken checks whether the given token exists in the cached list.
func ValidateToken(token string) bool {
	tokens.RLock()
	defer tokens.RUnlock()
	_, ok := tokens.cache[token]
	return ok
}

// GetRateLimit returns the configured rate limit for the given token. Unknown
// tokens return 0, which disables token rate limiting.
func GetRateLimit(token string) int {
	tokens.RLock()
	defer tokens.RUnlock()
	return tokens.cache[token].RateLimit
}

// TokenLabel returns the human label of a token, used in logs instead of the secret.
func TokenLabel(token string) string {
	tokens.RLock()
	defer tokens.RUnlock()
	return tokens.cache[token].Label
}

// RefreshTokensPeriodicallyFromPostgres reloads the token list at the given
// interval until stop is closed.
func RefreshTokensPeriodicallyFromPostgres(cfg PostgresConfig, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := LoadTokensFromPostgres(context.Background(), cfg); err != nil {
				Error("Failed to reload API tokens", "error", err)
			}
		case <-stop:
			return
		}
	}
}
