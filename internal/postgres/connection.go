package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/dbviz/dbviz/internal/config"
)

// Session is a request-scoped database handle. *sql.Conn satisfies it.
type Session interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Close() error
}

// SessionProvider hands out sessions. Callers must Close every session they
// acquire.
type SessionProvider interface {
	Acquire(ctx context.Context) (Session, error)
}

// Connection is a PostgreSQL connection pool.
type Connection struct {
	db *sql.DB
}

var _ SessionProvider = (*Connection)(nil)

// Open creates the pool for cfg and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Connection, error) {
	db, err := sql.Open(cfg.Driver, ConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{db: db}, nil
}

// NewConnection wraps an existing pool.
func NewConnection(db *sql.DB) *Connection {
	return &Connection{db: db}
}

// ConnectionString returns cfg.DSN when set, otherwise a key/value
// connection string understood by both lib/pq and pgx. A configured
// statement timeout is added to either form unless the DSN already sets one.
func ConnectionString(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return withStatementTimeout(cfg.DSN, cfg.StatementTimeout)
	}

	parts := []string{
		"host=" + quoteValue(cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		"user=" + quoteValue(cfg.User),
		"dbname=" + quoteValue(cfg.Name),
	}
	if cfg.SSLMode != "" {
		parts = append(parts, "sslmode="+quoteValue(cfg.SSLMode))
	}
	if ms := cfg.StatementTimeout.Milliseconds(); ms > 0 {
		parts = append(parts, fmt.Sprintf("statement_timeout=%d", ms))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+quoteValue(cfg.Password))
	}
	return strings.Join(parts, " ")
}

func withStatementTimeout(dsn string, timeout time.Duration) string {
	ms := timeout.Milliseconds()
	if ms <= 0 {
		return dsn
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		if q.Has("statement_timeout") {
			return dsn
		}
		q.Set("statement_timeout", strconv.FormatInt(ms, 10))
		u.RawQuery = q.Encode()
		return u.String()
	}

	if strings.Contains(dsn, "statement_timeout=") {
		return dsn
	}
	return fmt.Sprintf("%s statement_timeout=%d", strings.TrimSpace(dsn), ms)
}

func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// Acquire takes a dedicated connection from the pool.
func (c *Connection) Acquire(ctx context.Context) (Session, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	return conn, nil
}

// DB returns the underlying pool.
func (c *Connection) DB() *sql.DB {
	return c.db
}

// Ping verifies the pool can still reach the server.
func (c *Connection) Ping(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return c.db.PingContext(ctx)
}

// Close closes the pool.
func (c *Connection) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
