package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbviz/dbviz/internal/config"
)

// testConnection opens a pool on DBVIZ_TEST_DSN, skipping the test
// when it is unset or the server is unreachable.
func testConnection(t *testing.T, driver string) *Connection {
	t.Helper()
	dsn := os.Getenv("DBVIZ_TEST_DSN")
	if dsn == "" {
		t.Skip("Skipping test: DBVIZ_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Open(ctx, config.DatabaseConfig{Driver: driver, DSN: dsn, MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		t.Skipf("Skipping test: database not available: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestConnectionString(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.DatabaseConfig
		expected string
	}{
		{
			name:     "basic without password",
			cfg:      config.DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "testdb", SSLMode: "disable"},
			expected: "host=localhost port=5432 user=postgres dbname=testdb sslmode=disable",
		},
		{
			name: "password and statement timeout",
			cfg: config.DatabaseConfig{
				Host: "127.0.0.1", Port: 5433, User: "admin", Name: "mydb", SSLMode: "require",
				Password: "secret", StatementTimeout: 5 * time.Second,
			},
			expected: "host=127.0.0.1 port=5433 user=admin dbname=mydb sslmode=require statement_timeout=5000 password=secret",
		},
		{
			name:     "quoted values",
			cfg:      config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Name: "my db", Password: `it's\x`},
			expected: `host=db port=5432 user=app dbname='my db' password='it\'s\\x'`,
		},
		{
			name:     "explicit dsn wins",
			cfg:      config.DatabaseConfig{DSN: "postgres://u@h/db", Host: "ignored", Port: 1},
			expected: "postgres://u@h/db",
		},
		{
			name:     "url dsn gets statement timeout",
			cfg:      config.DatabaseConfig{DSN: "postgres://u@h/db?sslmode=disable", StatementTimeout: 1500 * time.Millisecond},
			expected: "postgres://u@h/db?sslmode=disable&statement_timeout=1500",
		},
		{
			name:     "url dsn keeps its own statement timeout",
			cfg:      config.DatabaseConfig{DSN: "postgresql://u@h/db?statement_timeout=10", StatementTimeout: time.Second},
			expected: "postgresql://u@h/db?statement_timeout=10",
		},
		{
			name:     "key value dsn gets statement timeout",
			cfg:      config.DatabaseConfig{DSN: "host=h dbname=db ", StatementTimeout: 2 * time.Second},
			expected: "host=h dbname=db statement_timeout=2000",
		},
		{
			name:     "key value dsn keeps its own statement timeout",
			cfg:      config.DatabaseConfig{DSN: "host=h statement_timeout=10", StatementTimeout: 2 * time.Second},
			expected: "host=h statement_timeout=10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConnectionString(tt.cfg))
		})
	}
}

func TestQuoteValue_Empty(t *testing.T) {
	assert.Equal(t, "''", quoteValue(""))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "nope", DSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database connection")
}

func TestOpen_Unreachable(t *testing.T) {
	for _, driver := range []string{config.DriverPQ, config.DriverPGX} {
		t.Run(driver, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			_, err := Open(ctx, config.DatabaseConfig{
				Driver: driver, Host: "127.0.0.1", Port: 1, User: "postgres", Name: "postgres", SSLMode: "disable",
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to ping database")
		})
	}
}

func TestConnection_NilDB(t *testing.T) {
	conn := NewConnection(nil)

	_, err := conn.Acquire(context.Background())
	assert.Error(t, err)
	assert.Error(t, conn.Ping(context.Background()))
	assert.NoError(t, conn.Close())
}

func TestConnection_AcquireAndRelease(t *testing.T) {
	for _, driver := range []string{config.DriverPQ, config.DriverPGX} {
		t.Run(driver, func(t *testing.T) {
			conn := testConnection(t, driver)
			ctx := context.Background()

			require.NoError(t, conn.Ping(ctx))

			session, err := conn.Acquire(ctx)
			require.NoError(t, err)

			rows, err := session.QueryContext(ctx, "SELECT 1")
			require.NoError(t, err)
			require.NoError(t, rows.Close())

			assert.Equal(t, 1, conn.DB().Stats().InUse)
			require.NoError(t, session.Close())
			assert.Equal(t, 0, conn.DB().Stats().InUse)
		})
	}
}
