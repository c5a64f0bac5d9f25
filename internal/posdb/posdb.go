package posdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/KodyPay/kp-order-sync/internal/backoff"
)

// SourceMarker tags every row this service writes into the POS schema, and is
// how the reader finds them again.
const SourceMarker = "KODYORDER"

// PgxIface is the slice of pgxpool.Pool the POS layer uses. pgxmock provides
// a drop-in implementation for tests.
type PgxIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// ConnectionSettings holds everything needed to reach the POS database.
type ConnectionSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (s ConnectionSettings) connString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.User, s.Password, s.Database, s.SSLMode)
}

// Connect opens a pgx pool against the POS database, waits (with backoff)
// until it answers pings, verifies the tables the sync engine relies on and
// registers a readiness check.
func Connect(ctx context.Context, settings ConnectionSettings, health healthcheck.Handler) (*pgxpool.Pool, error) {
	zap.S().Infof("Connecting to POS database %s@%s:%d/%s [%s]",
		settings.User, settings.Host, settings.Port, settings.Database, settings.SSLMode)

	pool, err := pgxpool.New(ctx, settings.connString())
	if err != nil {
		return nil, fmt.Errorf("failed to open connection to POS database: %w", err)
	}

	// The POS database may still be starting; back off instead of hammering it.
	const maxRetries = 10
	for retries := int64(1); ; retries++ {
		pingCtx, cncl := context.WithTimeout(ctx, 5*time.Second)
		err = pool.Ping(pingCtx)
		cncl()
		if err == nil {
			break
		}
		if retries >= maxRetries {
			pool.Close()
			return nil, fmt.Errorf("POS database not reachable after %d attempts: %w", maxRetries, err)
		}
		wait := backoff.Time(retries, 500*time.Millisecond, 10*time.Second)
		zap.S().Warnf("POS database not reachable (attempt %d): %s. Retrying in %s", retries, err, wait)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	if err := checkTables(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	if health != nil {
		health.AddReadinessCheck("pos-database", func() error {
			pingCtx, cncl := context.WithTimeout(context.Background(), 5*time.Second)
			defer cncl()
			return pool.Ping(pingCtx)
		})
	}

	return pool, nil
}

// checkTables fails fast when the Gicater schema this service writes into is
// missing, instead of erroring on the first order.
func checkTables(ctx context.Context, db PgxIface) error {
	tablesToCheck := []string{"order_head", "order_detail", "payment", "menu_item", "tender_media"}
	for _, table := range tablesToCheck {
		var tableName string
		query := `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1`
		err := db.QueryRow(ctx, query, table).Scan(&tableName)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("table %s does not exist in the POS database", table)
			}
			return fmt.Errorf("failed to check for table %s: %w", table, err)
		}
	}
	return nil
}
