package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// DB wraps the database connection pool. It is the single serialization
// point for all data mutation; multi-row writes go through WithTx.
type DB struct {
	*sql.DB
}

// NewDB opens a MySQL connection pool instrumented with OpenTelemetry.
func NewDB(dsn, serviceName string, logger zerolog.Logger) (*DB, error) {
	driverName, err := otelsql.Register("mysql",
		otelsql.WithAttributes(
			attribute.String("db.system", "mysql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register otelsql: %w", err)
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := otelsql.RegisterDBStatsMetrics(conn, otelsql.WithAttributes(
		attribute.String("db.system", "mysql"),
		attribute.String("service.name", serviceName),
	)); err != nil {
		logger.Warn().Err(err).Msg("failed to register otelsql stats metrics")
	}

	return &DB{DB: conn}, nil
}

// Wrap adapts an already-open connection. Used by tests to run services
// against an embedded store.
func Wrap(conn *sql.DB) *DB {
	return &DB{DB: conn}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// WithTx runs fn inside a transaction, rolling back on error or panic and
// committing otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InitSchema initializes the database schema. It splits the SQL into
// individual statements and executes them one by one.
func (db *DB) InitSchema(ctx context.Context, schemaSQL string) error {
	statements := splitSQLStatements(schemaSQL)

	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}

		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement %d: %w", i+1, err)
		}
	}

	return nil
}

// splitSQLStatements splits a SQL string into individual statements
func splitSQLStatements(sqlText string) []string {
	lines := strings.Split(sqlText, "\n")
	var cleanedLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
			cleanedLines = append(cleanedLines, line)
		}
	}

	var result []string
	for _, stmt := range strings.Split(strings.Join(cleanedLines, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			result = append(result, stmt)
		}
	}
	return result
}
