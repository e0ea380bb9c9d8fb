package core

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type LogLevel int

const (
	LogLevelSilent LogLevel = iota + 1
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

// DatabaseManager owns the global MySQL pool. Each agency lives in its own
// schema; requests select it by hostname ("sunrise.careloop.health" -> sunrise).
type DatabaseManager struct {
	SqlDB    *sql.DB
	LogLevel LogLevel
}

// New creates the global pool. dsn should carry host/user/pass only, no schema.
func New(dsn string, maxConnection int) (*DatabaseManager, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxConnection)
	sqlDB.SetMaxIdleConns(maxConnection)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping pool: %w", err)
	}

	return &DatabaseManager{SqlDB: sqlDB}, nil
}

// SchemaFromHost maps a request hostname to its agency schema.
func SchemaFromHost(host string) string {
	if host == "localhost" {
		dsn := os.Getenv("DSN")

		parts := strings.SplitN(dsn, "?", 2)
		segments := strings.Split(parts[0], "/")
		return segments[len(segments)-1]
	}

	parts := strings.Split(host, ".")
	return parts[0]
}

// GetDB pins one pool connection, switches it to the agency schema, and wraps it
// in gorm. The caller owns the conn and must close it.
func (dm *DatabaseManager) GetDB(ctx context.Context, host string) (*gorm.DB, *sql.Conn, error) {
	schema := SchemaFromHost(host)

	conn, err := dm.SqlDB.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get conn: %w", err)
	}
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	if _, err := conn.ExecContext(ctx, "USE `"+schema+"`"); err != nil {
		return nil, nil, fmt.Errorf("failed to use schema %s: %w", schema, err)
	}

	dialector := mysql.New(mysql.Config{
		Conn: conn,
	})

	gormLogLevel := logger.Silent
	switch dm.LogLevel {
	case LogLevelError:
		gormLogLevel = logger.Error
	case LogLevelWarn:
		gormLogLevel = logger.Warn
	case LogLevelInfo:
		gormLogLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	// cancel the deferred close; caller will close
	out := conn
	conn = nil
	return db, out, nil
}

// Close closes the global pool.
func (dm *DatabaseManager) Close() error {
	return dm.SqlDB.Close()
}

// Exec runs fn against the given agency schema and releases the connection.
func (dm *DatabaseManager) Exec(ctx context.Context, host string, fn func(db *gorm.DB) error) error {
	db, conn, err := dm.GetDB(ctx, host)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(db)
}
