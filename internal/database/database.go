// Package database opens the product store and hands out per-request sessions.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"inventory/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	pingTimeout = 1 * time.Second

	// sqliteDriverName is go-sqlite3 with SQLiteLower registered on every connection.
	sqliteDriverName = "sqlite3_inventory"

	// SQLiteLower folds case like strings.ToLower. SQLite's LOWER only folds ASCII.
	SQLiteLower = "unicode_lower"
)

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(SQLiteLower, strings.ToLower, true)
		},
	})
}

// LowerFunc names the SQL function that lowercases text the same way on
// every driver.
func LowerFunc(db *gorm.DB) string {
	if db.Dialector.Name() == DriverSQLite {
		return SQLiteLower
	}
	return "LOWER"
}

// Config selects the SQL driver and its data source.
type Config struct {
	Driver      string
	DSN         string
	AutoMigrate bool
	Log         *zap.Logger
}

// Provider hands out a database handle for a single request.
type Provider interface {
	Session(ctx context.Context) *gorm.DB
	Ping(ctx context.Context) error
}

// Pool is a Provider backed by one pooled *gorm.DB. Every Session is a fresh
// statement chain bound to the caller's context.
type Pool struct {
	db *gorm.DB
}

// NewPool wraps an open database.
func NewPool(db *gorm.DB) *Pool {
	return &Pool{db: db}
}

func (p *Pool) Session(ctx context.Context) *gorm.DB {
	return p.db.Session(&gorm.Session{NewDB: true, Context: ctx})
}

func (p *Pool) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connections.
func (p *Pool) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Open connects using cfg and, when asked, creates the products table.
func Open(ctx context.Context, cfg Config) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("empty data source for driver %q", cfg.Driver)
	}

	gormCfg := &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  newGormLogger(cfg.Log),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case DriverPostgres:
		db, err = openPostgres(cfg.DSN, gormCfg)
	case DriverSQLite:
		db, err = gorm.Open(sqlite.New(sqlite.Config{DriverName: sqliteDriverName, DSN: cfg.DSN}), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	pool := NewPool(db)
	if err := pool.Ping(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(&models.Product{}); err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("migrate products table: %w", err)
		}
	}
	return db, nil
}

func newGormLogger(log *zap.Logger) logger.Interface {
	if log == nil {
		log = zap.NewNop()
	}
	return logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func openPostgres(dsn string, gormCfg *gorm.Config) (*gorm.DB, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	sqlDB := stdlib.OpenDB(*connConfig)
	configurePool(sqlDB)

	return gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
}

func configurePool(sqlDB *sql.DB) {
	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}
