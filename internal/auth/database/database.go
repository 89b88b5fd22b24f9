package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/victorgomez09/portal/internal/auth/database/migrations"
	"github.com/victorgomez09/portal/internal/logger"
)

const (
	DriverName     = "sqlite"
	gooseDialect   = "sqlite3"
	busyTimeoutMS  = 5000
	defaultTimeout = 5 * time.Second
)

// SQLiteDB owns the connection pool. Its embedded Queries run outside any transaction;
// WithTx hands out a Queries bound to a single transaction.
type SQLiteDB struct {
	*Queries
	db *sql.DB
}

// NewSQLiteDB opens the database at dbPath, enables foreign keys and a busy timeout on every
// connection, and applies pending migrations.
func NewSQLiteDB(ctx context.Context, dbPath string, log *zap.Logger) (*SQLiteDB, error) {
	db, err := sql.Open(DriverName, dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// sqlite serialises writers; one connection avoids SQLITE_BUSY on lock upgrades
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(ctx, db, log); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteDB{Queries: NewQueries(db), db: db}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

func migrate(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(logger.NewGooseLogger(log.Named("migrations")))
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// WithTx runs fn against a transaction-bound Queries. The transaction commits only if fn
// returns nil; an error or panic rolls back every write made through q.
func (s *SQLiteDB) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		return fn(NewQueries(tx))
	})
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
