package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// OpenMySQL connects to MySQL and verifies the connection.
func OpenMySQL(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens a SQLite database for local development and tests.
// The busy timeout makes concurrent writers queue instead of failing
// immediately with SQLITE_BUSY.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers anyway; a single connection avoids lock
	// churn while still exercising the same SQL as MySQL.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// The active_seat column is the exclusivity mechanism: it mirrors
// seat_number while a booking is ACTIVE and is set to NULL once the
// booking is expired or completed.  The unique index on it turns
// "insert if no active booking exists for this seat" into a single
// atomic conditional write on both backends (NULL values never collide).
const schemaMySQL = `
CREATE TABLE IF NOT EXISTS seat_bookings (
    id                 BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    seat_number        INT NOT NULL,
    active_seat        INT NULL,
    order_id           VARCHAR(64) NOT NULL,
    user_id            VARCHAR(64) NULL,
    user_name          VARCHAR(128) NULL,
    status             VARCHAR(16) NOT NULL,
    is_temporary       TINYINT(1) NOT NULL DEFAULT 1,
    payment_verified   TINYINT(1) NOT NULL DEFAULT 0,
    payment_status     VARCHAR(16) NOT NULL DEFAULT 'PENDING',
    payment_method     VARCHAR(16) NOT NULL DEFAULT 'GATEWAY',
    gateway_order_id   VARCHAR(64) NULL,
    gateway_payment_id VARCHAR(64) NULL,
    gateway_amount     BIGINT NULL,
    gateway_currency   VARCHAR(8) NULL,
    order_details      TEXT NULL,
    booked_at          DATETIME NOT NULL,
    expires_at         DATETIME NOT NULL,
    PRIMARY KEY (id),
    UNIQUE KEY uq_active_seat (active_seat),
    KEY idx_order (order_id),
    KEY idx_status_expiry (status, expires_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS seat_bookings (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    seat_number        INTEGER NOT NULL,
    active_seat        INTEGER NULL UNIQUE,
    order_id           TEXT NOT NULL,
    user_id            TEXT NULL,
    user_name          TEXT NULL,
    status             TEXT NOT NULL,
    is_temporary       INTEGER NOT NULL DEFAULT 1,
    payment_verified   INTEGER NOT NULL DEFAULT 0,
    payment_status     TEXT NOT NULL DEFAULT 'PENDING',
    payment_method     TEXT NOT NULL DEFAULT 'GATEWAY',
    gateway_order_id   TEXT NULL,
    gateway_payment_id TEXT NULL,
    gateway_amount     INTEGER NULL,
    gateway_currency   TEXT NULL,
    order_details      TEXT NULL,
    booked_at          DATETIME NOT NULL,
    expires_at         DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order ON seat_bookings (order_id);
CREATE INDEX IF NOT EXISTS idx_status_expiry ON seat_bookings (status, expires_at);`

// Migrate creates the seat_bookings table for the given driver
// ("mysql" or "sqlite3").  It is idempotent.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	if driver == "sqlite3" {
		// SQLite's Exec only runs a single statement at a time when
		// arguments are involved, but plain Exec handles the batch.
		_, err := db.ExecContext(ctx, schemaSQLite)
		return err
	}
	_, err := db.ExecContext(ctx, schemaMySQL)
	return err
}
