// Package store remembers the last connection used, so that the analyser
// can be restarted without giving the caster details again.  The settings
// are kept as key-value pairs in a sqlite database.  They are not
// encrypted, so the database file should be readable only by its owner.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/goblimey/go-ntrip-analyser/config"
)

// The keys of the stored settings.
const (
	keyHost       = "host"
	keyPort       = "port"
	keyUsername   = "username"
	keyPassword   = "password"
	keyMountpoint = "mountpoint"
	keyUseTLS     = "use_tls"
	keyProtocol   = "protocol"
)

// requiredKeys must all be present for a stored connection to be used.
var requiredKeys = []string{keyHost, keyUsername, keyPassword, keyMountpoint}

// Store is the settings database.
type Store struct {
	db *sql.DB
}

// Open opens the database, creating it if necessary.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create settings table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores the connection, replacing the one stored before.
func (s *Store) Save(ctx context.Context, cfg config.Connection) error {
	values := map[string]string{
		keyHost:       cfg.Host,
		keyPort:       strconv.Itoa(cfg.Port),
		keyUsername:   cfg.Username,
		keyPassword:   cfg.Password,
		keyMountpoint: cfg.Mountpoint,
		keyUseTLS:     strconv.FormatBool(cfg.UseTLS),
		keyProtocol:   string(cfg.Protocol),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for key, value := range values {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings(key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, key, value, now); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load returns the stored connection.  The boolean is false if no complete
// connection has been stored.  Missing or unreadable optional settings take
// their defaults:  port 2101, TLS off and protocol REV2.
func (s *Store) Load(ctx context.Context) (config.Connection, bool, error) {
	values, err := s.values(ctx)
	if err != nil {
		return config.Connection{}, false, err
	}

	for _, key := range requiredKeys {
		if _, ok := values[key]; !ok {
			return config.Connection{}, false, nil
		}
	}

	cfg := config.Connection{
		Host:       values[keyHost],
		Port:       config.DefaultPort,
		Username:   values[keyUsername],
		Password:   values[keyPassword],
		Mountpoint: values[keyMountpoint],
		Protocol:   config.REV2,
	}
	if port, err := strconv.Atoi(values[keyPort]); err == nil {
		cfg.Port = port
	}
	if useTLS, err := strconv.ParseBool(values[keyUseTLS]); err == nil {
		cfg.UseTLS = useTLS
	}
	if protocol, err := config.ParseProtocol(values[keyProtocol]); err == nil {
		cfg.Protocol = protocol
	}

	return cfg, true, nil
}

// values reads all of the settings.
func (s *Store) values(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return values, nil
}
