package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/muj89/usdt-p2p-moniter/internal/market"
)

const defaultPath = "data/snapshots.db"

// Store keeps every composed snapshot, offer detail included, in a
// local SQLite database. The JSON rolling-history file stays the
// source of truth for exports and backups; the archive exists for
// inspection and is written best-effort.
type Store struct {
	path string
	db   *sql.DB
}

// Open creates (if needed) and opens the archive database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureWAL(db); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{path: path, db: db}, nil
}

func ensureWAL(db *sql.DB) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

// Close closes the DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Insert records one snapshot, replacing any earlier row for the same
// capture time and pair.
func (s *Store) Insert(ctx context.Context, snap market.AssetSnapshot) error {
	buyJSON, err := json.Marshal(snap.BuyOffers)
	if err != nil {
		return fmt.Errorf("marshal buy offers: %w", err)
	}
	sellJSON, err := json.Marshal(snap.SellOffers)
	if err != nil {
		return fmt.Errorf("marshal sell offers: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO snapshots (
	captured_at, asset, fiat,
	buy_price, sell_price, spread,
	buy_offers_count, sell_offers_count,
	buy_offers_json, sell_offers_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		snap.Timestamp, snap.Asset, snap.Fiat,
		snap.BuyPrice, snap.SellPrice, snap.Spread,
		snap.BuyOffersCount, snap.SellOffersCount,
		string(buyJSON), string(sellJSON),
	)
	return err
}

// Recent returns up to limit archived snapshots, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]market.AssetSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT captured_at, asset, fiat,
	buy_price, sell_price, spread,
	buy_offers_count, sell_offers_count,
	buy_offers_json, sell_offers_json
FROM snapshots
ORDER BY captured_at DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.AssetSnapshot
	for rows.Next() {
		var snap market.AssetSnapshot
		var buyJSON, sellJSON string
		if err := rows.Scan(
			&snap.Timestamp, &snap.Asset, &snap.Fiat,
			&snap.BuyPrice, &snap.SellPrice, &snap.Spread,
			&snap.BuyOffersCount, &snap.SellOffersCount,
			&buyJSON, &sellJSON,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(buyJSON), &snap.BuyOffers); err != nil {
			snap.BuyOffers = nil
		}
		if err := json.Unmarshal([]byte(sellJSON), &snap.SellOffers); err != nil {
			snap.SellOffers = nil
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
	captured_at TEXT NOT NULL,
	asset TEXT NOT NULL,
	fiat TEXT NOT NULL,
	buy_price REAL,
	sell_price REAL,
	spread REAL,
	buy_offers_count INTEGER,
	sell_offers_count INTEGER,
	buy_offers_json TEXT,
	sell_offers_json TEXT,
	PRIMARY KEY (captured_at, asset, fiat)
);
`
