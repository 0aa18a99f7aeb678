package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// InitSchema creates the address history and geocode cache tables.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createHistoryQuery := `
	CREATE TABLE IF NOT EXISTS address_history (
		id BIGSERIAL PRIMARY KEY,
		address TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createHistoryIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_address_history_created_at
	ON address_history(created_at DESC, id DESC);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	statements := []string{
		createHistoryQuery,
		createHistoryIndexQuery,
		createGeocodeCacheQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type AddressSeed struct {
	Address string `json:"address"`
}

// readAddressSeeds parses and validates a JSON array of addresses.
func readAddressSeeds(jsonPath string) ([]string, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed addresses: read %q: %w", jsonPath, err)
	}

	var data []AddressSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("seed addresses: parse json: %w", err)
	}

	out := make([]string, 0, len(data))
	for i, item := range data {
		addr := strings.Join(strings.Fields(item.Address), " ")
		if addr == "" {
			return nil, fmt.Errorf("seed addresses: item at index %d: address cannot be empty", i+1)
		}
		out = append(out, addr)
	}

	return out, nil
}

// SeedHistoryFromJSON appends the addresses in a JSON file to the history,
// oldest first, so the last entry becomes the most recent.
func SeedHistoryFromJSON(ctx context.Context, db *sql.DB, jsonPath string) (int, error) {
	addresses, err := readAddressSeeds(jsonPath)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed addresses: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO address_history (address) VALUES ($1);`)
	if err != nil {
		return 0, fmt.Errorf("seed addresses: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range addresses {
		if _, err := stmt.ExecContext(ctx, a); err != nil {
			return 0, fmt.Errorf("seed addresses: insert %q: %w", a, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed addresses: commit tx: %w", err)
	}

	return len(addresses), nil
}
