package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/platform/obs"
	"strings"
)

// Postgres-backed implementation of the AddressHistoryRepository port.
type SQLAddressHistoryRepository struct{ DB *sql.DB }

func NewSQLAddressHistoryRepository(db *sql.DB) *SQLAddressHistoryRepository {
	return &SQLAddressHistoryRepository{DB: db}
}

func (s *SQLAddressHistoryRepository) SaveAddress(ctx context.Context, address string) (_ domain.AddressEntry, err error) {
	defer obs.Time(ctx, "history.SaveAddress")(&err)

	if s.DB == nil {
		return domain.AddressEntry{}, errors.New("address history repository: DB is nil")
	}

	address = strings.TrimSpace(address)
	if address == "" {
		return domain.AddressEntry{}, domain.ErrNoDestinationEntered
	}

	entry := domain.AddressEntry{Address: address}
	err = s.DB.QueryRowContext(ctx, `
	INSERT INTO address_history (address)
	VALUES ($1)
	RETURNING id, created_at;
	`, address).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return domain.AddressEntry{}, fmt.Errorf("save address %q: %w", address, err)
	}

	return entry, nil
}

// Return up to limit addresses, newest first.
func (s *SQLAddressHistoryRepository) ListAddresses(ctx context.Context, limit int) (_ []domain.AddressEntry, err error) {
	defer obs.Time(ctx, "history.ListAddresses")(&err)

	if s.DB == nil {
		return nil, errors.New("address history repository: DB is nil")
	}
	if limit <= 0 {
		return []domain.AddressEntry{}, nil
	}

	query := `
	SELECT
		id,
		address,
		created_at
	FROM address_history
	ORDER BY created_at DESC, id DESC
	LIMIT $1;
	`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list addresses: query address_history table: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AddressEntry, 0, limit)
	for rows.Next() {
		var e domain.AddressEntry
		if err := rows.Scan(&e.ID, &e.Address, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("list addresses: scan row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list addresses: row iteration: %w", err)
	}

	return entries, nil
}
