package ports

import (
	"context"
	"live-navigation-service/internal/domain"
)

// Port: a boundary for storing and listing navigated addresses.
type AddressHistoryRepository interface {
	// Record an address the user navigated to.
	SaveAddress(ctx context.Context, address string) (domain.AddressEntry, error)
	// Retrieve up to limit entries, newest first.
	ListAddresses(ctx context.Context, limit int) ([]domain.AddressEntry, error)
}
