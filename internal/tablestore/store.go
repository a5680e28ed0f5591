package tablestore

import (
	"context"
	"errors"
)

var (
	// ErrWrite marks a rejected or failed record write.
	ErrWrite = errors.New("table store write failed")

	// ErrProvision marks a table bootstrap failure other than the table
	// already existing. This is the only fatal storage error class.
	ErrProvision = errors.New("table provisioning failed")

	// ErrNotFound is returned by GetRecord for an unknown key.
	ErrNotFound = errors.New("record not found")

	// ErrEmptyForecast is returned when there are no samples to write.
	ErrEmptyForecast = errors.New("empty forecast payload")
)

// Store is a single-table key-value store for forecast records.
type Store interface {
	// EnsureTable creates the destination table if needed. A table that
	// already exists is success; any other failure wraps ErrProvision.
	EnsureTable(ctx context.Context) error

	// PutRecords upserts every record by its CityDate key. Failure of
	// any item surfaces an ErrWrite; nothing is silently dropped.
	PutRecords(ctx context.Context, records []Record) error

	// GetRecord reads one record back by key.
	GetRecord(ctx context.Context, cityDate string) (*Record, error)
}
