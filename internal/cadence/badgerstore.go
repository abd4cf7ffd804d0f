package cadence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timshannon/badgerhold/v4"
)

const badgerKey = "cadence"

// setting is the stored record for the cadence value.
type setting struct {
	Key       string `badgerhold:"key"`
	Value     string
	UpdatedAt time.Time
}

// BadgerStore keeps the cadence in a Badger key/value database. It is the
// backend to prefer when the bot shares a data directory with other state.
type BadgerStore struct {
	store *badgerhold.Store
}

// NewBadgerStore opens (or creates) a Badger database at the given path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	return &BadgerStore{store: store}, nil
}

// Read returns the stored cadence, or the default when no record exists.
func (s *BadgerStore) Read(ctx context.Context) (Cadence, error) {
	var record setting
	err := s.store.Get(badgerKey, &record)
	if err == badgerhold.ErrNotFound {
		return Default, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cadence: %w", err)
	}

	value := strings.ToUpper(strings.TrimSpace(record.Value))
	if value == "" {
		return Default, nil
	}
	return Cadence(value), nil
}

// Write upserts the cadence record.
func (s *BadgerStore) Write(ctx context.Context, c Cadence) error {
	record := setting{
		Key:       badgerKey,
		Value:     strings.ToUpper(string(c)),
		UpdatedAt: time.Now(),
	}

	if err := s.store.Upsert(badgerKey, &record); err != nil {
		return fmt.Errorf("failed to write cadence: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.store.Close()
}
