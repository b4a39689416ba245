package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/split-session-service/interfaces"
)

// MultiStore replicates sessions across several stores. The first store is
// the primary: its result decides every operation. Writes are then mirrored
// to the remaining stores on a best-effort basis, and reads fall back to the
// mirrors while the primary is unavailable.
type MultiStore struct {
	primary interfaces.SessionStore
	mirrors []interfaces.SessionStore
	log     *slog.Logger
}

// NewMultiStore creates a replicating store. At least one store is required.
func NewMultiStore(stores []interfaces.SessionStore, logger *slog.Logger) (*MultiStore, error) {
	if len(stores) == 0 {
		return nil, errors.New("multi store requires at least one store")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStore{
		primary: stores[0],
		mirrors: stores[1:],
		log:     logger,
	}, nil
}

func (m *MultiStore) Create(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	if err := m.primary.Create(ctx, snapshot); err != nil {
		return err
	}
	m.mirror(snapshot.ID, func(store interfaces.SessionStore) error {
		return upsert(ctx, store, snapshot)
	})
	return nil
}

func (m *MultiStore) Update(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	if err := m.primary.Update(ctx, snapshot); err != nil {
		return err
	}
	m.mirror(snapshot.ID, func(store interfaces.SessionStore) error {
		return upsert(ctx, store, snapshot)
	})
	return nil
}

func (m *MultiStore) Delete(ctx context.Context, id interfaces.SessionID) error {
	if err := m.primary.Delete(ctx, id); err != nil {
		return err
	}
	m.mirror(id, func(store interfaces.SessionStore) error {
		if err := store.Delete(ctx, id); err != nil && !errors.Is(err, interfaces.ErrSessionNotFound) {
			return err
		}
		return nil
	})
	return nil
}

// Fetch reads from the primary. Only when the primary fails with anything
// but ErrSessionNotFound are the mirrors consulted, in order.
func (m *MultiStore) Fetch(ctx context.Context, id interfaces.SessionID) (*interfaces.SessionSnapshot, error) {
	start := time.Now()

	snapshot, err := m.primary.Fetch(ctx, id)
	if err == nil || errors.Is(err, interfaces.ErrSessionNotFound) {
		return snapshot, err
	}

	errs := []error{fmt.Errorf("%s: %w", m.primary.Name(), err)}
	for _, store := range m.mirrors {
		if !store.Available(ctx) {
			m.log.Debug("Mirror unavailable", slog.String("store", store.Name()))
			continue
		}

		snapshot, err := store.Fetch(ctx, id)
		if err == nil {
			m.log.Warn("Fetched session from mirror",
				slog.String("store", store.Name()),
				slog.String("sessionID", string(id)),
				slog.Duration("duration", time.Since(start)))
			return snapshot, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
	}

	m.log.Error("All stores failed to fetch session",
		slog.String("sessionID", string(id)),
		slog.Int("failed_stores", len(errs)))
	return nil, fmt.Errorf("%w: all stores failed to fetch %s: %w", interfaces.ErrBackendUnavailable, id, errors.Join(errs...))
}

// Available reports the availability of the primary.
func (m *MultiStore) Available(ctx context.Context) bool {
	return m.primary.Available(ctx)
}

func (m *MultiStore) Name() string {
	return "multi"
}

func (m *MultiStore) LocationURI() string {
	locations := []string{m.primary.LocationURI()}
	for _, store := range m.mirrors {
		locations = append(locations, store.LocationURI())
	}
	return strings.Join(locations, ",")
}

// Close closes every store holding resources.
func (m *MultiStore) Close() error {
	var errs []error
	for _, store := range append([]interfaces.SessionStore{m.primary}, m.mirrors...) {
		if closer, ok := store.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

func (m *MultiStore) mirror(id interfaces.SessionID, write func(interfaces.SessionStore) error) {
	for _, store := range m.mirrors {
		if err := write(store); err != nil {
			m.log.Warn("Failed to mirror session",
				slog.String("store", store.Name()),
				slog.String("sessionID", string(id)),
				"err", err)
		}
	}
}

// upsert writes snapshot to a mirror whatever the mirror currently holds.
func upsert(ctx context.Context, store interfaces.SessionStore, snapshot *interfaces.SessionSnapshot) error {
	err := store.Update(ctx, snapshot)
	if errors.Is(err, interfaces.ErrSessionNotFound) {
		err = store.Create(ctx, snapshot)
	}
	return err
}
