package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rafaelsava/S2Market/internal/domain"
)

const (
	snapshotTimeout  = 5 * time.Second
	snapshotAttempts = 2
)

// SnapshotStore persists carts across restarts, keyed per user.
type SnapshotStore interface {
	Load(ctx context.Context, userID string) ([]domain.CartLine, error)
	Save(ctx context.Context, userID string, lines []domain.CartLine) error
}

// Sessions owns one Store per buyer. At most size carts are held in memory;
// the least recently used one is dropped when a new buyer arrives.
type Sessions struct {
	mu        sync.Mutex
	carts     *lru.Cache[string, *Store]
	snapshots SnapshotStore
	logger    *slog.Logger
}

// NewSessions creates the registry. snapshots may be nil, in which case
// carts live only in memory.
func NewSessions(size int, snapshots SnapshotStore, logger *slog.Logger) (*Sessions, error) {
	if logger == nil {
		logger = slog.Default()
	}

	carts, err := lru.NewWithEvict(size, func(userID string, _ *Store) {
		logger.Debug("cart session evicted", "user_id", userID)
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}

	return &Sessions{
		carts:     carts,
		snapshots: snapshots,
		logger:    logger,
	}, nil
}

// Open returns the buyer's cart, creating it (and loading its snapshot) on
// first use.
func (s *Sessions) Open(ctx context.Context, userID string) (*Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.carts.Get(userID); ok {
		return st, nil
	}

	var lines []domain.CartLine
	if s.snapshots != nil {
		loaded, err := s.snapshots.Load(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load cart snapshot for %s: %w", userID, err)
		}
		lines = loaded
	}

	st := NewStore(lines...)
	if s.snapshots != nil {
		st.onChange = s.saver(userID)
	}
	s.carts.Add(userID, st)

	s.logger.Debug("cart session opened", "user_id", userID, "lines", len(lines))
	return st, nil
}

// Close disposes of the buyer's in-memory cart. A persisted snapshot, if
// any, is kept.
func (s *Sessions) Close(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts.Remove(userID)
}

func (s *Sessions) Len() int {
	return s.carts.Len()
}

// saver writes every change through to the snapshot store. A failed save is
// retried once. A cleared cart that still cannot be saved would come back
// after a restart, so that case is reported on its own.
func (s *Sessions) saver(userID string) func([]domain.CartLine) {
	return func(lines []domain.CartLine) {
		var err error
		for attempt := 0; attempt < snapshotAttempts; attempt++ {
			if err = s.save(userID, lines); err == nil {
				return
			}
		}

		if len(lines) == 0 {
			s.logger.Error("failed to save cleared cart, stale lines will return after a restart",
				"error", err, "user_id", userID, "attempts", snapshotAttempts)
			return
		}
		s.logger.Error("failed to save cart snapshot", "error", err, "user_id", userID, "attempts", snapshotAttempts)
	}
}

func (s *Sessions) save(userID string, lines []domain.CartLine) error {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	return s.snapshots.Save(ctx, userID, lines)
}
