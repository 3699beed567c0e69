package input

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pleimann/keymode/internal/config"
	"github.com/pleimann/keymode/internal/gesture"
)

// Normalizer filters raw key signals down to edges for monitored keys.
// Edges leave in the order signals arrive.
type Normalizer struct {
	mu        sync.RWMutex
	monitored map[string]bool
	logger    *slog.Logger
	now       func() time.Time
}

// NewNormalizer creates a normalizer that passes only keys
func NewNormalizer(keys []string, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Normalizer{
		logger: logger,
		now:    time.Now,
	}
	n.SetKeys(keys)
	return n
}

// SetKeys replaces the monitored key set
func (n *Normalizer) SetKeys(keys []string) {
	monitored := make(map[string]bool, len(keys))
	for _, k := range keys {
		monitored[config.NormalizeKey(k)] = true
	}

	n.mu.Lock()
	n.monitored = monitored
	n.mu.Unlock()
}

// Normalize converts one raw signal. It reports false for repeats and
// unmonitored keys.
func (n *Normalizer) Normalize(raw RawKey) (gesture.KeyEdge, bool) {
	if raw.Repeat {
		return gesture.KeyEdge{}, false
	}

	key := config.NormalizeKey(raw.Name)
	n.mu.RLock()
	ok := n.monitored[key]
	n.mu.RUnlock()
	if !ok {
		return gesture.KeyEdge{}, false
	}

	edge := gesture.Up
	if raw.Down {
		edge = gesture.Down
	}
	at := raw.Time
	if at.IsZero() {
		at = n.now()
	}
	return gesture.KeyEdge{Key: key, Edge: edge, Time: at}, true
}

// Run normalizes signals from in and passes the edges to submit until ctx is
// done, in is closed, or submit fails.
func (n *Normalizer) Run(ctx context.Context, in <-chan RawKey, submit func(gesture.KeyEdge) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-in:
			if !ok {
				return nil
			}
			edge, ok := n.Normalize(raw)
			if !ok {
				continue
			}
			n.logger.Debug("key edge", "key", edge.Key, "edge", edge.Edge.String())
			if err := submit(edge); err != nil {
				return err
			}
		}
	}
}
