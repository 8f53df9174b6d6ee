package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Key is a typed, JSON-encoded entry of a Store with a declared default.
type Key[T any] struct {
	Name    string
	Default T
}

// Keys persisted by the workbench.
const (
	OpenQueriesKey = "zeus.openQueries"
	ActiveIndexKey = "zeus.activeQueryIndex"
	RouteKey       = "zeus.route"
	DarkModeKey    = "zeus.darkMode"
)

// Load reads the value of k. Missing, unreadable or undecodable values are
// logged and the default is returned.
func (k Key[T]) Load(ctx context.Context, s Store, logger *slog.Logger) T {
	logger = orDiscard(logger)
	raw, ok, err := s.Get(ctx, k.Name)
	if err != nil {
		logger.Warn("error reading state key", slog.String("key", k.Name), slog.Any("error", err))
		return k.Default
	}
	if !ok {
		return k.Default
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		logger.Warn("error decoding state key", slog.String("key", k.Name), slog.Any("error", err))
		return k.Default
	}
	return v
}

// Store writes v under k. Failures are logged and returned.
func (k Key[T]) Store(ctx context.Context, s Store, logger *slog.Logger, v T) error {
	logger = orDiscard(logger)
	raw, err := json.Marshal(v)
	if err != nil {
		logger.Warn("error encoding state key", slog.String("key", k.Name), slog.Any("error", err))
		return fmt.Errorf("failed to encode %s: %w", k.Name, err)
	}
	if err := s.Set(ctx, k.Name, raw); err != nil {
		logger.Warn("error setting state key", slog.String("key", k.Name), slog.Any("error", err))
		return err
	}
	return nil
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
