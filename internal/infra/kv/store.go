// Package kv implements the assessment repositories on top of a string
// key-value persistence store. Every collection is stored as one JSON snapshot.
package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Store is the persistence contract: whole-value get/set/remove by key.
type Store interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	// Commit writes every entry of set and removes every key in remove as one
	// all-or-nothing operation.
	Commit(ctx context.Context, set map[string]string, remove []string) error
}

// Persisted collection keys.
const (
	KeyBooks         = "booksDatabase"
	KeyAnswers       = "answersDatabase"
	KeyHistory       = "historyRecords"
	KeySharedReports = "sharedReports"
)

// loadJSON decodes the value at key into dst. A missing key reports false.
// Malformed JSON is logged and also reports false so callers fall back to an
// empty collection.
func loadJSON(ctx context.Context, store Store, log *logrus.Logger, key string, dst any) (bool, error) {
	raw, ok, err := store.GetItem(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		log.WithError(err).WithField("key", key).Warn("malformed persisted state, using empty data")
		return false, nil
	}
	return true, nil
}

func encode(key string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", key, err)
	}
	return string(data), nil
}

func orStandard(log *logrus.Logger) *logrus.Logger {
	if log == nil {
		return logrus.StandardLogger()
	}
	return log
}
