// Package storage regroupe les backends clé/valeur utilisés pour les snapshots
// de panier et les tentatives de paiement.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("key not found")

// Storage stocke une valeur opaque par clé. ttl <= 0 signifie sans expiration.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
