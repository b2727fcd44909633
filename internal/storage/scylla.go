package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
)

const scyllaSchema = `CREATE TABLE IF NOT EXISTS snapshots (
	key text PRIMARY KEY,
	value blob
)`

type ScyllaStorage struct {
	session *gocql.Session
}

// NewScyllaStorage crée la table snapshots si besoin
func NewScyllaStorage(session *gocql.Session) (*ScyllaStorage, error) {
	if err := session.Query(scyllaSchema).Exec(); err != nil {
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}
	return &ScyllaStorage{session: session}, nil
}

func (s *ScyllaStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.session.Query(`SELECT value FROM snapshots WHERE key = ?`, key).
		WithContext(ctx).Scan(&value)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scylla get failed: %w", err)
	}
	return value, nil
}

func (s *ScyllaStorage) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	q := s.session.Query(`INSERT INTO snapshots (key, value) VALUES (?, ?)`, key, value)
	if seconds := int(ttl.Seconds()); seconds > 0 {
		q = s.session.Query(`INSERT INTO snapshots (key, value) VALUES (?, ?) USING TTL ?`, key, value, seconds)
	}
	if err := q.WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("scylla set failed: %w", err)
	}
	return nil
}

func (s *ScyllaStorage) Delete(ctx context.Context, key string) error {
	if err := s.session.Query(`DELETE FROM snapshots WHERE key = ?`, key).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("scylla delete failed: %w", err)
	}
	return nil
}
