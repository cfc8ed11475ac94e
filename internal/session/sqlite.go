package session

import (
	"context"
	"time"

	"gamezone/internal/storage"
)

// SQLiteStorage adapts the local database to the Storage interface.
type SQLiteStorage struct {
	db  *storage.DB
	ttl time.Duration
}

func NewSQLiteStorage(db *storage.DB, ttl time.Duration) *SQLiteStorage {
	return &SQLiteStorage{db: db, ttl: ttl}
}

func (s *SQLiteStorage) Load(ctx context.Context, id string) (map[string]string, error) {
	return s.db.LoadSession(ctx, id)
}

func (s *SQLiteStorage) Save(ctx context.Context, id string, values map[string]string) error {
	return s.db.SaveSession(ctx, id, values, s.ttl)
}

func (s *SQLiteStorage) Delete(ctx context.Context, id string) error {
	return s.db.DeleteSession(ctx, id)
}

// CleanExpired satisfies cache.Cleaner.
func (s *SQLiteStorage) CleanExpired() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := s.db.PurgeExpiredSessions(ctx)
	if err != nil {
		return 0
	}
	return int(n)
}
