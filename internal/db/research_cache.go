package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ResearchCache stores research text in the research_cache table with an expiry
type ResearchCache struct {
	db  *DB
	now func() time.Time
}

// NewResearchCache creates a table-backed research cache
func NewResearchCache(db *DB) *ResearchCache {
	return &ResearchCache{db: db, now: time.Now}
}

// Get returns cached content for a key if present and not expired
func (c *ResearchCache) Get(ctx context.Context, key string) (string, bool, error) {
	var content string
	err := c.db.queryRow(ctx, c.db.conn,
		`SELECT content FROM research_cache WHERE query_hash = ? AND expires_at > ?`,
		key, toMillis(c.now()),
	).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read research cache: %w", err)
	}
	return content, true, nil
}

// Set stores content under key, replacing any previous entry
func (c *ResearchCache) Set(ctx context.Context, key, query, content string, ttl time.Duration) error {
	now := c.now()
	_, err := c.db.exec(ctx, c.db.conn,
		`INSERT INTO research_cache (query_hash, query, content, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (query_hash) DO UPDATE SET
			query = excluded.query,
			content = excluded.content,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		key, query, content, toMillis(now), toMillis(now.Add(ttl)),
	)
	if err != nil {
		return fmt.Errorf("failed to write research cache: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired entries and returns how many were removed
func (c *ResearchCache) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := c.db.exec(ctx, c.db.conn,
		`DELETE FROM research_cache WHERE expires_at <= ?`,
		toMillis(c.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge research cache: %w", err)
	}
	return res.RowsAffected()
}
