package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// NegativeEntry records a path that recently had no complement
type NegativeEntry struct {
	Path      string
	Root      string
	Scope     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// PutNegative records a miss for path under scope that expires after ttl.
// A zero or negative ttl stores nothing.
func (c *PairCache) PutNegative(path, root, scope string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := c.now().UTC()

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO negative_cache (path, root, scope, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, path, root, scope, now.Add(ttl).Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}
	return nil
}

// GetNegative returns the live negative entry for path. Expired entries are
// deleted on read and reported as absent.
func (c *PairCache) GetNegative(path string) (*NegativeEntry, error) {
	var entry NegativeEntry
	var expiresAt, createdAt string

	err := c.db.QueryRow(`
		SELECT path, root, scope, expires_at, created_at
		FROM negative_cache
		WHERE path = ?
	`, path).Scan(&entry.Path, &entry.Root, &entry.Scope, &expiresAt, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("negative cache lookup failed: %w", err)
	}

	if entry.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return nil, fmt.Errorf("invalid expires_at format: %w", err)
	}
	if entry.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at format: %w", err)
	}

	if !c.now().Before(entry.ExpiresAt) {
		_, _ = c.db.Exec("DELETE FROM negative_cache WHERE path = ?", path)
		return nil, nil
	}

	return &entry, nil
}

// ClearNegative drops every negative entry. The watcher calls this when
// files are created.
func (c *PairCache) ClearNegative() (int, error) {
	res, err := c.db.Exec("DELETE FROM negative_cache")
	if err != nil {
		return 0, fmt.Errorf("failed to clear negative cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CleanupExpired removes expired negative entries
func (c *PairCache) CleanupExpired() (int, error) {
	res, err := c.db.Exec("DELETE FROM negative_cache WHERE expires_at <= ?", c.now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup negative cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
