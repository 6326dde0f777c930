package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// PairEntry is one direction of a resolved pair
type PairEntry struct {
	Path       string    `json:"path" yaml:"path" toml:"path"`
	Complement string    `json:"complement" yaml:"complement" toml:"complement"`
	Root       string    `json:"root" yaml:"root" toml:"root"`
	Scope      string    `json:"scope,omitempty" yaml:"scope,omitempty" toml:"scope,omitempty"`
	CreatedAt  time.Time `json:"createdAt" yaml:"createdAt" toml:"createdAt"`
}

// CacheStats summarizes cache contents
type CacheStats struct {
	Pairs           int `json:"pairs" yaml:"pairs"`
	Negative        int `json:"negative" yaml:"negative"`
	ExpiredNegative int `json:"expiredNegative" yaml:"expiredNegative"`
}

// PairCache stores resolved complementary paths keyed by absolute path
type PairCache struct {
	db  *DB
	now func() time.Time
}

// NewPairCache creates a cache on top of an open database
func NewPairCache(db *DB) *PairCache {
	return &PairCache{db: db, now: time.Now}
}

// Get returns the cached complement for path. The entry's Scope tells which
// lookup settings produced it.
func (c *PairCache) Get(path string) (PairEntry, bool, error) {
	var entry PairEntry
	var createdAt string

	err := c.db.QueryRow(`
		SELECT path, complement, root, scope, created_at
		FROM pairs
		WHERE path = ?
	`, path).Scan(&entry.Path, &entry.Complement, &entry.Root, &entry.Scope, &createdAt)

	if err == sql.ErrNoRows {
		return PairEntry{}, false, nil
	}
	if err != nil {
		return PairEntry{}, false, fmt.Errorf("pair cache lookup failed: %w", err)
	}

	entry.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return PairEntry{}, false, fmt.Errorf("invalid created_at format: %w", err)
	}

	return entry, true, nil
}

// Put stores path and complement in both directions under scope and drops
// any negative entries for either side.
func (c *PairCache) Put(path, complement, root, scope string) error {
	now := c.now().UTC().Format(time.RFC3339)

	return c.db.WithTx(func(tx *sql.Tx) error {
		for _, p := range [][2]string{{path, complement}, {complement, path}} {
			if _, err := tx.Exec(`
				INSERT OR REPLACE INTO pairs (path, complement, root, scope, created_at)
				VALUES (?, ?, ?, ?, ?)
			`, p[0], p[1], root, scope, now); err != nil {
				return fmt.Errorf("failed to store pair: %w", err)
			}
		}
		if _, err := tx.Exec("DELETE FROM negative_cache WHERE path IN (?, ?)", path, complement); err != nil {
			return fmt.Errorf("failed to clear negative entries: %w", err)
		}
		return nil
	})
}

// Invalidate drops every entry that mentions path, in either column, and
// its negative entry. It returns the number of rows removed.
func (c *PairCache) Invalidate(path string) (int, error) {
	removed := 0
	err := c.db.WithTx(func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM pairs WHERE path = ? OR complement = ?", path, path)
		if err != nil {
			return fmt.Errorf("failed to invalidate pairs: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += int(n)

		res, err = tx.Exec("DELETE FROM negative_cache WHERE path = ?", path)
		if err != nil {
			return fmt.Errorf("failed to invalidate negative entry: %w", err)
		}
		n, _ = res.RowsAffected()
		removed += int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Clear removes all pair and negative entries
func (c *PairCache) Clear() error {
	return c.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM pairs"); err != nil {
			return fmt.Errorf("failed to clear pairs: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM negative_cache"); err != nil {
			return fmt.Errorf("failed to clear negative cache: %w", err)
		}
		return nil
	})
}

// Stats counts cache rows
func (c *PairCache) Stats() (CacheStats, error) {
	var stats CacheStats
	now := c.now().UTC().Format(time.RFC3339)

	if err := c.db.QueryRow("SELECT COUNT(*) FROM pairs").Scan(&stats.Pairs); err != nil {
		return stats, fmt.Errorf("failed to count pairs: %w", err)
	}
	if err := c.db.QueryRow("SELECT COUNT(*) FROM negative_cache").Scan(&stats.Negative); err != nil {
		return stats, fmt.Errorf("failed to count negative entries: %w", err)
	}
	if err := c.db.QueryRow("SELECT COUNT(*) FROM negative_cache WHERE expires_at <= ?", now).Scan(&stats.ExpiredNegative); err != nil {
		return stats, fmt.Errorf("failed to count expired entries: %w", err)
	}

	return stats, nil
}

// Entries lists every pair row ordered by path
func (c *PairCache) Entries() ([]PairEntry, error) {
	rows, err := c.db.Query(`
		SELECT path, complement, root, scope, created_at
		FROM pairs
		ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pairs: %w", err)
	}
	defer rows.Close()

	entries := []PairEntry{}
	for rows.Next() {
		var e PairEntry
		var createdAt string
		if err := rows.Scan(&e.Path, &e.Complement, &e.Root, &e.Scope, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan pair: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at format: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pairs: %w", err)
	}

	return entries, nil
}

// Import writes entries as-is, replacing rows with the same path. Entries
// without a path or complement are skipped. It returns the number stored.
func (c *PairCache) Import(entries []PairEntry) (int, error) {
	stored := 0
	err := c.db.WithTx(func(tx *sql.Tx) error {
		for _, e := range entries {
			if e.Path == "" || e.Complement == "" {
				continue
			}
			created := e.CreatedAt
			if created.IsZero() {
				created = c.now()
			}
			if _, err := tx.Exec(`
				INSERT OR REPLACE INTO pairs (path, complement, root, scope, created_at)
				VALUES (?, ?, ?, ?, ?)
			`, e.Path, e.Complement, e.Root, e.Scope, created.UTC().Format(time.RFC3339)); err != nil {
				return fmt.Errorf("failed to import pair %s: %w", e.Path, err)
			}
			stored++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stored, nil
}
