// package repositories implements SQLite persistence for the match cache.
//
// [MatchRepository] stores accepted query/URI matches keyed by channel so
// re-syncing a channel skips searches that already resolved. It satisfies
// the tasks.MatchCache interface; cache misses and storage failures both
// degrade to a fresh search, so every method treats the database as
// best-effort.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/chantify/internal/models"
	"github.com/desertthunder/chantify/internal/shared"
)

// MatchRepository persists accepted search matches in the matches table.
type MatchRepository struct {
	db *sql.DB
}

// NewMatchRepository creates a new MatchRepository with the given database connection
func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Lookup returns the cached match for a channel/query pair. ok is false
// on a miss or any database failure.
func (r *MatchRepository) Lookup(channel, query string) (uri, candidate string, similarity float64, ok bool) {
	row := r.db.QueryRow(`
		SELECT uri, candidate, similarity
		FROM matches
		WHERE channel = ? AND query = ?
	`, channel, query)

	if err := row.Scan(&uri, &candidate, &similarity); err != nil {
		return "", "", 0, false
	}
	return uri, candidate, similarity, true
}

// Store records an accepted match. Re-storing an existing channel/query
// pair updates it in place, so a better candidate from a later run wins.
func (r *MatchRepository) Store(channel, query, uri, candidate string, similarity float64) error {
	_, err := r.db.Exec(`
		INSERT INTO matches (id, channel, query, uri, candidate, similarity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (channel, query) DO UPDATE
		SET uri = excluded.uri, candidate = excluded.candidate, similarity = excluded.similarity
	`, shared.GenerateID(), channel, query, uri, candidate, similarity, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store match: %w", err)
	}
	return nil
}

// List returns every cached match for a channel, newest first. An empty
// channel lists the entire cache.
func (r *MatchRepository) List(channel string) ([]models.CachedMatch, error) {
	query := `
		SELECT channel, query, uri, candidate, similarity, created_at
		FROM matches
	`
	var args []any
	if channel != "" {
		query += " WHERE channel = ?"
		args = append(args, channel)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []models.CachedMatch
	for rows.Next() {
		var m models.CachedMatch
		if err := rows.Scan(&m.Channel, &m.Query, &m.URI, &m.Candidate, &m.Similarity, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Count returns the number of cached matches for a channel, or for the
// whole cache when channel is empty.
func (r *MatchRepository) Count(channel string) (int, error) {
	var count int
	var err error
	if channel == "" {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM matches`).Scan(&count)
	} else {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM matches WHERE channel = ?`, channel).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}

// Clear deletes cached matches for a channel, or the entire cache when
// channel is empty. Returns the number of deleted rows.
func (r *MatchRepository) Clear(channel string) (int, error) {
	var result sql.Result
	var err error
	if channel == "" {
		result, err = r.db.Exec(`DELETE FROM matches`)
	} else {
		result, err = r.db.Exec(`DELETE FROM matches WHERE channel = ?`, channel)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to clear matches: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(deleted), nil
}
