package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/mdorg/internal/apperr"
	"github.com/starford/mdorg/internal/models"
)

// UpsertConversion inserts or replaces a conversion record and replaces the
// source's links within a transaction.
func (db *DB) UpsertConversion(c models.Conversion, links []models.Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if c.ConvertedAt.IsZero() {
		c.ConvertedAt = time.Now().UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO conversions (source, output, title, id, checksum, status, error, converted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			output       = excluded.output,
			title        = excluded.title,
			id           = excluded.id,
			checksum     = excluded.checksum,
			status       = excluded.status,
			error        = excluded.error,
			converted_at = excluded.converted_at
	`, c.Source, c.Output, c.Title, c.ID, c.Checksum, c.Status, c.Error, c.ConvertedAt)
	if err != nil {
		return fmt.Errorf("ledger: upsert conversion: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, c.Source); err != nil {
		return fmt.Errorf("ledger: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO links (source, target, id, resolved) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("ledger: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(c.Source, l.Target, l.ID, l.Resolved); err != nil {
				return fmt.Errorf("ledger: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteConversion removes a conversion record and its outgoing links.
func (db *DB) DeleteConversion(source string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, source); err != nil {
		return fmt.Errorf("ledger: delete links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM conversions WHERE source = ?`, source); err != nil {
		return fmt.Errorf("ledger: delete conversion: %w", err)
	}
	return tx.Commit()
}

const conversionColumns = `source, output, title, id, checksum, status, error, converted_at`

func scanConversion(s interface{ Scan(...any) error }) (models.Conversion, error) {
	var c models.Conversion
	err := s.Scan(&c.Source, &c.Output, &c.Title, &c.ID, &c.Checksum, &c.Status, &c.Error, &c.ConvertedAt)
	return c, err
}

// GetConversion returns the record for source or apperr.ErrNotFound.
func (db *DB) GetConversion(source string) (*models.Conversion, error) {
	row := db.conn.QueryRow(`SELECT `+conversionColumns+` FROM conversions WHERE source = ?`, source)
	c, err := scanConversion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger: %s: %w", source, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get conversion: %w", err)
	}
	return &c, nil
}

// GetChecksum returns the checksum of the last successful conversion of
// source, or "" if there is none.
func (db *DB) GetChecksum(source string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM conversions WHERE source = ? AND status = ?`,
		source, models.StatusConverted).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ledger: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns source → checksum for every recorded source.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT source, checksum FROM conversions`)
	if err != nil {
		return nil, fmt.Errorf("ledger: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListConversions returns records ordered by source, optionally filtered by
// status, plus the total matching count.
func (db *DB) ListConversions(status string, limit, offset int) ([]models.Conversion, int, error) {
	where := ""
	var args []any
	if status != "" {
		where = " WHERE status = ?"
		args = append(args, status)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM conversions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ledger: count conversions: %w", err)
	}

	if limit <= 0 {
		limit = -1
	}
	q := `SELECT ` + conversionColumns + ` FROM conversions` + where + ` ORDER BY source LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("ledger: list conversions: %w", err)
	}
	defer rows.Close()

	var out []models.Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// UnresolvedLinks returns every link whose target had no identifier when
// its source was last converted.
func (db *DB) UnresolvedLinks() ([]models.Link, error) {
	rows, err := db.conn.Query(`SELECT source, target FROM links WHERE resolved = 0 ORDER BY source, target`)
	if err != nil {
		return nil, fmt.Errorf("ledger: unresolved links: %w", err)
	}
	defer rows.Close()

	var out []models.Link
	for rows.Next() {
		l := models.Link{}
		if err := rows.Scan(&l.Source, &l.Target); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Backlinks returns the sources that link to the given target title.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("ledger: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Links returns the outgoing links recorded for source, sorted by target.
func (db *DB) Links(source string) ([]models.Link, error) {
	rows, err := db.conn.Query(`SELECT target, id, resolved FROM links WHERE source = ? ORDER BY target`, source)
	if err != nil {
		return nil, fmt.Errorf("ledger: links: %w", err)
	}
	defer rows.Close()

	var out []models.Link
	for rows.Next() {
		l := models.Link{Source: source}
		if err := rows.Scan(&l.Target, &l.ID, &l.Resolved); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Summary counts records by status and links by resolution.
func (db *DB) Summary() (Summary, error) {
	var s Summary
	err := db.conn.QueryRow(`
		SELECT
			count(*),
			coalesce(sum(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			coalesce(sum(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM conversions
	`, models.StatusConverted, models.StatusFailed).Scan(&s.Total, &s.Converted, &s.Failed)
	if err != nil {
		return s, fmt.Errorf("ledger: summary: %w", err)
	}
	err = db.conn.QueryRow(`
		SELECT count(*), coalesce(sum(CASE WHEN resolved = 0 THEN 1 ELSE 0 END), 0) FROM links
	`).Scan(&s.Links, &s.Unresolved)
	if err != nil {
		return s, fmt.Errorf("ledger: summary links: %w", err)
	}
	return s, nil
}
