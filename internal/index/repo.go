package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// AddLink records l. Adding an edge that is already live is a no-op.
func (db *DB) AddLink(ctx context.Context, l models.Link) error {
	createdAt := l.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO links (base, target, link_type, tag, author, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(l.Base), string(l.Target), l.Type, l.Tag, string(l.Author), createdAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return apperr.Unavailable("index: add link", err)
	}
	return nil
}

// RemoveLink deletes the live edge matching l's base, target, type, and tag.
// It returns apperr.ErrNotFound when no such edge exists.
func (db *DB) RemoveLink(ctx context.Context, l models.Link) error {
	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM links WHERE base = ? AND target = ? AND link_type = ? AND tag = ?
	`, string(l.Base), string(l.Target), l.Type, l.Tag)
	if err != nil {
		return apperr.Unavailable("index: remove link", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Unavailable("index: remove link", err)
	}
	if n == 0 {
		return fmt.Errorf("index: link %s -[%s/%s]-> %s: %w", l.Base, l.Type, l.Tag, l.Target, apperr.ErrNotFound)
	}
	return nil
}

// Links returns the live edges leaving base, in insertion order.
func (db *DB) Links(ctx context.Context, base models.Address, linkType, tag models.LinkMatch) ([]models.Link, error) {
	return db.query(ctx, "base", base, linkType, tag)
}

// Backlinks returns the live edges arriving at target, in insertion order.
func (db *DB) Backlinks(ctx context.Context, target models.Address, linkType, tag models.LinkMatch) ([]models.Link, error) {
	return db.query(ctx, "target", target, linkType, tag)
}

func (db *DB) query(ctx context.Context, column string, addr models.Address, linkType, tag models.LinkMatch) ([]models.Link, error) {
	var (
		where = []string{column + " = ?"}
		args  = []any{string(addr)}
	)
	if !linkType.IsAny() {
		where = append(where, "link_type = ?")
		args = append(args, linkType.Value())
	}
	if !tag.IsAny() {
		where = append(where, "tag = ?")
		args = append(args, tag.Value())
	}
	q := `SELECT base, target, link_type, tag, author, created_at FROM links WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.Unavailable("index: query links", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

// allLinks returns every live edge, in insertion order.
func (db *DB) allLinks(ctx context.Context) ([]models.Link, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT base, target, link_type, tag, author, created_at FROM links ORDER BY id`)
	if err != nil {
		return nil, apperr.Unavailable("index: all links", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

func scanLinks(rows *sql.Rows) ([]models.Link, error) {
	var out []models.Link
	for rows.Next() {
		var (
			l                           models.Link
			base, target, author, stamp string
		)
		if err := rows.Scan(&base, &target, &l.Type, &l.Tag, &author, &stamp); err != nil {
			return nil, apperr.Unavailable("index: scan link", err)
		}
		l.Base = models.Address(base)
		l.Target = models.Address(target)
		l.Author = models.Address(author)
		l.CreatedAt, _ = time.Parse(time.RFC3339Nano, stamp)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("index: iterate links", err)
	}
	return out, nil
}
