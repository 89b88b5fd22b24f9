package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apierr "github.com/victorgomez09/portal/internal/auth"
	"github.com/victorgomez09/portal/internal/auth/models"
)

const pageColumns = `id, slug, title, body, status, updated_by, created_at, updated_at`

func scanPage(row rowScanner) (*models.ContentPage, error) {
	var p models.ContentPage
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Body, &p.Status, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreatePage inserts a page; a duplicate slug yields apierr.ErrConflict.
func (q *Queries) CreatePage(ctx context.Context, p *models.ContentPage) error {
	now := time.Now().UTC()
	if p.Status == "" {
		p.Status = models.PageDraft
	}

	res, err := q.q.ExecContext(ctx, `
        INSERT INTO content_pages (slug, title, body, status, updated_by, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, p.Slug, p.Title, p.Body, p.Status, p.UpdatedBy, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return apierr.ErrConflict
		}
		return fmt.Errorf("insert content page: %w", err)
	}

	p.ID, err = res.LastInsertId()
	p.CreatedAt = now
	p.UpdatedAt = now
	return err
}

func (q *Queries) GetPage(ctx context.Context, id int64) (*models.ContentPage, error) {
	return scanPage(q.q.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM content_pages WHERE id = ?`, id))
}

func (q *Queries) GetPublishedPage(ctx context.Context, slug string) (*models.ContentPage, error) {
	return scanPage(q.q.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM content_pages WHERE slug = ? AND status = ?`, slug, models.PagePublished))
}

func (q *Queries) ListPages(ctx context.Context, status models.PageStatus, page models.Page) ([]models.ContentPage, int, error) {
	var where conditions
	if status != "" {
		where.add("status = ?", status)
	}

	total, err := q.count(ctx, "content_pages", where)
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM content_pages`+where.sql()+` ORDER BY slug ASC LIMIT ? OFFSET ?`,
		append(where.args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list content pages: %w", err)
	}
	defer rows.Close()

	items := make([]models.ContentPage, 0, page.Limit)
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *p)
	}

	return items, total, rows.Err()
}

func (q *Queries) UpdatePage(ctx context.Context, p *models.ContentPage) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := q.q.ExecContext(ctx, `
        UPDATE content_pages SET slug = ?, title = ?, body = ?, updated_by = ?, updated_at = ?
        WHERE id = ?
    `, p.Slug, p.Title, p.Body, p.UpdatedBy, p.UpdatedAt, p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apierr.ErrConflict
		}
		return fmt.Errorf("update content page: %w", err)
	}
	return expectAffected(res, apierr.ErrNotFound)
}

func (q *Queries) UpdatePageStatus(ctx context.Context, id int64, status models.PageStatus, by int64) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE content_pages SET status = ?, updated_by = ?, updated_at = ? WHERE id = ?`,
		status, by, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update content page status: %w", err)
	}
	return expectAffected(res, apierr.ErrNotFound)
}
