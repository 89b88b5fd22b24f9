package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/victorgomez09/portal/internal/auth/database"
	"github.com/victorgomez09/portal/internal/auth/models"
	"github.com/victorgomez09/portal/internal/auth/validation"
)

type PageInput struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (in PageInput) check(c *validation.Checker) *validation.Checker {
	return c.Required("slug", in.Slug).
		Slug("slug", in.Slug).
		MaxLen("slug", in.Slug, 100).
		Required("title", in.Title).
		MaxLen("title", in.Title, 200).
		Required("body", in.Body)
}

func (m *Manager) CreatePage(ctx context.Context, actorID int64, in PageInput, ip string) (*models.ContentPage, error) {
	if err := in.check(validation.New()).Err(); err != nil {
		return nil, err
	}

	page := &models.ContentPage{
		Slug:      in.Slug,
		Title:     strings.TrimSpace(in.Title),
		Body:      in.Body,
		Status:    models.PageDraft,
		UpdatedBy: actorID,
	}
	err := m.db.WithTx(ctx, func(q *database.Queries) error {
		if err := q.CreatePage(ctx, page); err != nil {
			return err
		}
		return m.audit(ctx, q, actorID, ActionPageCreated, page.Slug, ip)
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (m *Manager) GetPage(ctx context.Context, id int64) (*models.ContentPage, error) {
	return m.db.GetPage(ctx, id)
}

// PublishedPage returns the page at slug if it is published.
func (m *Manager) PublishedPage(ctx context.Context, slug string) (*models.ContentPage, error) {
	return m.db.GetPublishedPage(ctx, slug)
}

func (m *Manager) ListPages(ctx context.Context, status models.PageStatus, page, limit int) ([]models.ContentPage, models.Page, error) {
	if status != "" && !status.Valid() {
		return nil, models.Page{}, validation.New().Check(false, "status", "must be draft or published").Err()
	}
	p := models.NewPage(page, limit, 0)
	items, total, err := m.db.ListPages(ctx, status, p)
	if err != nil {
		return nil, p, err
	}
	return items, models.NewPage(page, limit, total), nil
}

func (m *Manager) UpdatePage(ctx context.Context, actorID, id int64, in PageInput, ip string) (*models.ContentPage, error) {
	if err := in.check(validation.New()).Err(); err != nil {
		return nil, err
	}

	page, err := m.db.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	page.Slug = in.Slug
	page.Title = strings.TrimSpace(in.Title)
	page.Body = in.Body
	page.UpdatedBy = actorID

	err = m.db.WithTx(ctx, func(q *database.Queries) error {
		if err := q.UpdatePage(ctx, page); err != nil {
			return err
		}
		return m.audit(ctx, q, actorID, ActionPageUpdated, page.Slug, ip)
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (m *Manager) SetPageStatus(ctx context.Context, actorID, id int64, status models.PageStatus, ip string) (*models.ContentPage, error) {
	if !status.Valid() {
		return nil, validation.New().Check(false, "status", "must be draft or published").Err()
	}

	err := m.db.WithTx(ctx, func(q *database.Queries) error {
		if err := q.UpdatePageStatus(ctx, id, status, actorID); err != nil {
			return err
		}
		return m.audit(ctx, q, actorID, ActionPageStatusChanged, fmt.Sprintf("page %d -> %s", id, status), ip)
	})
	if err != nil {
		return nil, err
	}
	return m.db.GetPage(ctx, id)
}
