package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	apierr "github.com/victorgomez09/portal/internal/auth"
	"github.com/victorgomez09/portal/internal/auth/models"
)

const requestColumns = `r.id, r.reference, r.client_id, u.email, r.title, r.description,
        r.service_type, r.budget, r.status, r.admin_notes, r.created_at, r.updated_at`

const requestFrom = ` FROM service_requests r JOIN users u ON u.id = r.client_id`

func scanRequest(row rowScanner) (*models.ServiceRequest, error) {
	var (
		req    models.ServiceRequest
		budget sql.NullFloat64
	)
	err := row.Scan(
		&req.ID, &req.Reference, &req.ClientID, &req.ClientEmail, &req.Title, &req.Description,
		&req.ServiceType, &budget, &req.Status, &req.AdminNotes, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound
		}
		return nil, err
	}
	if budget.Valid {
		req.Budget = &budget.Float64
	}
	return &req, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// CreateRequest inserts a pending request and assigns its public reference.
func (q *Queries) CreateRequest(ctx context.Context, req *models.ServiceRequest) error {
	now := time.Now().UTC()
	req.Reference = uuid.NewString()
	req.Status = models.RequestPending
	req.CreatedAt = now
	req.UpdatedAt = now

	res, err := q.q.ExecContext(ctx, `
        INSERT INTO service_requests (
            reference, client_id, title, description, service_type, budget,
            status, admin_notes, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, '', ?, ?)
    `, req.Reference, req.ClientID, req.Title, req.Description, req.ServiceType,
		nullFloat(req.Budget), req.Status, now, now)
	if err != nil {
		return fmt.Errorf("insert service request: %w", err)
	}

	req.ID, err = res.LastInsertId()
	return err
}

func (q *Queries) GetRequest(ctx context.Context, id int64) (*models.ServiceRequest, error) {
	return scanRequest(q.q.QueryRowContext(ctx,
		`SELECT `+requestColumns+requestFrom+` WHERE r.id = ?`, id))
}

// ListRequests pages through requests; a non-zero ClientID restricts to that client.
func (q *Queries) ListRequests(ctx context.Context, filter models.RequestFilter, page models.Page) ([]models.ServiceRequest, int, error) {
	var where conditions
	if filter.ClientID != 0 {
		where.add("r.client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		where.add("r.status = ?", filter.Status)
	}

	var total int
	if err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM service_requests r`+where.sql(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count service requests: %w", err)
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT `+requestColumns+requestFrom+where.sql()+` ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`,
		append(where.args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list service requests: %w", err)
	}
	defer rows.Close()

	items := make([]models.ServiceRequest, 0, page.Limit)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *req)
	}

	return items, total, rows.Err()
}

// UpdateRequest writes the editable fields of a request. Status has its own statement.
func (q *Queries) UpdateRequest(ctx context.Context, req *models.ServiceRequest) error {
	req.UpdatedAt = time.Now().UTC()
	res, err := q.q.ExecContext(ctx, `
        UPDATE service_requests SET
            title = ?,
            description = ?,
            service_type = ?,
            budget = ?,
            admin_notes = ?,
            updated_at = ?
        WHERE id = ?
    `, req.Title, req.Description, req.ServiceType, nullFloat(req.Budget),
		req.AdminNotes, req.UpdatedAt, req.ID)
	if err != nil {
		return fmt.Errorf("update service request: %w", err)
	}
	return expectAffected(res, apierr.ErrNotFound)
}

// UpdateRequestStatus moves a request from one status to another. It yields
// ErrConflict when the request is no longer in from.
func (q *Queries) UpdateRequestStatus(ctx context.Context, id int64, from, to models.RequestStatus) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE service_requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update service request status: %w", err)
	}
	return expectAffected(res, apierr.ErrConflict)
}
