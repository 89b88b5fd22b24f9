package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	apierr "github.com/victorgomez09/portal/internal/auth"
	"github.com/victorgomez09/portal/internal/auth/database"
	"github.com/victorgomez09/portal/internal/auth/models"
	"github.com/victorgomez09/portal/internal/auth/validation"
	"github.com/victorgomez09/portal/internal/cerr"
)

// RequestInput holds the client-editable fields of a service request.
type RequestInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ServiceType string   `json:"serviceType"`
	Budget      *float64 `json:"budget"`
}

func (in RequestInput) check(c *validation.Checker) *validation.Checker {
	return c.Required("title", in.Title).
		MaxLen("title", in.Title, 200).
		Required("description", in.Description).
		MaxLen("description", in.Description, 5000).
		Check(slices.Contains(models.ServiceTypes, in.ServiceType), "serviceType",
			"must be one of "+strings.Join(models.ServiceTypes, ", ")).
		Check(in.Budget == nil || *in.Budget >= 0, "budget", "must not be negative")
}

// AdminRequestUpdate is the administrator's edit of a request.
type AdminRequestUpdate struct {
	RequestInput
	AdminNotes string `json:"adminNotes"`
}

// adminTransitions lists the statuses an administrator may move a request to.
// Completed and cancelled requests are closed.
var adminTransitions = map[models.RequestStatus][]models.RequestStatus{
	models.RequestPending:    {models.RequestInReview, models.RequestInProgress, models.RequestCancelled},
	models.RequestInReview:   {models.RequestPending, models.RequestInProgress, models.RequestCancelled},
	models.RequestInProgress: {models.RequestInReview, models.RequestCompleted, models.RequestCancelled},
}

var statusLabels = map[models.RequestStatus]string{
	models.RequestPending:    "pending",
	models.RequestInReview:   "in review",
	models.RequestInProgress: "in progress",
	models.RequestCompleted:  "completed",
	models.RequestCancelled:  "cancelled",
}

func (m *Manager) CreateRequest(ctx context.Context, clientID int64, in RequestInput, ip string) (*models.ServiceRequest, error) {
	if err := in.check(validation.New()).Err(); err != nil {
		return nil, err
	}

	req := &models.ServiceRequest{
		ClientID:    clientID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		ServiceType: in.ServiceType,
		Budget:      in.Budget,
	}

	err := m.db.WithTx(ctx, func(q *database.Queries) error {
		if err := q.CreateRequest(ctx, req); err != nil {
			return err
		}
		return m.audit(ctx, q, clientID, ActionRequestCreated, req.Reference, ip)
	})
	if err != nil {
		return nil, err
	}

	return m.db.GetRequest(ctx, req.ID)
}

// GetRequest returns a request visible to caller. Clients only see their own; any other
// request is reported as not found.
func (m *Manager) GetRequest(ctx context.Context, caller models.Identity, id int64) (*models.ServiceRequest, error) {
	req, err := m.db.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleAdmin && req.ClientID != caller.ID {
		return nil, apierr.ErrNotFound
	}
	return req, nil
}

// ListRequests pages through requests. Clients are always scoped to their own.
func (m *Manager) ListRequests(ctx context.Context, caller models.Identity, filter models.RequestFilter, page, limit int) ([]models.ServiceRequest, models.Page, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, models.Page{}, validation.New().Check(false, "status", "is not a valid request status").Err()
	}
	if caller.Role != models.RoleAdmin {
		filter.ClientID = caller.ID
	}

	p := models.NewPage(page, limit, 0)
	items, total, err := m.db.ListRequests(ctx, filter, p)
	if err != nil {
		return nil, p, err
	}
	return items, models.NewPage(page, limit, total), nil
}

// UpdateRequest lets a client edit their own request while it is still pending.
func (m *Manager) UpdateRequest(ctx context.Context, caller models.Identity, id int64, in RequestInput, ip string) (*models.ServiceRequest, error) {
	if err := in.check(validation.New()).Err(); err != nil {
		return nil, err
	}

	req, err := m.GetRequest(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestPending {
		return nil, cerr.Conflict("update request", "Only pending requests can be edited")
	}

	req.Title = strings.TrimSpace(in.Title)
	req.Description = strings.TrimSpace(in.Description)
	req.ServiceType = in.ServiceType
	req.Budget = in.Budget

	err = m.db.WithTx(ctx, func(q *database.Queries) error {
		if err := q.UpdateRequest(ctx, req); err != nil {
			return err
		}
		return m.audit(ctx, q, caller.ID, ActionRequestUpdated, req.Reference, ip)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// AdminUpdateRequest edits any request's fields and notes regardless of status.
func (m *Manager) AdminUpdateRequest(ctx context.Context, actorID, id int64, in AdminRequestUpdate, ip string) (*models.ServiceRequest, error) {
	c := in.RequestInput.check(validation.New()).MaxLen("adminNotes", in.AdminNotes, 5000)
	if err := c.Err(); err != nil {
		return nil, err
	}

	req, err := m.db.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Title = strings.TrimSpace(in.Title)
	req.Description = strings.TrimSpace(in.Description)
	req.ServiceType = in.ServiceType
	req.Budget = in.Budget
	req.AdminNotes = in.AdminNotes

	err = m.db.WithTx(ctx, func(q *database.Queries) error {
		if err := q.UpdateRequest(ctx, req); err != nil {
			return err
		}
		return m.audit(ctx, q, actorID, ActionRequestUpdated, req.Reference, ip)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// SetRequestStatus moves a request to status. A client may only cancel their own pending
// request. An administrator follows adminTransitions, and the owning client is notified
// of every change.
func (m *Manager) SetRequestStatus(ctx context.Context, caller models.Identity, id int64, status models.RequestStatus, ip string) (*models.ServiceRequest, error) {
	if !status.Valid() {
		return nil, validation.New().Check(false, "status", "is not a valid request status").Err()
	}

	req, err := m.GetRequest(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if req.Status == status {
		return req, nil
	}

	if caller.Role != models.RoleAdmin {
		if status != models.RequestCancelled {
			return nil, cerr.Forbidden("set request status", "Clients may only cancel a request")
		}
		if req.Status != models.RequestPending {
			return nil, cerr.Conflict("set request status", "Only pending requests can be cancelled")
		}
	} else if !slices.Contains(adminTransitions[req.Status], status) {
		return nil, cerr.Conflict("set request status",
			fmt.Sprintf("Cannot move a request from %s to %s", req.Status, status))
	}

	var note *models.Notification
	err = m.db.WithTx(ctx, func(q *database.Queries) error {
		if err := q.UpdateRequestStatus(ctx, id, req.Status, status); err != nil {
			if errors.Is(err, apierr.ErrConflict) {
				return cerr.Conflict("set request status", "Request status changed, reload and retry")
			}
			return err
		}
		detail := fmt.Sprintf("%s %s -> %s", req.Reference, req.Status, status)
		if err := m.audit(ctx, q, caller.ID, ActionRequestStatusChanged, detail, ip); err != nil {
			return err
		}
		if caller.ID == req.ClientID {
			return nil
		}
		note = &models.Notification{
			UserID:  req.ClientID,
			Kind:    NotificationRequestStatus,
			Title:   fmt.Sprintf("Request %q is %s", req.Title, statusLabels[status]),
			Message: fmt.Sprintf("Your request %s is now %s.", req.Reference, statusLabels[status]),
		}
		return q.CreateNotification(ctx, note)
	})
	if err != nil {
		return nil, err
	}

	m.deliver(ctx, note, req.ClientEmail)
	return m.db.GetRequest(ctx, id)
}
