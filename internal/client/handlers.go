package client

import (
	"net/http"

	"go.uber.org/zap"

	authmw "github.com/victorgomez09/portal/internal/auth/middleware"
	"github.com/victorgomez09/portal/internal/auth/models"
	authservice "github.com/victorgomez09/portal/internal/auth/service"
	"github.com/victorgomez09/portal/internal/auth/validation"
	"github.com/victorgomez09/portal/internal/cerr"
	"github.com/victorgomez09/portal/internal/middleware"
	"github.com/victorgomez09/portal/internal/service"
)

type StatusRequest struct {
	Status string `json:"status"`
}

type UnreadCount struct {
	Unread int `json:"unread"`
}

func (c *ClientAPI) getProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := authmw.UserFromContext(r.Context())
	if !ok {
		c.writer.Error(w, r, cerr.Unauthenticated("get profile", "Access token required"))
		return
	}
	c.writer.JSON(w, http.StatusOK, "", user)
}

func (c *ClientAPI) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in authservice.ProfileInput
	if err := cerr.DecodeJSON(w, r, &in); err != nil {
		c.writer.Error(w, r, err)
		return
	}

	user, err := c.authService.UpdateProfile(r.Context(), caller(r).ID, in, middleware.ClientIP(r))
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}
	c.writer.JSON(w, http.StatusOK, "Profile updated", user)
}

func (c *ClientAPI) listRequests(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	filter := models.RequestFilter{Status: models.RequestStatus(r.URL.Query().Get("status"))}

	items, p, err := c.portal.ListRequests(r.Context(), owner(r), filter, page, limit)
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}
	c.writer.JSON(w, http.StatusOK, "", models.Paged[models.ServiceRequest]{Items: items, Pagination: p})
}

func (c *ClientAPI) createRequest(w http.ResponseWriter, r *http.Request) {
	var in service.RequestInput
	if err := cerr.DecodeJSON(w, r, &in); err != nil {
		c.writer.Error(w, r, err)
		return
	}

	req, err := c.portal.CreateRequest(r.Context(), caller(r).ID, in, middleware.ClientIP(r))
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}
	c.writer.JSON(w, http.StatusCreated, "Request created", req)
}

// owner is the caller narrowed to the client role. Admins reach this tree too but only
// see requests they filed themselves.
func owner(r *http.Request) models.Identity {
	id := caller(r)
	id.Role = models.RoleClient
	return id
}

func (c *ClientAPI) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := cerr.PathID(r, "id")
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}

	req, err := c.portal.GetRequest(r.Context(), owner(r), id)
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}
	c.writer.JSON(w, http.StatusOK, "", req)
}

func (c *ClientAPI) updateRequest(w http.ResponseWriter, r *http.Request) {
	id, err := cerr.PathID(r, "id")
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}

	var in service.RequestInput
	if err := cerr.DecodeJSON(w, r, &in); err != nil {
		c.writer.Error(w, r, err)
		return
	}

	req, err := c.portal.UpdateRequest(r.Context(), owner(r), id, in, middleware.ClientIP(r))
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}
	c.writer.JSON(w, http.StatusOK, "Request updated", req)
}

func (c *ClientAPI) setRequestStatus(w http.ResponseWriter, r *http.Request) {
	id, err := cerr.PathID(r, "id")
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}

	var in StatusRequest
	if err := cerr.DecodeJSON(w, r, &in); err != nil {
		c.writer.Error(w, r, err)
		return
	}
	if err := validation.New().Required("status", in.Status).Err(); err != nil {
		c.writer.Error(w, r, err)
		return
	}

	req, err := c.portal.SetRequestStatus(r.Context(), owner(r), id, models.RequestStatus(in.Status), middleware.ClientIP(r))
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}
	c.writer.JSON(w, http.StatusOK, "Request status updated", req)
}

func (c *ClientAPI) listNotifications(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	unread := r.URL.Query().Get("unread") == "true"

	items, p, err := c.portal.ListNotifications(r.Context(), caller(r).ID, unread, page, limit)
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}
	c.writer.JSON(w, http.StatusOK, "", models.Paged[models.Notification]{Items: items, Pagination: p})
}

func (c *ClientAPI) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := c.portal.UnreadCount(r.Context(), caller(r).ID)
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}
	c.writer.JSON(w, http.StatusOK, "", UnreadCount{Unread: n})
}

func (c *ClientAPI) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := cerr.PathID(r, "id")
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}

	if err := c.portal.MarkRead(r.Context(), caller(r).ID, id); err != nil {
		c.writer.Error(w, r, err)
		return
	}
	c.writer.JSON(w, http.StatusOK, "Notification marked as read", nil)
}

// streamNotifications upgrades to a websocket. A failed upgrade has already been answered
// by the upgrader.
func (c *ClientAPI) streamNotifications(w http.ResponseWriter, r *http.Request) {
	if c.stream == nil {
		c.writer.Error(w, r, cerr.NotFound("stream", "Notification stream is disabled"))
		return
	}

	userID := caller(r).ID
	if err := c.stream.Serve(w, r, userID); err != nil {
		c.logger.Debug("Notification stream upgrade failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
