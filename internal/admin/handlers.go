package admin

import (
	"net/http"

	authmw "github.com/victorgomez09/portal/internal/auth/middleware"
	"github.com/victorgomez09/portal/internal/auth/models"
	authservice "github.com/victorgomez09/portal/internal/auth/service"
	"github.com/victorgomez09/portal/internal/cerr"
	"github.com/victorgomez09/portal/internal/middleware"
	"github.com/victorgomez09/portal/internal/service"
)

func caller(r *http.Request) models.Identity {
	id, _ := authmw.IdentityFromContext(r.Context())
	return id
}

func (a *AdminAPI) listUsers(w http.ResponseWriter, r *http.Request) {
	filter, err := userFilter(r)
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	page, limit := pageParams(r)

	users, p, err := a.authService.ListUsers(r.Context(), filter, page, limit)
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "", models.Paged[models.User]{Items: users, Pagination: p})
}

func (a *AdminAPI) createUser(w http.ResponseWriter, r *http.Request) {
	var in authservice.CreateUserInput
	if err := cerr.DecodeJSON(w, r, &in); err != nil {
		a.writer.Error(w, r, err)
		return
	}

	actor := caller(r).ID
	user, err := a.authService.CreateUser(r.Context(), &actor, in, middleware.ClientIP(r))
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusCreated, "User created", user)
}

func (a *AdminAPI) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := cerr.PathID(r, "id")
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}

	user, err := a.authService.GetUser(r.Context(), id)
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "", user)
}

func (a *AdminAPI) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := cerr.PathID(r, "id")
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}

	var in authservice.UserUpdate
	if err := cerr.DecodeJSON(w, r, &in); err != nil {
		a.writer.Error(w, r, err)
		return
	}

	user, err := a.authService.UpdateUser(r.Context(), caller(r).ID, id, in, middleware.ClientIP(r))
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "User updated", user)
}

func (a *AdminAPI) setUserStatus(w http.ResponseWriter, r *http.Request) {
	id, err := cerr.PathID(r, "id")
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}

	status, err := decodeStatus(w, r)
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}

	user, err := a.authService.SetStatus(r.Context(), caller(r).ID, id, models.Status(status), middleware.ClientIP(r))
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "User status updated", user)
}

func (a *AdminAPI) listRequests(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	items, p, err := a.portal.ListRequests(r.Context(), caller(r), requestFilter(r), page, limit)
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "", models.Paged[models.ServiceRequest]{Items: items, Pagination: p})
}

func (a *AdminAPI) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := cerr.PathID(r, "id")
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}

	req, err := a.portal.GetRequest(r.Context(), caller(r), id)
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "", req)
}

func (a *AdminAPI) updateRequest(w http.ResponseWriter, r *http.Request) {
	id, err := cerr.PathID(r, "id")
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}

	var in service.AdminRequestUpdate
	if err := cerr.DecodeJSON(w, r, &in); err != nil {
		a.writer.Error(w, r, err)
		return
	}

	req, err := a.portal.AdminUpdateRequest(r.Context(), caller(r).ID, id, in, middleware.ClientIP(r))
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "Request updated", req)
}

func (a *AdminAPI) setRequestStatus(w http.ResponseWriter, r *http.Request) {
	id, err := cerr.PathID(r, "id")
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}

	status, err := decodeStatus(w, r)
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}

	req, err := a.portal.SetRequestStatus(r.Context(), caller(r), id, models.RequestStatus(status), middleware.ClientIP(r))
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "Request status updated", req)
}

func (a *AdminAPI) listPages(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	items, p, err := a.portal.ListPages(r.Context(), models.PageStatus(r.URL.Query().Get("status")), page, limit)
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "", models.Paged[models.ContentPage]{Items: items, Pagination: p})
}

func (a *AdminAPI) createPage(w http.ResponseWriter, r *http.Request) {
	var in service.PageInput
	if err := cerr.DecodeJSON(w, r, &in); err != nil {
		a.writer.Error(w, r, err)
		return
	}

	page, err := a.portal.CreatePage(r.Context(), caller(r).ID, in, middleware.ClientIP(r))
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusCreated, "Page created", page)
}

func (a *AdminAPI) getPage(w http.ResponseWriter, r *http.Request) {
	id, err := cerr.PathID(r, "id")
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}

	page, err := a.portal.GetPage(r.Context(), id)
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "", page)
}

func (a *AdminAPI) updatePage(w http.ResponseWriter, r *http.Request) {
	id, err := cerr.PathID(r, "id")
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}

	var in service.PageInput
	if err := cerr.DecodeJSON(w, r, &in); err != nil {
		a.writer.Error(w, r, err)
		return
	}

	page, err := a.portal.UpdatePage(r.Context(), caller(r).ID, id, in, middleware.ClientIP(r))
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "Page updated", page)
}

func (a *AdminAPI) setPageStatus(w http.ResponseWriter, r *http.Request) {
	id, err := cerr.PathID(r, "id")
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}

	status, err := decodeStatus(w, r)
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}

	page, err := a.portal.SetPageStatus(r.Context(), caller(r).ID, id, models.PageStatus(status), middleware.ClientIP(r))
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "Page status updated", page)
}

func (a *AdminAPI) listAudit(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	items, p, err := a.portal.ListAudit(r.Context(), int64(cerr.QueryInt(r, "userId", 0)), r.URL.Query().Get("action"), page, limit)
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "", models.Paged[models.AuditLog]{Items: items, Pagination: p})
}
