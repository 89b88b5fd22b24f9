package admin

import (
	"net/http"
	"strings"

	"github.com/victorgomez09/portal/internal/auth/models"
	"github.com/victorgomez09/portal/internal/auth/validation"
	"github.com/victorgomez09/portal/internal/cerr"
)

type StatusRequest struct {
	Status string `json:"status"`
}

func pageParams(r *http.Request) (int, int) {
	return validation.Pagination(cerr.QueryInt(r, "page", 1), cerr.QueryInt(r, "limit", 10))
}

// userFilter reads role, status and search; unknown role or status values are a 400.
func userFilter(r *http.Request) (models.UserFilter, error) {
	q := r.URL.Query()
	f := models.UserFilter{
		Role:   models.Role(q.Get("role")),
		Status: models.Status(q.Get("status")),
		Search: strings.TrimSpace(q.Get("search")),
	}

	err := validation.New().
		Check(f.Role == "" || f.Role.Valid(), "role", "must be client or admin").
		Check(f.Status == "" || f.Status.Valid(), "status", "must be active, inactive or suspended").
		MaxLen("search", f.Search, 100).
		Err()
	return f, err
}

func requestFilter(r *http.Request) models.RequestFilter {
	return models.RequestFilter{
		ClientID: int64(cerr.QueryInt(r, "clientId", 0)),
		Status:   models.RequestStatus(r.URL.Query().Get("status")),
	}
}

func decodeStatus(w http.ResponseWriter, r *http.Request) (string, error) {
	var req StatusRequest
	if err := cerr.DecodeJSON(w, r, &req); err != nil {
		return "", err
	}
	if err := validation.New().Required("status", req.Status).Err(); err != nil {
		return "", err
	}
	return req.Status, nil
}
