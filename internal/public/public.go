package public

import (
	"context"
	"net/http"

	"github.com/victorgomez09/portal/internal/auth/models"
	"github.com/victorgomez09/portal/internal/cerr"
	"github.com/victorgomez09/portal/internal/health"
)

// Pages looks up published content.
type Pages interface {
	PublishedPage(ctx context.Context, slug string) (*models.ContentPage, error)
}

// HealthReporter exposes the latest database check.
type HealthReporter interface {
	Status() health.Status
}

// Health is the body of /api/health.
type Health struct {
	Status   string        `json:"status"`
	Database health.Status `json:"database"`
}

// API serves the endpoints that need no token.
type API struct {
	pages  Pages
	health HealthReporter
	writer *cerr.Writer
}

func NewAPI(pages Pages, health HealthReporter, writer *cerr.Writer) *API {
	return &API{pages: pages, health: health, writer: writer}
}

func (a *API) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/content/{slug}", a.page)
	mux.HandleFunc("GET /api/health", a.healthz)
}

func (a *API) page(w http.ResponseWriter, r *http.Request) {
	page, err := a.pages.PublishedPage(r.Context(), r.PathValue("slug"))
	if err != nil {
		a.writer.Error(w, r, err)
		return
	}
	a.writer.JSON(w, http.StatusOK, "", page)
}

// healthz answers 503 until the database has passed a check.
func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	s := a.health.Status()
	if !s.Healthy {
		a.writer.Unavailable(w, "Service unavailable", Health{Status: "unhealthy", Database: s})
		return
	}
	a.writer.JSON(w, http.StatusOK, "", Health{Status: "healthy", Database: s})
}
