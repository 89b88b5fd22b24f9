package admin

import (
	"net/http"

	"go.uber.org/zap"

	adminmw "github.com/victorgomez09/portal/internal/admin/middleware"
	authmw "github.com/victorgomez09/portal/internal/auth/middleware"
	"github.com/victorgomez09/portal/internal/auth/models"
	authservice "github.com/victorgomez09/portal/internal/auth/service"
	"github.com/victorgomez09/portal/internal/cerr"
	"github.com/victorgomez09/portal/internal/middleware"
	"github.com/victorgomez09/portal/internal/service"
)

// AdminAPI serves the /api/admin tree. Every route requires an active admin.
type AdminAPI struct {
	authService *authservice.AuthService
	portal      *service.Manager
	writer      *cerr.Writer
	logger      *zap.Logger
}

func NewAdminAPI(authService *authservice.AuthService, portal *service.Manager, writer *cerr.Writer, logger *zap.Logger) *AdminAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminAPI{
		authService: authService,
		portal:      portal,
		writer:      writer,
		logger:      logger,
	}
}

// Routes registers the admin endpoints on mux. restrict, when not nil, runs before the gate
// and is typically an IP allowlist.
func (a *AdminAPI) Routes(mux *http.ServeMux, gate *authmw.Gate, restrict middleware.Middleware) {
	chain := middleware.NewMiddlewareChain()
	chain.Use(
		restrict,
		gate,
		middleware.Func(gate.AuthorizeRoles(models.RoleAdmin)),
		adminmw.NewAccessLogMiddleware(a.logger),
	)

	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, chain.Then(h))
	}

	handle("GET /api/admin/users", a.listUsers)
	handle("POST /api/admin/users", a.createUser)
	handle("GET /api/admin/users/{id}", a.getUser)
	handle("PUT /api/admin/users/{id}", a.updateUser)
	handle("PATCH /api/admin/users/{id}/status", a.setUserStatus)

	handle("GET /api/admin/requests", a.listRequests)
	handle("GET /api/admin/requests/{id}", a.getRequest)
	handle("PUT /api/admin/requests/{id}", a.updateRequest)
	handle("PATCH /api/admin/requests/{id}/status", a.setRequestStatus)

	handle("GET /api/admin/content", a.listPages)
	handle("POST /api/admin/content", a.createPage)
	handle("GET /api/admin/content/{id}", a.getPage)
	handle("PUT /api/admin/content/{id}", a.updatePage)
	handle("PATCH /api/admin/content/{id}/status", a.setPageStatus)

	handle("GET /api/admin/audit", a.listAudit)
}
