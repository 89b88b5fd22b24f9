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

// Streamer upgrades a request into a notification stream for userID.
type Streamer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID int64) error
}

// ClientAPI serves the /api/client tree to clients and admins. Records are always scoped to the caller.
type ClientAPI struct {
	authService *authservice.AuthService
	portal      *service.Manager
	stream      Streamer
	writer      *cerr.Writer
	logger      *zap.Logger
}

func NewClientAPI(authService *authservice.AuthService, portal *service.Manager, stream Streamer, writer *cerr.Writer, logger *zap.Logger) *ClientAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientAPI{
		authService: authService,
		portal:      portal,
		stream:      stream,
		writer:      writer,
		logger:      logger,
	}
}

func (c *ClientAPI) Routes(mux *http.ServeMux, gate *authmw.Gate) {
	chain := middleware.NewMiddlewareChain()
	chain.Use(gate, middleware.Func(gate.AuthorizeRoles(models.RoleClient, models.RoleAdmin)))

	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, chain.Then(h))
	}

	handle("GET /api/client/profile", c.getProfile)
	handle("PUT /api/client/profile", c.updateProfile)

	handle("GET /api/client/requests", c.listRequests)
	handle("POST /api/client/requests", c.createRequest)
	handle("GET /api/client/requests/{id}", c.getRequest)
	handle("PUT /api/client/requests/{id}", c.updateRequest)
	handle("PATCH /api/client/requests/{id}/status", c.setRequestStatus)

	handle("GET /api/client/notifications", c.listNotifications)
	handle("GET /api/client/notifications/unread-count", c.unreadCount)
	handle("PATCH /api/client/notifications/{id}/read", c.markRead)
	handle("GET /api/client/notifications/stream", c.streamNotifications)
}

func caller(r *http.Request) models.Identity {
	id, _ := authmw.IdentityFromContext(r.Context())
	return id
}

func pageParams(r *http.Request) (int, int) {
	return validation.Pagination(cerr.QueryInt(r, "page", 1), cerr.QueryInt(r, "limit", 10))
}
