// AngelaMos | 2026
// handler.go

package devapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/middleware"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/role"
)

type Handler struct {
	service   *Service
	users     *Directory
	resources map[string]Resource
	validator *validator.Validate
	logger    *slog.Logger
}

func NewHandler(service *Service, users *Directory, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = core.DiscardLogger()
	}
	return &Handler{
		service:   service,
		users:     users,
		resources: Fixtures(),
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	loginLimiter func(http.Handler) http.Handler,
) {
	r.Route("/api", func(r chi.Router) {
		r.With(loginLimiter).Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/auth/me", h.Me)
			r.With(middleware.RequireRole(role.OrgAdmin)).Get("/users", h.ListUsers)
			r.With(middleware.RequireRole(role.SuperAdmin)).Get("/tenants", h.ListTenants)
			r.Get("/{resource}", h.ListResource)
		})
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.logger.Info("login rejected", "email", req.Email)
			core.JSONError(
				w,
				core.UnauthorizedError("invalid email or password"),
			)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	h.logger.Info("login accepted",
		"user_id", resp.User.ID,
		"role", resp.User.Role.String(),
	)
	core.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	u, err := h.users.GetByEmail(r.Context(), claims.Email)
	if err != nil {
		core.JSONError(w, core.NotFoundError("user"))
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	core.OK(w, ToUserResponseList(h.users.List(claims.TenantID)))
}

func (h *Handler) ListTenants(w http.ResponseWriter, _ *http.Request) {
	orgs := h.resources["organizations"].Rows("")

	tenants := make([]Row, 0, len(orgs))
	for _, org := range orgs {
		id, _ := org["id"].(string)
		tenants = append(tenants, Row{
			"id":    id,
			"name":  org["name"],
			"users": len(h.users.List(id)),
		})
	}

	core.OK(w, tenants)
}

// ListResource serves the generic collections. Rows are scoped to the
// caller's tenant; SUPER_ADMIN carries no tenant and sees every row.
func (h *Handler) ListResource(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resources[chi.URLParam(r, "resource")]
	if !ok {
		core.NotFound(w, "resource")
		return
	}

	claims := middleware.GetClaims(r.Context())
	if res.Requires != role.Unknown && !role.AtLeast(claims.Role, res.Requires) {
		core.JSONError(w, core.ForbiddenError("insufficient permissions"))
		return
	}

	core.OK(w, res.Rows(claims.TenantID))
}
