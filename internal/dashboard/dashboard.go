// AngelaMos | 2026
// dashboard.go

package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/apiclient"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/gate"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/health"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/middleware"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/navigation"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/session"
)

type Lister interface {
	List(ctx context.Context, path string) ([]map[string]any, error)
}

type Config struct {
	Store        *session.Store
	API          Lister
	Menu         []navigation.Entry
	Health       *health.Handler
	LoginLimiter *middleware.RateLimiter
	Logger       *slog.Logger
	Production   bool
}

// Dashboard is the local operator shell. Every guarded page goes through the
// gate on each request.
type Dashboard struct {
	store   *session.Store
	api     Lister
	menu    []navigation.Entry
	gate    *gate.Gate
	health  *health.Handler
	limiter *middleware.RateLimiter
	logger  *slog.Logger
	prod    bool
}

func New(cfg Config) *Dashboard {
	menu := cfg.Menu
	if menu == nil {
		menu = navigation.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = core.DiscardLogger()
	}

	d := &Dashboard{
		store:   cfg.Store,
		api:     cfg.API,
		menu:    menu,
		gate:    gate.New(cfg.Store, gate.RoutesFrom(menu), gate.DefaultLoginPath),
		health:  cfg.Health,
		limiter: cfg.LoginLimiter,
		logger:  logger,
		prod:    cfg.Production,
	}

	cfg.Store.OnUnauthorized(d.onUnauthorized)
	return d
}

func (d *Dashboard) Gate() *gate.Gate {
	return d.gate
}

func (d *Dashboard) Mount(router chi.Router) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing("farm-backoffice/dashboard"))
	router.Use(middleware.Logger(d.logger))
	router.Use(middleware.SecurityHeaders(d.prod))

	if d.health != nil {
		d.health.RegisterRoutes(router)
	}

	loginPost := http.Handler(http.HandlerFunc(d.Login))
	if d.limiter != nil {
		loginPost = d.limiter.Handler(loginPost)
	}

	router.Get(d.gate.LoginPath(), d.LoginForm)
	router.Method(http.MethodPost, d.gate.LoginPath(), loginPost)
	router.Post("/logout", d.Logout)
	router.Get("/api/session", d.Session)
	router.Get("/api/menu", d.Menu)

	router.Group(func(r chi.Router) {
		r.Use(trackRedirect)
		r.Use(d.gate.Middleware)

		for _, route := range d.gate.Routes() {
			r.Get(route.Path, d.page(route))
		}
	})
}

type formField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

type loginForm struct {
	Action        string      `json:"action"`
	Fields        []formField `json:"fields"`
	Authenticated bool        `json:"authenticated"`
}

func (d *Dashboard) LoginForm(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, loginForm{
		Action: d.gate.LoginPath(),
		Fields: []formField{
			{Name: "email", Type: "email", Required: true},
			{Name: "password", Type: "password", Required: true},
		},
		Authenticated: d.store.IsAuthenticated(),
	})
}

type loginFailure struct {
	Success        bool           `json:"success"`
	Error          core.ErrorBody `json:"error"`
	UpstreamStatus int            `json:"upstreamStatus"`
}

func (d *Dashboard) Login(w http.ResponseWriter, r *http.Request) {
	email, password, err := readCredentials(r)
	if err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	_, err = d.store.Login(r.Context(), email, password)
	if err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var validationErr *session.ValidationError
	if errors.As(err, &validationErr) {
		core.BadRequest(w, validationErr.Message)
		return
	}

	authErr, ok := session.AsAuthError(err)
	if !ok {
		core.InternalServerError(w, err)
		return
	}

	status, code := http.StatusUnauthorized, "LOGIN_FAILED"
	if authErr.Unreachable() || authErr.StatusCode >= 500 {
		status, code = http.StatusBadGateway, "API_UNAVAILABLE"
	}

	core.JSON(w, status, loginFailure{
		Error:          core.ErrorBody{Code: code, Message: authErr.Message},
		UpstreamStatus: authErr.StatusCode,
	})
}

func readCredentials(r *http.Request) (string, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", "", err
		}
		return body.Email, body.Password, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", "", err
	}
	return r.PostForm.Get("email"), r.PostForm.Get("password"), nil
}

func (d *Dashboard) Logout(w http.ResponseWriter, r *http.Request) {
	d.store.Logout(r.Context())
	http.Redirect(w, r, d.gate.LoginPath(), http.StatusSeeOther)
}

type sessionView struct {
	User          session.Identity `json:"user"`
	IsSuperAdmin  bool             `json:"isSuperAdmin"`
	IsOrgAdmin    bool             `json:"isOrgAdmin"`
	IsRegularUser bool             `json:"isRegularUser"`
}

func (d *Dashboard) Session(w http.ResponseWriter, _ *http.Request) {
	identity, ok := d.store.Current()
	if !ok {
		core.Unauthorized(w, "not logged in")
		return
	}

	core.OK(w, sessionView{
		User:          identity,
		IsSuperAdmin:  d.store.IsSuperAdmin(),
		IsOrgAdmin:    d.store.IsOrgAdmin(),
		IsRegularUser: d.store.IsRegularUser(),
	})
}

type menuItem struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

type menuView struct {
	Items      []menuItem `json:"items"`
	AdminGroup []menuItem `json:"adminGroup,omitempty"`
}

func toItems(entries []navigation.Entry) []menuItem {
	items := make([]menuItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, menuItem{Path: e.Path, Label: e.Label})
	}
	return items
}

func (d *Dashboard) Menu(w http.ResponseWriter, _ *http.Request) {
	r, authenticated := d.store.Role()

	view := menuView{Items: toItems(navigation.Filter(d.menu, r, authenticated))}
	if group := navigation.AdminGroup(d.menu, r, authenticated); len(group) > 0 {
		view.AdminGroup = toItems(group)
	}

	core.OK(w, view)
}

type pageView struct {
	Path  string           `json:"path"`
	Label string           `json:"label"`
	Rows  []map[string]any `json:"rows,omitempty"`
}

// page renders a destination the gate already admitted. Pages without a
// resource render their heading only.
func (d *Dashboard) page(route gate.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := pageView{Path: route.Path, Label: route.Label}
		if route.Resource == "" || d.api == nil {
			core.OK(w, view)
			return
		}

		rows, err := d.api.List(r.Context(), route.Resource)
		if err != nil {
			d.renderError(w, r, err)
			return
		}

		view.Rows = rows
		core.OK(w, view)
	}
}

func (d *Dashboard) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var statusErr *apiclient.StatusError

	switch {
	case redirected(r.Context()):
		w.Header().Set("X-Gate-Reason", "session_expired")
		http.Redirect(w, r, d.gate.LoginPath(), http.StatusSeeOther)
	case errors.Is(err, apiclient.ErrUnauthorized), errors.Is(err, apiclient.ErrNoSession):
		http.Redirect(w, r, d.gate.LoginPath(), http.StatusSeeOther)
	case errors.As(err, &statusErr):
		core.JSON(w, statusErr.StatusCode, core.Response{
			Error: &core.ErrorBody{Code: "UPSTREAM_ERROR", Message: statusErr.Message},
		})
	default:
		d.logger.Error("list resource", "path", r.URL.Path, "error", err)
		core.JSONError(w, core.UpstreamError(err, "back office unavailable"))
	}
}

// onUnauthorized runs inside the request whose API call was rejected, because
// the bus dispatches synchronously on the caller's context.
func (d *Dashboard) onUnauthorized(ctx context.Context) {
	d.logger.Warn("session expired, redirecting to login")
	markRedirect(ctx)
}
