// AngelaMos | 2026
// gate.go

package gate

import (
	"net/http"
	"strings"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/navigation"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/role"
)

const DefaultLoginPath = "/login"

// SessionView is the slice of the session store the gate reads. It is
// consulted on every check, never cached.
type SessionView interface {
	IsAuthenticated() bool
	HasRole(required role.Role) bool
}

type Reason int

const (
	ReasonAllowed Reason = iota
	ReasonNoSession
	ReasonForbidden
)

func (r Reason) String() string {
	switch r {
	case ReasonAllowed:
		return "allowed"
	case ReasonNoSession:
		return "no_session"
	case ReasonForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

type Decision struct {
	Allow    bool
	Redirect string
	Reason   Reason
}

// Route is a protected destination. Requires is role.Unknown when any
// logged-in identity may enter.
type Route struct {
	Path     string
	Label    string
	Requires role.Role
	Resource string
}

// RoutesFrom derives the protected routes from the menu so the two never
// drift apart. An entry restricted to a set of roles requires the least
// privileged role of that set.
func RoutesFrom(entries []navigation.Entry) []Route {
	routes := make([]Route, 0, len(entries))
	for _, e := range entries {
		routes = append(routes, Route{
			Path:     e.Path,
			Label:    e.Label,
			Requires: lowest(e.Access.Roles()),
			Resource: e.Resource,
		})
	}
	return routes
}

func lowest(roles []role.Role) role.Role {
	least := role.Unknown
	for _, r := range roles {
		if least == role.Unknown || role.AtLeast(least, r) {
			least = r
		}
	}
	return least
}

type Gate struct {
	sessions  SessionView
	routes    []Route
	loginPath string
}

func New(sessions SessionView, routes []Route, loginPath string) *Gate {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return &Gate{
		sessions:  sessions,
		routes:    routes,
		loginPath: loginPath,
	}
}

func (g *Gate) LoginPath() string {
	return g.loginPath
}

func (g *Gate) Routes() []Route {
	out := make([]Route, len(g.routes))
	copy(out, g.routes)
	return out
}

// Check decides whether path may render. Missing session and missing role
// both redirect to the login entry point; only Reason tells them apart. The
// requested destination is not carried along.
func (g *Gate) Check(path string) Decision {
	if !g.sessions.IsAuthenticated() {
		return Decision{Redirect: g.loginPath, Reason: ReasonNoSession}
	}

	if route, ok := g.Lookup(path); ok && route.Requires != role.Unknown {
		if !g.sessions.HasRole(route.Requires) {
			return Decision{Redirect: g.loginPath, Reason: ReasonForbidden}
		}
	}

	return Decision{Allow: true, Reason: ReasonAllowed}
}

// Lookup finds the route owning path: an exact match, or the longest route
// that is a whole-segment prefix of it.
func (g *Gate) Lookup(path string) (Route, bool) {
	path = normalize(path)

	var best Route
	found := false
	for _, route := range g.routes {
		p := normalize(route.Path)
		matched := path == p ||
			(p != "/" && strings.HasPrefix(path, p+"/"))
		if matched && (!found || len(p) > len(best.Path)) {
			best = route
			found = true
		}
	}
	return best, found
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// Middleware re-evaluates the gate on every request that enters the guarded
// router.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := g.Check(r.URL.Path)
		if !decision.Allow {
			w.Header().Set("X-Gate-Reason", decision.Reason.String())
			http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}
