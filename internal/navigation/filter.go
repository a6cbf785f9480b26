// AngelaMos | 2026
// filter.go

package navigation

import (
	"github.com/carterperez-dev/templates/farm-backoffice/internal/role"
)

// groupedForSuperAdmin lists entries a SUPER_ADMIN sees in the collapsible
// admin group instead of the flat menu. Presentation only; the gate still
// checks both routes on its own.
var groupedForSuperAdmin = map[string]bool{
	PathOrganization: true,
	PathSuperAdmin:   true,
}

// Filter returns the entries visible to the given role, in declared order.
// authenticated=false means nobody is logged in.
func Filter(entries []Entry, r role.Role, authenticated bool) []Entry {
	out := make([]Entry, 0, len(entries))

	for _, e := range entries {
		if authenticated && r == role.SuperAdmin && groupedForSuperAdmin[e.Path] {
			continue
		}

		if e.Access.IsEveryone() {
			out = append(out, e)
			continue
		}

		if authenticated && e.Access.Allows(r) {
			out = append(out, e)
		}
	}

	return out
}

// AdminGroup returns the entries rendered in the SUPER_ADMIN grouping, or
// nil for any other role.
func AdminGroup(entries []Entry, r role.Role, authenticated bool) []Entry {
	if !authenticated || r != role.SuperAdmin {
		return nil
	}

	var out []Entry
	for _, e := range entries {
		if groupedForSuperAdmin[e.Path] && e.Access.Allows(r) {
			out = append(out, e)
		}
	}
	return out
}
