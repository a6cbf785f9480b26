// AngelaMos | 2026
// entry.go

package navigation

import (
	"slices"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/role"
)

const (
	PathOrganization = "/organization"
	PathSuperAdmin   = "/super-admin"
)

// Access is the set of roles an entry is shown to. The zero value means
// every role; there is no second spelling of "everyone".
type Access struct {
	roles []role.Role
}

func Everyone() Access {
	return Access{}
}

func Only(roles ...role.Role) Access {
	return Access{roles: slices.Clone(roles)}
}

func (a Access) IsEveryone() bool {
	return len(a.roles) == 0
}

func (a Access) Allows(r role.Role) bool {
	if a.IsEveryone() {
		return true
	}
	return slices.Contains(a.roles, r)
}

func (a Access) Roles() []role.Role {
	return slices.Clone(a.roles)
}

// Entry is one menu item. Resource is the API collection its page lists,
// empty for pages that fetch nothing.
type Entry struct {
	Path     string
	Label    string
	Access   Access
	Resource string
}

// Default is the back-office menu in display order.
func Default() []Entry {
	admins := Only(role.SuperAdmin, role.OrgAdmin)

	return []Entry{
		{Path: "/", Label: "Dashboard", Access: Everyone()},
		{Path: "/persons", Label: "Persons", Access: Everyone(), Resource: "/api/persons"},
		{Path: "/products", Label: "Products", Access: Everyone(), Resource: "/api/products"},
		{Path: "/fields", Label: "Fields", Access: Everyone(), Resource: "/api/fields"},
		{Path: "/machines", Label: "Machines", Access: Everyone(), Resource: "/api/machines"},
		{Path: "/cost-centers", Label: "Cost Centers", Access: admins, Resource: "/api/cost-centers"},
		{Path: "/stock", Label: "Stock Movements", Access: Everyone(), Resource: "/api/stock"},
		{Path: "/invoices", Label: "Invoices", Access: admins, Resource: "/api/invoices"},
		{Path: "/users", Label: "Users", Access: admins, Resource: "/api/users"},
		{
			Path:     PathOrganization,
			Label:    "Organization",
			Access:   admins,
			Resource: "/api/organizations",
		},
		{
			Path:     PathSuperAdmin,
			Label:    "Super Admin",
			Access:   Only(role.SuperAdmin),
			Resource: "/api/tenants",
		},
	}
}
