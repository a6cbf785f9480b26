// AngelaMos | 2026
// fixtures.go

package devapi

import "github.com/carterperez-dev/templates/farm-backoffice/internal/role"

type Row = map[string]any

// Resource is one list endpoint of the stand-in API.
type Resource struct {
	Name     string
	Requires role.Role
	rows     []Row
}

// Rows returns the fixtures owned by tenant, all of them for an empty tenant.
func (r Resource) Rows(tenant string) []Row {
	out := make([]Row, 0, len(r.rows))
	for _, row := range r.rows {
		if tenant == "" || row["tenantId"] == tenant {
			out = append(out, row)
		}
	}
	return out
}

func north(row Row) Row { row["tenantId"] = TenantNorth; return row }
func south(row Row) Row { row["tenantId"] = TenantSouth; return row }

// Fixtures mirrors the back-office collections the console links to.
// Invoices, cost centers and organizations are admin data server-side too.
func Fixtures() map[string]Resource {
	resources := []Resource{
		{Name: "persons", rows: []Row{
			north(Row{"id": "per-1", "name": "Ana Souza", "function": "Operator"}),
			north(Row{"id": "per-2", "name": "Bruno Lima", "function": "Agronomist"}),
			south(Row{"id": "per-3", "name": "Carla Dias", "function": "Operator"}),
		}},
		{Name: "products", rows: []Row{
			north(Row{"id": "prd-1", "name": "Glyphosate 480", "unit": "L"}),
			south(Row{"id": "prd-2", "name": "Urea 45%", "unit": "kg"}),
		}},
		{Name: "fields", rows: []Row{
			north(Row{"id": "fld-1", "name": "North plot A", "areaHa": 42.5}),
			north(Row{"id": "fld-2", "name": "North plot B", "areaHa": 18.0}),
			south(Row{"id": "fld-3", "name": "River field", "areaHa": 63.2}),
		}},
		{Name: "machines", rows: []Row{
			north(Row{"id": "mch-1", "name": "Tractor JD 6155", "hourMeter": 4120}),
			south(Row{"id": "mch-2", "name": "Sprayer Uniport", "hourMeter": 980}),
		}},
		{Name: "stock", rows: []Row{
			north(Row{"id": "stk-1", "productId": "prd-1", "quantity": 220}),
			south(Row{"id": "stk-2", "productId": "prd-2", "quantity": 1500}),
		}},
		{Name: "cost-centers", Requires: role.OrgAdmin, rows: []Row{
			north(Row{"id": "cc-1", "name": "Soy 2026"}),
			south(Row{"id": "cc-2", "name": "Corn 2026"}),
		}},
		{Name: "invoices", Requires: role.OrgAdmin, rows: []Row{
			north(Row{"id": "inv-1", "number": "NF-1001", "total": 12840.90}),
			south(Row{"id": "inv-2", "number": "NF-2001", "total": 3120.00}),
		}},
		{Name: "organizations", Requires: role.OrgAdmin, rows: []Row{
			north(Row{"id": TenantNorth, "name": "North Farm Ltd"}),
			south(Row{"id": TenantSouth, "name": "South Valley Agro"}),
		}},
	}

	out := make(map[string]Resource, len(resources))
	for _, r := range resources {
		out[r.Name] = r
	}
	return out
}
