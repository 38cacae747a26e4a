package security

import domain "github.com/aq2208/gorder-oms/internal/entity"

const (
	PermOrdersRead     = "orders.read"
	PermOrdersWrite    = "orders.write"
	PermCatalogRead    = "catalog.read"
	PermCatalogWrite   = "catalog.write"
	PermCustomersRead  = "customers.read"
	PermCustomersWrite = "customers.write"
)

// rolePerms replaces per-client permission lists: every user carries the
// permissions of their role.
var rolePerms = map[domain.Role][]string{
	domain.RoleAdmin: {
		PermOrdersRead, PermOrdersWrite,
		PermCatalogRead, PermCatalogWrite,
		PermCustomersRead, PermCustomersWrite,
	},
	domain.RoleViewer: {PermOrdersRead, PermCatalogRead, PermCustomersRead},
}

func PermsFor(role domain.Role) []string {
	perms := rolePerms[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
