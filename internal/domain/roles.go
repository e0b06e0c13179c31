package domain

import "strings"

type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleCashier Role = "Cashier"
	RoleSystem  Role = "System"
)

type Capability string

const (
	CapViewCatalog     Capability = "catalog:view"
	CapManageCatalog   Capability = "catalog:manage"
	CapSell            Capability = "sales:checkout"
	CapReturn          Capability = "sales:return"
	CapPurchase        Capability = "inventory:purchase"
	CapViewReports     Capability = "reports:view"
	CapManageVouchers  Capability = "vouchers:manage"
	CapManageCustomers Capability = "customers:manage"
	CapManageExpenses  Capability = "expenses:manage"
	CapManageUsers     Capability = "users:manage"
	CapViewAudit       Capability = "audit:view"
)

var capabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapViewCatalog:     true,
		CapManageCatalog:   true,
		CapSell:            true,
		CapReturn:          true,
		CapPurchase:        true,
		CapViewReports:     true,
		CapManageVouchers:  true,
		CapManageCustomers: true,
		CapManageExpenses:  true,
		CapManageUsers:     true,
		CapViewAudit:       true,
	},
	RoleCashier: {
		CapViewCatalog:     true,
		CapSell:            true,
		CapReturn:          true,
		CapManageCustomers: true,
	},
}

// ParseRole accepts any casing of a known role name.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "admin":
		return RoleAdmin, true
	case "cashier":
		return RoleCashier, true
	}
	return "", false
}

func (r Role) Can(c Capability) bool {
	return capabilities[r][c]
}
