package identity

import "strings"

// Role is the access profile of a user. Values match the stored strings.
type Role string

const (
	RoleSalesperson    Role = "Vendedor"
	RoleSupervisor     Role = "Supervisor"
	RoleManager        Role = "Gerente"
	RoleAdministrative Role = "Administrativo"
	RoleFinancial      Role = "Financeiro"
	RoleMaster         Role = "Master"
)

// Roles lists every role in display order
var Roles = []Role{RoleSalesperson, RoleSupervisor, RoleManager, RoleAdministrative, RoleFinancial, RoleMaster}

// ParseRole accepts the stored Portuguese value or its English name, case-insensitively
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vendedor", "salesperson":
		return RoleSalesperson, true
	case "supervisor":
		return RoleSupervisor, true
	case "gerente", "manager":
		return RoleManager, true
	case "administrativo", "administrative":
		return RoleAdministrative, true
	case "financeiro", "financial":
		return RoleFinancial, true
	case "master":
		return RoleMaster, true
	}
	return "", false
}

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// IsFieldRole reports whether the role only sees its own sales
func (r Role) IsFieldRole() bool {
	return r == RoleSalesperson || r == RoleSupervisor || r == RoleManager
}

// Permission codes carried in access tokens
const (
	PermDashboard          = "dashboard"
	PermIntake             = "intake"
	PermReconciliation     = "reconciliation"
	PermCancellation       = "cancellation"
	PermUsers              = "users"
	PermRules              = "rules"
	PermClients            = "clients"
	PermAdjustments        = "adjustments"
	PermClientInstallments = "client_installments"
	PermCommissions        = "commissions"
	PermProposalSubmit     = "proposals.submit"
	PermProposalReview     = "proposals.review"
)

var rolePermissions = map[Role][]string{
	RoleMaster: {
		PermDashboard, PermIntake, PermReconciliation, PermCancellation, PermUsers, PermRules,
		PermClients, PermAdjustments, PermClientInstallments, PermCommissions,
		PermProposalSubmit, PermProposalReview,
	},
	RoleAdministrative: {
		PermDashboard, PermIntake, PermReconciliation, PermCancellation, PermUsers, PermRules,
		PermClients, PermAdjustments, PermClientInstallments, PermCommissions,
		PermProposalSubmit, PermProposalReview,
	},
	RoleFinancial:   {PermDashboard, PermClients, PermClientInstallments, PermCommissions},
	RoleManager:     {PermDashboard, PermClients, PermProposalSubmit},
	RoleSupervisor:  {PermDashboard, PermClients, PermProposalSubmit},
	RoleSalesperson: {PermDashboard, PermClients, PermProposalSubmit},
}

// Permissions returns the permission codes granted to the role
func (r Role) Permissions() []string {
	perms := rolePermissions[r]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// Can reports whether the role holds the permission
func (r Role) Can(permission string) bool {
	for _, p := range rolePermissions[r] {
		if p == permission {
			return true
		}
	}
	return false
}
