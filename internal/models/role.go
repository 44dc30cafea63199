package models

// Role identifies a user's permission level within their company.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
)

// roleRanks orders roles for the authorization hierarchy.
// Unknown roles rank 0 and never pass a gate.
var roleRanks = map[Role]int{
	RoleAdmin:    3,
	RoleManager:  2,
	RoleEmployee: 1,
}

// Rank returns the hierarchy rank of a role (0 for unknown roles).
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return roleRanks[r] > 0
}
