package enums

// Role is the actor type carried in access tokens.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleBusiness Role = "business"
	RoleAdmin    Role = "admin"
)

var validRoles = []Role{
	RoleCustomer,
	RoleBusiness,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (s Role) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s Role) IsValid() bool {
	return known(validRoles, s)
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	return parse("role", validRoles, value)
}
