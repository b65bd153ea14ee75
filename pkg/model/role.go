package model

// Role identifies the account namespace a session was resolved against.
// The admin sub-role is not a Role: it is carried inside a customer
// identity (see Session.IsAdmin).
type Role string

const (
	// RoleCustomer is an account in the customer namespace.
	RoleCustomer Role = "customer"
	// RoleMerchant is an account in the merchant namespace.
	RoleMerchant Role = "merchant"
)

// ParseRole converts a string to a Role. The second return is false for
// anything that is not a known namespace.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleCustomer, RoleMerchant:
		return Role(s), true
	default:
		return "", false
	}
}

// Valid reports whether r names a known namespace.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleMerchant
}
