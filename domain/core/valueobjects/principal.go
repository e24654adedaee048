package valueobjects

// Privilege is the access level of a principal.
type Privilege int

const (
	PrivilegePublic    Privilege = 0
	PrivilegeCustUser  Privilege = 1
	PrivilegeCustAdmin Privilege = 2
	PrivilegeSuperUser Privilege = 3
)

// Principal is the identity a graph request is evaluated for.
// CustomerID is zero when the principal belongs to no customer.
type Principal struct {
	UserID     string    `json:"user_id,omitempty"`
	CustomerID int       `json:"customer_id,omitempty"`
	Privilege  Privilege `json:"privilege"`
	Grants     []int     `json:"grants,omitempty"`
}

// Anonymous is the principal of an unauthenticated request.
func Anonymous() Principal {
	return Principal{Privilege: PrivilegePublic}
}

// IsAuthenticated reports whether the principal logged in.
func (p Principal) IsAuthenticated() bool {
	return p.UserID != ""
}

// IsSuperUser reports whether the principal may see every graph.
func (p Principal) IsSuperUser() bool {
	return p.IsAuthenticated() && p.Privilege >= PrivilegeSuperUser
}

// CanSeeCustomer applies the customer visibility rule: superuser, own
// customer, or an explicit grant.
func (p Principal) CanSeeCustomer(customerID int) bool {
	if customerID <= 0 {
		return false
	}
	if p.IsSuperUser() {
		return true
	}
	if !p.IsAuthenticated() {
		return false
	}
	if p.CustomerID == customerID {
		return true
	}
	for _, g := range p.Grants {
		if g == customerID {
			return true
		}
	}
	return false
}
