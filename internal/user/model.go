package user

// Role is the coarse permission class assigned by the backend. The set is
// fixed; anything else is treated as no role.
type Role string

// Known roles
const (
	RoleSuperAdmin         Role = "Super Admin"
	RoleDispatcher         Role = "Dispatcher"
	RoleMaintenanceOfficer Role = "Maintenance Officer"
	RoleDriver             Role = "Driver"
)

// IsAdminClass reports whether the role selects the admin/dispatcher views
func (r Role) IsAdminClass() bool {
	switch r {
	case RoleSuperAdmin, RoleDispatcher, RoleMaintenanceOfficer:
		return true
	}
	return false
}

// IsDriverClass reports whether the role selects the driver views
func (r Role) IsDriverClass() bool {
	return r == RoleDriver
}

// Known reports whether the role is one of the fixed set
func (r Role) Known() bool {
	return r.IsAdminClass() || r.IsDriverClass()
}

// Identity represents the authenticated user as reported by the backend's
// current-user endpoint. It is replaced wholesale after every login or
// session restore, never patched field by field.
type Identity struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Status      string `json:"status,omitempty"`
	Role        Role   `json:"role"`
}

// DisplayName returns the full name for display
func (i *Identity) DisplayName() string {
	switch {
	case i.FirstName != "" && i.LastName != "":
		return i.FirstName + " " + i.LastName
	case i.FirstName != "":
		return i.FirstName
	case i.LastName != "":
		return i.LastName
	}
	return i.Email
}
