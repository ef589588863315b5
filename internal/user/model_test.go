package user

import "testing"

func TestRoleClassification(t *testing.T) {
	tests := []struct {
		name        string
		role        Role
		adminClass  bool
		driverClass bool
	}{
		{"super admin", RoleSuperAdmin, true, false},
		{"dispatcher", RoleDispatcher, true, false},
		{"maintenance officer", RoleMaintenanceOfficer, true, false},
		{"driver", RoleDriver, false, true},
		{"unknown role", Role("Mechanic"), false, false},
		{"empty role", Role(""), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.IsAdminClass(); got != tt.adminClass {
				t.Errorf("IsAdminClass() = %v, want %v", got, tt.adminClass)
			}
			if got := tt.role.IsDriverClass(); got != tt.driverClass {
				t.Errorf("IsDriverClass() = %v, want %v", got, tt.driverClass)
			}
			if got := tt.role.Known(); got != (tt.adminClass || tt.driverClass) {
				t.Errorf("Known() = %v", got)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		identity Identity
		want     string
	}{
		{
			name:     "first and last",
			identity: Identity{FirstName: "Maria", LastName: "Santos", Email: "maria@example.org"},
			want:     "Maria Santos",
		},
		{
			name:     "first only",
			identity: Identity{FirstName: "Maria", Email: "maria@example.org"},
			want:     "Maria",
		},
		{
			name:     "last only",
			identity: Identity{LastName: "Santos", Email: "maria@example.org"},
			want:     "Santos",
		},
		{
			name:     "falls back to email",
			identity: Identity{Email: "maria@example.org"},
			want:     "maria@example.org",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.identity.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
