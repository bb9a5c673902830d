package model

import "testing"

func TestRoleHierarchy(t *testing.T) {
	// Each role may do what the roles after it may do.
	order := []string{RoleAdmin, RoleManager, RoleUser}
	for i, role := range order {
		for j, minimum := range order {
			want := i <= j
			if got := RoleAtLeast(role, minimum); got != want {
				t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", role, minimum, got, want)
			}
		}
	}
}

func TestUnknownRolesAreRejected(t *testing.T) {
	for _, role := range []string{"", "owner", "Admin", "doctor"} {
		if ValidRole(role) {
			t.Errorf("ValidRole(%q) = true", role)
		}
		if RoleAtLeast(role, RoleUser) {
			t.Errorf("RoleAtLeast(%q, user) = true", role)
		}
		if RoleAtLeast(RoleAdmin, role) {
			t.Errorf("RoleAtLeast(admin, %q) = true", role)
		}
	}
	for _, role := range []string{RoleAdmin, RoleManager, RoleUser} {
		if !ValidRole(role) {
			t.Errorf("ValidRole(%q) = false", role)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := map[string]bool{
		"":                 false,
		"seva":             false,
		"7chars!":          false,
		"8chars!!":         true,
		"wheelchair-desk1": true,
	}
	for password, ok := range tests {
		if err := ValidatePassword(password); (err == nil) != ok {
			t.Errorf("ValidatePassword(%q) = %v, want ok=%v", password, err, ok)
		}
	}
}
