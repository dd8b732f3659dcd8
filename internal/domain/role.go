package domain

import (
	"errors"
	"fmt"
)

// Role is an open enumeration of authorization classes. The set of valid
// roles depends on the deployment's role scheme, so code must consult a
// RoleScheme rather than switch over hard-coded values.
type Role string

// Known role values across both schemes.
const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
	RoleUser    Role = "user"
)

// ErrUnknownRole is returned when a role value is not part of the active scheme.
var ErrUnknownRole = errors.New("unknown role")

// RoleScheme describes a deployment's role taxonomy: which roles exist,
// which one is administrative, and which one tasks may be assigned to.
type RoleScheme struct {
	Name  string
	Admin Role
	// Manager is the optional read-only supervisory role. Zero value means
	// the scheme has no such role.
	Manager Role
	// Base is the non-privileged role that tasks are assigned to and that
	// signup grants by default.
	Base Role
}

// The two supported taxonomies. "standard" matches the admin/manager/member
// revision, "compact" the admin/user revision.
var (
	SchemeStandard = RoleScheme{
		Name:    "standard",
		Admin:   RoleAdmin,
		Manager: RoleManager,
		Base:    RoleMember,
	}
	SchemeCompact = RoleScheme{
		Name:  "compact",
		Admin: RoleAdmin,
		Base:  RoleUser,
	}
)

// SchemeByName resolves a configured scheme name to its RoleScheme.
func SchemeByName(name string) (RoleScheme, error) {
	switch name {
	case SchemeStandard.Name:
		return SchemeStandard, nil
	case SchemeCompact.Name:
		return SchemeCompact, nil
	default:
		return RoleScheme{}, fmt.Errorf("unknown role scheme %q", name)
	}
}

// Roles returns all roles that exist in the scheme.
func (s RoleScheme) Roles() []Role {
	roles := []Role{s.Admin}
	if s.Manager != "" {
		roles = append(roles, s.Manager)
	}
	return append(roles, s.Base)
}

// Valid reports whether the role exists in the scheme.
func (s RoleScheme) Valid(role Role) bool {
	for _, r := range s.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role is the scheme's administrative role.
func (s RoleScheme) IsAdmin(role Role) bool {
	return role == s.Admin
}

// IsManager reports whether the role is the scheme's supervisory role.
// Always false for schemes without one.
func (s RoleScheme) IsManager(role Role) bool {
	return s.Manager != "" && role == s.Manager
}

// IsBase reports whether the role is the scheme's assignable base role.
func (s RoleScheme) IsBase(role Role) bool {
	return role == s.Base
}
