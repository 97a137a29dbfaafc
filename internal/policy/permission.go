// Package policy implements the permission whitelist engine and the realm
// scoping guard consulted by every gated operation.
package policy

import (
	"fmt"

	"github.com/samber/lo"
)

// Permission is a single capability bit.
type Permission uint64

const (
	PermissionManageRealm Permission = 1 << iota
	PermissionManageWebhooks
	PermissionViewWebhooks
	PermissionManageUsers
	PermissionViewUsers
	PermissionManageClients
	PermissionViewClients
	PermissionManageRoles
	PermissionViewRoles
)

// allPermissions keeps a stable declaration order for Names().
var allPermissions = []Permission{
	PermissionManageRealm,
	PermissionManageWebhooks,
	PermissionViewWebhooks,
	PermissionManageUsers,
	PermissionViewUsers,
	PermissionManageClients,
	PermissionViewClients,
	PermissionManageRoles,
	PermissionViewRoles,
}

var permissionNames = map[Permission]string{
	PermissionManageRealm:    "manage_realm",
	PermissionManageWebhooks: "manage_webhooks",
	PermissionViewWebhooks:   "view_webhooks",
	PermissionManageUsers:    "manage_users",
	PermissionViewUsers:      "view_users",
	PermissionManageClients:  "manage_clients",
	PermissionViewClients:    "view_clients",
	PermissionManageRoles:    "manage_roles",
	PermissionViewRoles:      "view_roles",
}

func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("permission(%d)", uint64(p))
}

// ParsePermission resolves a permission by its stored name.
func ParsePermission(name string) (Permission, error) {
	for p, n := range permissionNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown permission %q", name)
}

// Permissions is a set of capability bits.
type Permissions uint64

// NewPermissions builds a set from individual permissions.
func NewPermissions(ps ...Permission) Permissions {
	var s Permissions
	for _, p := range ps {
		s |= Permissions(p)
	}
	return s
}

// FromNames builds a set from stored permission names.
func FromNames(names []string) (Permissions, error) {
	var s Permissions
	for _, name := range names {
		p, err := ParsePermission(name)
		if err != nil {
			return 0, err
		}
		s |= Permissions(p)
	}
	return s, nil
}

// Has reports whether the set contains p.
func (s Permissions) Has(p Permission) bool {
	return s&Permissions(p) != 0
}

// HasOneOf reports whether the set intersects any of the given permissions.
// This is the one shared rule behind every capability check.
func (s Permissions) HasOneOf(ps ...Permission) bool {
	return lo.SomeBy(ps, s.Has)
}

// Intersects reports whether the set shares at least one bit with other.
func (s Permissions) Intersects(other Permissions) bool {
	return s&other != 0
}

// Union merges two sets.
func (s Permissions) Union(other Permissions) Permissions {
	return s | other
}

// Contains reports whether every bit of other is present in s.
func (s Permissions) Contains(other Permissions) bool {
	return s&other == other
}

// Names lists the contained permission names in declaration order.
func (s Permissions) Names() []string {
	return lo.FilterMap(allPermissions, func(p Permission, _ int) (string, bool) {
		return permissionNames[p], s.Has(p)
	})
}

// Bits exposes the raw bit set for storage.
func (s Permissions) Bits() uint64 {
	return uint64(s)
}
