package model

import (
	"encoding/json"
	"fmt"
)

// Role is the closed set of privilege levels the upstream API assigns to
// dashboard users. Unknown role strings fail closed at decode time.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

type Permission string

const (
	PermViewContent    Permission = "view_content"
	PermManageContent  Permission = "manage_content"
	PermManageMedia    Permission = "manage_media"
	PermManageUsers    Permission = "manage_users"
	PermManageSettings Permission = "manage_settings"
	PermViewAnalytics  Permission = "view_analytics"
	PermViewAuditLog   Permission = "view_audit_log"
)

// rolePermissions is the single source of truth for what each role may do.
var rolePermissions = map[Role]map[Permission]struct{}{
	RoleAdmin: permSet(
		PermViewContent, PermManageContent, PermManageMedia,
		PermManageUsers, PermManageSettings, PermViewAnalytics, PermViewAuditLog,
	),
	RoleEditor: permSet(
		PermViewContent, PermManageContent, PermManageMedia, PermViewAnalytics,
	),
	RoleViewer: permSet(
		PermViewContent,
	),
}

func permSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin, RoleEditor, RoleViewer:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) Can(p Permission) bool {
	perms, ok := rolePermissions[r]
	if !ok {
		return false
	}
	_, allowed := perms[p]
	return allowed
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}

	*r = parsed
	return nil
}
