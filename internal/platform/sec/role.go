// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Full access to content store mutations and maintenance workflows
	RoleAdmin UserRole = "admin"

	// Can upload pages and covers but not delete or trigger workflows
	RoleUploader UserRole = "uploader"

	// Anonymous reader
	RoleReader UserRole = "reader"
)

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {

	switch r {
	case RoleAdmin:
		return 30
	case RoleUploader:
		return 20
	case RoleReader:
		return 10
	default:
		return 0
	}
}
