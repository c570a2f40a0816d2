package model

import "time"

// Role names a member's authorization level.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Member represents a row in the `member` table.  The reservation core only
// compares IDs and reads Role; the remaining fields serve login.
//
// Fields:
//
//	ID           – primary key identifier of the member.
//	Name         – display name.
//	Email        – unique login email.
//	PasswordHash – bcrypt hash of the password.
//	Role         – USER or ADMIN.
//	CreatedAt    – timestamp of creation.
type Member struct {
	ID           uint64    // member.id
	Name         string    // member.name
	Email        string    // member.email
	PasswordHash string    // member.password_hash
	Role         Role      // member.role
	CreatedAt    time.Time // member.created_at
}

// Caller is the authenticated identity making a request.
type Caller struct {
	ID   uint64
	Role Role
}

// IsAdmin reports whether the caller has the ADMIN role.
func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }
