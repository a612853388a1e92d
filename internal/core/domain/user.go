package domain

import "strings"

// Role is the closed set of roles a directory user can hold.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleUser      Role = "User"
	RoleManager   Role = "Manager"
	RoleDeveloper Role = "Developer"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleAdmin, RoleUser, RoleManager, RoleDeveloper}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole converts a raw string into a Role. Matching is exact.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", &ValidationError{Field: FieldRole, Reason: "must be one of: " + roleList()}
	}
	return r, nil
}

func roleList() string {
	names := make([]string, len(Roles))
	for i, r := range Roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// Field names as they appear on the wire and in conflict messages.
const (
	FieldUserName = "userName"
	FieldFullName = "fullName"
	FieldEmail    = "email"
	FieldRole     = "role"
)

// User is a directory record. ID is assigned by the store and never changes.
type User struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Validate checks the fields required for a new record.
func (u *User) Validate() error {
	if strings.TrimSpace(u.UserName) == "" {
		return &ValidationError{Field: FieldUserName, Reason: "is required"}
	}
	if strings.TrimSpace(u.Email) == "" {
		return &ValidationError{Field: FieldEmail, Reason: "is required"}
	}
	if u.Role == "" {
		return &ValidationError{Field: FieldRole, Reason: "is required"}
	}
	if !u.Role.Valid() {
		return &ValidationError{Field: FieldRole, Reason: "must be one of: " + roleList()}
	}
	return nil
}

// UserPatch is a partial update. Nil fields are left untouched.
type UserPatch struct {
	UserName *string
	FullName *string
	Email    *string
	Role     *Role
}

// Empty reports whether the patch would change nothing.
func (p UserPatch) Empty() bool {
	return p.UserName == nil && p.FullName == nil && p.Email == nil && p.Role == nil
}

// Validate checks that every present field holds an acceptable value.
func (p UserPatch) Validate() error {
	if p.UserName != nil && strings.TrimSpace(*p.UserName) == "" {
		return &ValidationError{Field: FieldUserName, Reason: "cannot be empty"}
	}
	if p.Email != nil && strings.TrimSpace(*p.Email) == "" {
		return &ValidationError{Field: FieldEmail, Reason: "cannot be empty"}
	}
	if p.Role != nil && !p.Role.Valid() {
		return &ValidationError{Field: FieldRole, Reason: "must be one of: " + roleList()}
	}
	return nil
}

// Apply returns a copy of u with the patch applied. The ID is preserved.
func (p UserPatch) Apply(u User) User {
	if p.UserName != nil {
		u.UserName = *p.UserName
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	return u
}
