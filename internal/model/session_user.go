package model

// Dashboard roles.
const (
	RoleAdmin   = "admin"
	RoleFaculty = "faculty"
	RoleStudent = "student"
	RoleParent  = "parent"
)

// SessionUser is the identity supplied by the session provider at session
// start. Read-only input for the coordinator and the notification center.
type SessionUser struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	// WardID is set for parents and points at the student they follow.
	WardID string `json:"wardId,omitempty"`
	Email  string `json:"email,omitempty"`
}
