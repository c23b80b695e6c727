package models

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePlayer UserRole = "user"
)

// SessionUser - пользователь текущей сессии по данным check-session.php.
type SessionUser struct {
	ID       ID       `json:"id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
}

func (u *SessionUser) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
