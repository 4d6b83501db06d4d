package domain

type Role string

const (
	RoleStaff Role = "Staff"
	RoleAdmin Role = "Admin"
)

func (r Role) IsValid() bool {
	return r == RoleStaff || r == RoleAdmin
}

// User is an office account. PasswordHash is a bcrypt hash and is never
// serialized to clients.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	FullName     string `json:"full_name,omitempty"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	FullName string `json:"full_name"`
	Password string `json:"password" validate:"required,min=6"`
	Role     Role   `json:"role" validate:"enum"`
}

// Session identifies who is acting. It is supplied by the caller (command
// line arguments or a signed token) and trusted by the services.
type Session struct {
	Role     Role   `json:"role"`
	Username string `json:"username"`
}

// GuestSession is used when no session was supplied.
var GuestSession = Session{Role: RoleStaff, Username: "Guest"}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
