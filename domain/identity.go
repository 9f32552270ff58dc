package domain

// Role is the authorization level attached to an authenticated principal.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Identity is an authenticated principal. It is obtained from the
// Authenticator at connection-bind time and referenced by value; the gateway
// never owns or mutates it.
type Identity struct {
	Name string
	Role Role
}
