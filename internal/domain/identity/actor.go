package identity

// Actor is the authenticated user on whose behalf an operation runs
type Actor struct {
	UserID string
	Role   Role
}

// Restricted reports whether the actor only sees the sales they take part in
func (a Actor) Restricted() bool {
	return a.Role.IsFieldRole()
}

// Can reports whether the actor's role holds the permission
func (a Actor) Can(permission string) bool {
	return a.Role.Can(permission)
}
