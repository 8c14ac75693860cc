package rbac

// Principal describes the actor behind a request. The zero value is the
// anonymous principal.
type Principal struct {
	ID      int64
	Login   string
	RoleID  int64
	IsAdmin bool
}

// Anonymous returns the principal used when no valid session exists.
func Anonymous() Principal {
	return Principal{}
}

// Authenticated reports whether the principal maps to a stored user.
func (p Principal) Authenticated() bool {
	return p.ID > 0
}

// UserID returns the principal id, or nil for anonymous requests.
func (p Principal) UserID() *int64 {
	if !p.Authenticated() {
		return nil
	}
	id := p.ID
	return &id
}

// Record is the target of an action. Only user records are guarded, so the
// id is all the policy needs.
type Record struct {
	ID int64
}
