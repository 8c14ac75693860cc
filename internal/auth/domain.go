package auth

// User is the credential view of an account.
type User struct {
	ID           int64
	Login        string
	PasswordHash string
	RoleID       int64
}
