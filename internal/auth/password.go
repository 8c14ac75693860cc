package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is checked for logins that do not exist.
var dummyHash = sync.OnceValue(func() string {
	hashed, err := HashPassword("campus-unknown-login")
	if err != nil {
		panic(err)
	}
	return hashed
})

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
