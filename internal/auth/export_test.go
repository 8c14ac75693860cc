package auth

// SetPasswordCheck replaces the bcrypt comparison used by Authenticate.
func (s *Service) SetPasswordCheck(fn func(hash, password string) bool) {
	s.checkPassword = fn
}

// DummyHash exposes the hash compared against for unknown logins.
func DummyHash() string { return dummyHash() }
