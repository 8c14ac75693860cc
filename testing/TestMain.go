package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// testDefaults fill the required secrets so LoadConfig succeeds in tests.
var testDefaults = map[string]string{
	"SESSION_SECRET": "test-session-secret",
	"CSRF_SECRET":    "test-csrf-secret",
}

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("CAMPUS_TEST_MODE", "1")
		for key, value := range testDefaults {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
