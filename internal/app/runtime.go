package app

import (
	"os"
	"sync"
)

const testModeEnv = "CAMPUS_TEST_MODE"

// inTestMode reads CAMPUS_TEST_MODE once per process.
var inTestMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})

// InTestMode reports whether the binary was started by the test harness and
// must not open connections or listen.
func InTestMode() bool {
	return inTestMode()
}
