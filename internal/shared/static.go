package shared

import "strings"

// StaticPrefix is the URL prefix of embedded static assets.
const StaticPrefix = "/static/"

// IsStaticPath reports whether path addresses a static asset.
func IsStaticPath(path string) bool {
	return strings.HasPrefix(path, StaticPrefix)
}
