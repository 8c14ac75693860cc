// Package web holds the embedded HTML templates and static assets.
package web

import "embed"

// Templates embeds layouts, partials and pages.
//
//go:embed templates/layouts/*.html templates/partials/*.html templates/pages/*.html
var Templates embed.FS

// Static embeds assets served under /static/.
//
//go:embed static/css/*
var Static embed.FS
