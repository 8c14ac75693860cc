package app

import (
	"log/slog"
	"mime"
)

// staticTypes are registered when the host has no mime.types entry, so
// embedded assets are served with the right Content-Type on minimal images.
var staticTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".js":  "text/javascript; charset=utf-8",
	".svg": "image/svg+xml",
	".csv": "text/csv; charset=utf-8",
}

func init() {
	for ext, typ := range staticTypes {
		ensureMimeType(ext, typ)
	}
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		slog.Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}
