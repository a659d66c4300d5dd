package router

import (
	"strings"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/env"
)

var BaseURL, CORSOrigin, StaticDir string
var GZipLevel int
var CacheTTLSeconds int

func init() {
	// HTTP_BASE_URL: empty by default (no prefix)
	BaseURL = normalizeBaseURL(env.GetEnvStringOrDefault("HTTP_BASE_URL", ""))

	// HTTP_CORS_ORIGIN: default "*" (allow all)
	CORSOrigin = env.GetEnvStringOrDefault("HTTP_CORS_ORIGIN", "*")

	// HTTP_GZIP_LEVEL: default 1
	GZipLevel = env.GetEnvIntOrDefault("HTTP_GZIP_LEVEL", 1)

	// HTTP_CACHE_TTL_SECONDS: default 60, static assets only
	CacheTTLSeconds = env.GetEnvIntOrDefault("HTTP_CACHE_TTL_SECONDS", 60)

	// HTTP_STATIC_DIR: default "public"
	StaticDir = env.GetEnvStringOrDefault("HTTP_STATIC_DIR", "public")
}

func normalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimRight(raw, "/")
	if raw == "" {
		return ""
	}
	return "/" + strings.TrimLeft(raw, "/")
}
