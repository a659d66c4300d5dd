package auth

import (
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/env"
)

// AdminSecretKey guards token minting (/api/admin/*).
var AdminSecretKey string

// JWTSecretKey signs access tokens. When empty the API is open.
var JWTSecretKey string

func init() {
	AdminSecretKey, _ = env.GetEnvString("ADMIN_SECRET_KEY")
	JWTSecretKey, _ = env.GetEnvString("JWT_SECRET_KEY")
}

// Enabled reports whether API access requires a token.
func Enabled() bool {
	return JWTSecretKey != ""
}
