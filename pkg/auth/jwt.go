package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const accessTokenIssuer = "go-whatsapp-group-exporter"

var ErrJWTNotConfigured = errors.New("JWT_SECRET_KEY not configured")

// AccessTokenClaims are carried by tokens handed to API consumers.
type AccessTokenClaims struct {
	Label string `json:"label,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a token tagged with label. A ttl of zero yields a token
// without expiry.
func GenerateAccessToken(label string, ttl time.Duration) (string, *time.Time, error) {
	if JWTSecretKey == "" {
		return "", nil, ErrJWTNotConfigured
	}

	now := time.Now()
	claims := AccessTokenClaims{
		Label: label,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    accessTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	var expiresAt *time.Time
	if ttl > 0 {
		exp := now.Add(ttl)
		expiresAt = &exp
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(JWTSecretKey))
	if err != nil {
		return "", nil, err
	}
	return signed, expiresAt, nil
}

func ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	if JWTSecretKey == "" {
		return nil, ErrJWTNotConfigured
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(JWTSecretKey), nil
	}, jwt.WithIssuer(accessTokenIssuer))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AccessTokenClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
