package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSecrets(t *testing.T, admin string, jwtSecret string) {
	t.Helper()
	prevAdmin, prevJWT := AdminSecretKey, JWTSecretKey
	AdminSecretKey, JWTSecretKey = admin, jwtSecret
	t.Cleanup(func() {
		AdminSecretKey, JWTSecretKey = prevAdmin, prevJWT
	})
}

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/admin", AdminAuth(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	app.Get("/api", AccessAuth(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	return app
}

func status(t *testing.T, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAccessTokenRoundTrip(t *testing.T) {
	withSecrets(t, "", "0123456789abcdef0123456789abcdef")

	token, expiresAt, err := GenerateAccessToken("painel", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, expiresAt)

	claims, err := ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "painel", claims.Label)
	assert.NotEmpty(t, claims.ID)

	JWTSecretKey = "another-secret-another-secret-000"
	_, err = ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestAccessTokenWithoutSecret(t *testing.T) {
	withSecrets(t, "", "")

	_, _, err := GenerateAccessToken("painel", 0)
	assert.ErrorIs(t, err, ErrJWTNotConfigured)
}

func TestAccessAuthIsOpenWithoutSecret(t *testing.T) {
	withSecrets(t, "", "")

	assert.Equal(t, http.StatusOK, status(t, newApp(), httptest.NewRequest(http.MethodGet, "/api", nil)))
}

func TestAccessAuthRequiresToken(t *testing.T) {
	withSecrets(t, "", "0123456789abcdef0123456789abcdef")
	app := newApp()
	token, _, err := GenerateAccessToken("painel", 0)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, status(t, app, httptest.NewRequest(http.MethodGet, "/api", nil)))

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Token "+token)
	assert.Equal(t, http.StatusUnauthorized, status(t, app, req))

	req = httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, status(t, app, req))

	assert.Equal(t, http.StatusOK, status(t, app, httptest.NewRequest(http.MethodGet, "/api?access_token="+token, nil)))
}

func TestAdminAuth(t *testing.T) {
	withSecrets(t, "s3cret", "")
	app := newApp()

	assert.Equal(t, http.StatusUnauthorized, status(t, app, httptest.NewRequest(http.MethodGet, "/admin", nil)))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Admin-Secret", "wrong")
	assert.Equal(t, http.StatusUnauthorized, status(t, app, req))

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Admin-Secret", "s3cret")
	assert.Equal(t, http.StatusOK, status(t, app, req))

	AdminSecretKey = ""
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Admin-Secret", "s3cret")
	assert.Equal(t, http.StatusInternalServerError, status(t, app, req))
}
