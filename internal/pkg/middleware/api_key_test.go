package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/paysync-io/paysync/internal/pkg/config"
)

func newProtectedApp(apiKey string) *fiber.App {
	cfg := &config.Config{APIKey: apiKey}
	app := fiber.New()
	app.Get("/secure", APIKeyAuth(cfg), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func request(t *testing.T, app *fiber.App, header, value string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestAPIKeyAuth(t *testing.T) {
	app := newProtectedApp("secret-key")

	resp := request(t, app, "X-API-Key", "secret-key")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, app, "Authorization", "Bearer secret-key")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, app, "X-API-Key", "wrong-key")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = request(t, app, "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIKeyAuth_Unconfigured(t *testing.T) {
	app := newProtectedApp("")
	resp := request(t, app, "X-API-Key", "anything")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
