package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQueueToken = "test-queue-token"

func signatureApp() *fiber.App {
	m := NewSignatureMiddleware(testQueueToken)
	app := fiber.New()
	app.Post("/worker", m.Verify(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	return app
}

func TestVerifyAcceptsSignedDelivery(t *testing.T) {
	app := signatureApp()
	m := NewSignatureMiddleware(testQueueToken)

	body := `{"jobId":"j1","songsToProcess":[]}`
	sig, err := m.Sign([]byte(body))
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/worker", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, sig)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestVerifyRejectsMissingSignature(t *testing.T) {
	app := signatureApp()

	req := httptest.NewRequest("POST", "/worker", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	app := signatureApp()
	forged := NewSignatureMiddleware("some-other-token")

	body := `{"jobId":"j1"}`
	sig, err := forged.Sign([]byte(body))
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/worker", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, sig)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	app := signatureApp()
	m := NewSignatureMiddleware(testQueueToken)

	sig, err := m.Sign([]byte(`{"jobId":"j1"}`))
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/worker", strings.NewReader(`{"jobId":"j2"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, sig)

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	payload, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(payload), "mismatch")
}
