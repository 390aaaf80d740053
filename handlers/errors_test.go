package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"identity-sync-service/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"missing credential", &services.MissingCredentialError{Kind: services.AccessToken}, fiber.StatusUnauthorized, "missing_credential", false},
		{"invalid token", &services.InvalidTokenError{Kind: services.IdentityToken, Reason: "token is expired"}, fiber.StatusUnauthorized, "invalid_token", false},
		{"malformed payload", &services.MalformedPayloadError{Field: "linked_accounts"}, fiber.StatusInternalServerError, "malformed_identity_payload", false},
		{"storage conflict", fmt.Errorf("sync: %w", &services.StorageConflictError{DID: "did:privy:abc", Cause: errors.New("dup")}), fiber.StatusServiceUnavailable, "storage_conflict", true},
		{"fiber error", fiber.ErrNotFound, fiber.StatusNotFound, "http_error", false},
		{"anything else", errors.New("disk on fire"), fiber.StatusInternalServerError, "internal_error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, body["error"])
			assert.NotEmpty(t, body["detail"])
			if tt.retryable {
				assert.Equal(t, true, body["retryable"])
			}
		})
	}

	t.Run("invalid token detail carries the reason", func(t *testing.T) {
		app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
		app.Get("/", func(c *fiber.Ctx) error {
			return &services.InvalidTokenError{Kind: services.AccessToken, Reason: "token has invalid claims: token is expired"}
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Invalid access token: token has invalid claims: token is expired", body["detail"])
	})
}
