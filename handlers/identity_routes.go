// handlers/identity_routes.go
package handlers

import (
	"identity-sync-service/middleware"
	"identity-sync-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupIdentityRoutes registers the health, session and identity sync routes.
func SetupIdentityRoutes(app *fiber.App, verifier middleware.TokenVerifier, identityService *services.IdentityService) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	requireAccess := middleware.RequireAccessToken(verifier)
	requireIdentity := middleware.RequireIdentityToken(verifier)

	app.Get("/auth/me", requireAccess, func(c *fiber.Ctx) error {
		claims := middleware.ClaimsFromCtx(c)
		return c.JSON(fiber.Map{
			"did":        claims.Subject(),
			"session_id": claims.SessionID(),
		})
	})

	app.Get("/wallets", requireAccess, func(c *fiber.Ctx) error {
		did := middleware.ClaimsFromCtx(c).Subject()

		wallets, err := identityService.Wallets.ListWallets(c.UserContext(), did)
		if err != nil {
			return err
		}
		return c.JSON(wallets)
	})

	app.Post("/sync-identity", requireIdentity, func(c *fiber.Ctx) error {
		snapshot, err := services.ParseIdentitySnapshot(middleware.ClaimsFromCtx(c))
		if err != nil {
			return err
		}

		result, err := identityService.SyncIdentity(c.UserContext(), snapshot)
		if err != nil {
			return err
		}
		return c.JSON(result)
	})
}
