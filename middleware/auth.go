// middleware/auth.go
package middleware

import (
	"strings"

	"identity-sync-service/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	AccessTokenCookie   = "privy-token"
	IdentityTokenHeader = "privy-id-token"
	IdentityTokenCookie = "privy-id-token"

	claimsLocalsKey = "token_claims"
)

// TokenVerifier is satisfied by *services.TokenVerifier.
type TokenVerifier interface {
	Verify(token string, profile services.TokenProfile) (services.ClaimSet, error)
}

// ExtractAccessToken looks, in order, for an Authorization bearer token, a raw
// Authorization header value and the privy-token cookie.
func ExtractAccessToken(c *fiber.Ctx) string {
	if header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); header != "" {
		switch {
		case strings.EqualFold(header, "bearer"):
			// An empty bearer carries no credential.
		case len(header) > 7 && strings.EqualFold(header[:7], "bearer "):
			return strings.TrimSpace(header[7:])
		default:
			return header
		}
	}
	return strings.TrimSpace(c.Cookies(AccessTokenCookie))
}

// ExtractIdentityToken looks for the privy-id-token header, then the cookie of
// the same name. The Authorization header is never consulted.
func ExtractIdentityToken(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Get(IdentityTokenHeader)); token != "" {
		return token
	}
	return strings.TrimSpace(c.Cookies(IdentityTokenCookie))
}

// Authorize extracts the credential for the profile's kind and verifies it.
func Authorize(c *fiber.Ctx, verifier TokenVerifier, profile services.TokenProfile) (services.ClaimSet, error) {
	var token string
	switch profile.Kind {
	case services.IdentityToken:
		token = ExtractIdentityToken(c)
	default:
		token = ExtractAccessToken(c)
	}

	if token == "" {
		log.Debug().Str("kind", string(profile.Kind)).Str("path", c.Path()).Msg("[AUTH] no credential on request")
		return nil, &services.MissingCredentialError{Kind: profile.Kind}
	}

	return verifier.Verify(token, profile)
}

// RequireAccessToken rejects requests without a valid access token and stores
// the verified claims for downstream handlers.
func RequireAccessToken(verifier TokenVerifier) fiber.Handler {
	return requireToken(verifier, services.AccessTokenProfile)
}

// RequireIdentityToken is RequireAccessToken for identity tokens.
func RequireIdentityToken(verifier TokenVerifier) fiber.Handler {
	return requireToken(verifier, services.IdentityTokenProfile)
}

func requireToken(verifier TokenVerifier, profile services.TokenProfile) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := Authorize(c, verifier, profile)
		if err != nil {
			return err
		}
		c.Locals(claimsLocalsKey, claims)
		return c.Next()
	}
}

// ClaimsFromCtx returns the claims stored by RequireAccessToken or
// RequireIdentityToken, or nil.
func ClaimsFromCtx(c *fiber.Ctx) services.ClaimSet {
	claims, _ := c.Locals(claimsLocalsKey).(services.ClaimSet)
	return claims
}
