package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bazaar-chain/bazaar-auth/internal/auth"
)

// RegisterAuthRoutes wires the wallet challenge and verify endpoints. replay
// guards challenge issuance only.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, replay, throttle fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/challenge", replay, h.Challenge)
	group.Post("/verify", throttle, h.Verify)
}
