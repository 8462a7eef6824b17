package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bazaar-chain/bazaar-auth/internal/profile"
)

// RegisterProfileRoutes wires profile read and signed update endpoints.
func RegisterProfileRoutes(r fiber.Router, h *profile.Handler, throttle fiber.Handler) {
	group := r.Group("/profile")
	group.Get("/:walletAddress", h.Get)
	group.Put("/", throttle, h.Update)
}
