package profile

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/bazaar-chain/bazaar-auth/internal/auth"
	"github.com/bazaar-chain/bazaar-auth/internal/identity"
	"github.com/bazaar-chain/bazaar-auth/internal/metrics"
)

// Handler exposes profile read and signed update endpoints.
type Handler struct {
	svc *Service
}

// NewHandler constructs a profile HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type profileResponse struct {
	User        auth.UserResponse `json:"user"`
	ExtraFields []extraField      `json:"extraFields"`
}

func newProfileResponse(user identity.Identity) profileResponse {
	fields := make([]extraField, 0, len(user.Attributes))
	for _, a := range user.Attributes {
		fields = append(fields, extraField{Field: a.Field, Value: a.Value})
	}
	return profileResponse{User: auth.NewUserResponse(user), ExtraFields: fields}
}

// Get returns the profile stored for the path wallet address.
func (h *Handler) Get(c *fiber.Ctx) error {
	user, err := h.svc.Get(c.UserContext(), c.Params("walletAddress"))
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(newProfileResponse(user))
}

// Update applies a signed profile update and rotates the nonce.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		h.svc.metrics.IncProfileUpdate(metrics.OutcomeInvalidRequest)
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		h.svc.metrics.IncProfileUpdate(metrics.OutcomeInvalidRequest)
		return err
	}
	user, err := h.svc.Update(c.UserContext(), req.input())
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(newProfileResponse(user))
}
