package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bazaar-chain/bazaar-auth/internal/identity"
	"github.com/bazaar-chain/bazaar-auth/internal/metrics"
	"github.com/bazaar-chain/bazaar-auth/internal/validation"
	"github.com/bazaar-chain/bazaar-auth/internal/wallet"
)

// Handler exposes the challenge/verify endpoints.
type Handler struct {
	svc *Service
}

// NewHandler constructs an auth HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type challengeRequest struct {
	WalletAddress string `json:"walletAddress"`
}

func (r challengeRequest) Validate() error {
	if strings.TrimSpace(r.WalletAddress) == "" {
		return validation.Errorf("walletAddress", "is required")
	}
	return nil
}

type verifyRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
}

func (r verifyRequest) Validate() error {
	if strings.TrimSpace(r.WalletAddress) == "" {
		return validation.Errorf("walletAddress", "is required")
	}
	if strings.TrimSpace(r.Signature) == "" {
		return validation.Errorf("signature", "is required")
	}
	return nil
}

// UserResponse is the public view of an identity.
type UserResponse struct {
	ID            string  `json:"id"`
	WalletAddress string  `json:"walletAddress"`
	DisplayName   *string `json:"displayName"`
	Email         *string `json:"email"`
	Bio           *string `json:"bio"`
	AvatarURL     *string `json:"avatarUrl"`
}

// NewUserResponse renders the scalar profile of user.
func NewUserResponse(user identity.Identity) UserResponse {
	return UserResponse{
		ID:            user.ID,
		WalletAddress: user.Address,
		DisplayName:   user.DisplayName,
		Email:         user.Email,
		Bio:           user.Bio,
		AvatarURL:     user.AvatarURL,
	}
}

type challengeResponse struct {
	Message string       `json:"message"`
	Nonce   string       `json:"nonce"`
	User    UserResponse `json:"user"`
}

type verifyResponse struct {
	User UserResponse `json:"user"`
}

// Challenge issues a fresh nonce and the message the wallet must sign.
func (h *Handler) Challenge(c *fiber.Ctx) error {
	var req challengeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}
	ch, err := h.svc.Challenge(c.UserContext(), req.WalletAddress)
	if err != nil {
		return HTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(challengeResponse{
		Message: ch.Message,
		Nonce:   ch.Nonce,
		User:    NewUserResponse(ch.User),
	})
}

// Verify checks a signed challenge and rotates the nonce.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		h.svc.metrics.IncVerification(metrics.OutcomeInvalidRequest)
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		h.svc.metrics.IncVerification(metrics.OutcomeInvalidRequest)
		return err
	}
	user, err := h.svc.Verify(c.UserContext(), req.WalletAddress, req.Signature)
	if err != nil {
		return HTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(verifyResponse{User: NewUserResponse(user)})
}

// HTTPError maps authentication failures onto HTTP errors. Unknown errors
// pass through so the server error handler reports them as 500.
func HTTPError(err error) error {
	switch {
	case errors.Is(err, validation.ErrValidation):
		return err
	case errors.Is(err, wallet.ErrInvalidAddress):
		return validation.Errorf("walletAddress", "invalid wallet address")
	case errors.Is(err, ErrUserNotFound):
		return fiber.NewError(http.StatusNotFound, ErrUserNotFound.Error())
	case errors.Is(err, wallet.ErrInvalidSignature):
		return fiber.NewError(http.StatusBadRequest, "invalid signature")
	case errors.Is(err, ErrSignatureMismatch):
		return fiber.NewError(http.StatusUnauthorized, ErrSignatureMismatch.Error())
	default:
		return err
	}
}
