package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bazaar-chain/bazaar-auth/internal/wallet"
)

const throttlePrefix = "rl:verify:"

// VerifyThrottle limits signature attempts per wallet address per minute.
// Unparseable addresses are counted against the client IP. A non-positive
// limit or a nil cache disables the throttle. Cache errors fail open.
func VerifyThrottle(cache redis.Cmdable, maxPerMin int) fiber.Handler {
	if cache == nil || maxPerMin <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return func(c *fiber.Ctx) error {
		var req struct {
			WalletAddress string `json:"walletAddress"`
		}
		_ = c.BodyParser(&req)
		subject, err := wallet.Normalize(req.WalletAddress)
		if err != nil {
			subject = "ip:" + c.IP()
		}

		ctx := c.UserContext()
		key := throttlePrefix + subject
		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(ctx, key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return fiber.NewError(http.StatusTooManyRequests, "too many verification attempts, try again later")
		}
		return c.Next()
	}
}
