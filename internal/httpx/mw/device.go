package mw

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/JunaYa/ferriskey/internal/identity"
	"github.com/JunaYa/ferriskey/internal/logx"
	"github.com/JunaYa/ferriskey/internal/policy"
)

// DefaultDeviceID is the sentinel used when a device-scoped route is hit
// without an X-Device-Id header. All such requests in a realm collapse onto
// one shared profile.
const DefaultDeviceID = "default_device"

const deviceKey = "device"

var mwLogger = logx.GetScope("mw")

// DeviceContext is the per-request device binding attached by Device.
type DeviceContext struct {
	DeviceID string
	UserID   uuid.UUID
}

// Device resolves a device context for every request on the routes it wraps.
// The header is optional: absent, the sentinel id is used. When a bearer
// identity is present the realm lookup goes through the policy engine, so a
// caller from an unrelated realm is rejected, and the created profile is
// attributed to the acting user.
func Device(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID := c.Get(HeaderDeviceID)
		if deviceID == "" {
			deviceID = DefaultDeviceID
			mwLogger.Sugar().Debugw("missing device header, using sentinel", "path", c.Path())
		}

		realmName, ok := realmFromPath(c.Path())
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid path: realm_name not found in path")
		}

		ctx := c.Context()
		var realm identity.Realm
		var actor *uuid.UUID
		var err error
		if ident, authed := IdentityFromCtx(c); authed {
			realm, err = deps.Engine.GetRealmByName(ctx, *ident, realmName)
			if err == nil {
				actor = ActorID(*ident)
			}
		} else {
			realm, err = deps.Realms.GetRealmByName(ctx, realmName)
		}
		if err != nil {
			switch {
			case errors.Is(err, policy.ErrAccessDenied):
				return fiber.NewError(fiber.StatusForbidden, "Access denied")
			case errors.Is(err, identity.ErrNotFound):
				return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("Realm '%s' not found", realmName))
			default:
				return err
			}
		}

		profile, created, err := deps.Prov.GetOrCreate(ctx, realm, deviceID, actor)
		if err != nil {
			return err
		}
		if created && deps.Notify != nil {
			deps.Notify.DeviceProvisioned(ctx, profile)
		}

		c.Locals(deviceKey, &DeviceContext{DeviceID: deviceID, UserID: profile.UserID})
		return c.Next()
	}
}

// DeviceFromCtx returns the device context attached by Device, if any.
func DeviceFromCtx(c *fiber.Ctx) (*DeviceContext, bool) {
	dc, ok := c.Locals(deviceKey).(*DeviceContext)
	return dc, ok && dc != nil
}
