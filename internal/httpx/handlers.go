package httpx

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/JunaYa/ferriskey/internal/esx"
	"github.com/JunaYa/ferriskey/internal/httpx/mw"
	"github.com/JunaYa/ferriskey/internal/policy"
)

func reqCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), 3*time.Second)
}

// identityHandler resolves the caller and reports who they are, plus which
// credential won.
func identityHandler(deps mw.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, hadBearer := mw.IdentityFromCtx(c)
		ident, err := mw.RequireIdentity(c, deps)
		if err != nil {
			return err
		}

		ctx, cancel := reqCtx(c)
		defer cancel()
		realm, err := deps.Engine.GetRealmByName(ctx, ident, c.Params("realm_name"))
		if err != nil {
			return err
		}

		return OK(c, fiber.Map{
			"user":  ident.User(),
			"realm": realm.Name,
			"mode":  lo.Ternary(hadBearer, "bearer", "device"),
		})
	}
}

// permissionsHandler reports the caller's verdict for every gated operation
// against the target realm. Permission names never leave the server.
func permissionsHandler(deps mw.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident, err := mw.RequireIdentity(c, deps)
		if err != nil {
			return err
		}

		ctx, cancel := reqCtx(c)
		defer cancel()
		realm, err := deps.Engine.GetRealmByName(ctx, ident, c.Params("realm_name"))
		if err != nil {
			return err
		}
		caps, err := deps.Engine.Capabilities(ctx, ident, realm)
		if err != nil {
			return err
		}
		return OK(c, fiber.Map{"realm": realm.Name, "operations": caps})
	}
}

// getDeviceHandler gets or creates the profile for the device id in the path.
// Creation is attributed to the acting identity and answers 201; a repeat
// lookup answers 200 with the same profile.
func getDeviceHandler(deps mw.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident, err := mw.RequireIdentity(c, deps)
		if err != nil {
			return err
		}
		deviceID := c.Params("device_id")
		if deviceID == "" {
			return BadRequest("device_id required", nil)
		}

		ctx, cancel := reqCtx(c)
		defer cancel()
		realm, err := deps.Engine.GetRealmByName(ctx, ident, c.Params("realm_name"))
		if err != nil {
			return err
		}

		profile, created, err := deps.Prov.GetOrCreate(ctx, realm, deviceID, mw.ActorID(ident))
		if err != nil {
			return err
		}
		if created && deps.Notify != nil {
			deps.Notify.DeviceProvisioned(ctx, profile)
		}
		if created {
			return Created(c, profile)
		}
		return OK(c, profile)
	}
}

// deviceContextHandler exposes the binding the device middleware attached.
func deviceContextHandler(c *fiber.Ctx) error {
	dc, ok := mw.DeviceFromCtx(c)
	if !ok {
		return InternalError("device context missing", nil)
	}
	return OK(c, fiber.Map{"device_id": dc.DeviceID, "user_id": dc.UserID})
}

// authEventsHandler searches the audit index for the target realm. Gated on
// the stats whitelist, so anonymous device users are rejected.
func authEventsHandler(deps mw.Deps, es *esx.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident, err := mw.RequireIdentity(c, deps)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		realm, err := deps.Engine.GetRealmByName(ctx, ident, c.Params("realm_name"))
		if err != nil {
			return err
		}
		allowed, err := deps.Engine.Can(ctx, ident, realm, policy.OpViewStats)
		if err != nil {
			return err
		}
		if !allowed {
			return policy.ErrAccessDenied
		}

		if es == nil {
			return OK(c, fiber.Map{"hits": []any{}})
		}
		from := c.QueryInt("offset", 0)
		size := clamp(c.QueryInt("limit", 20), 1, 100)
		res, err := esx.SearchAuthEvents(ctx, es, authEventsIndex, realm.ID.String(), c.Query("device_id"), from, size)
		if err != nil {
			return InternalError("es search failed", err.Error())
		}
		return OK(c, res)
	}
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
