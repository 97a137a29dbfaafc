package mw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/JunaYa/ferriskey/internal/identity"
	"github.com/JunaYa/ferriskey/internal/policy"
)

// HeaderDeviceID carries the client device identifier.
const HeaderDeviceID = "X-Device-Id"

// Deps bundles the collaborators the identity and device middleware need.
type Deps struct {
	Realms identity.RealmStore
	Prov   *identity.Provisioner
	Engine *policy.Engine
	// Notify, when set, observes every freshly created device profile.
	Notify ProvisionNotifier
}

// ProvisionNotifier observes profile creation, once per created profile.
type ProvisionNotifier interface {
	DeviceProvisioned(ctx context.Context, profile identity.DeviceProfile)
}

// realmFromPath extracts the realm name from the request path: the segment
// immediately after the literal "realms".
func realmFromPath(path string) (string, bool) {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		if seg == "realms" && i+1 < len(segs) && segs[i+1] != "" {
			return segs[i+1], true
		}
	}
	return "", false
}

// RequireIdentity resolves the caller's identity with bearer-over-device
// precedence. A bearer identity attached by Auth wins unconditionally; absent
// that, the X-Device-Id header provisions (or finds) an anonymous device user
// in the realm named by the path. With neither credential the request is
// unauthorized.
func RequireIdentity(c *fiber.Ctx, deps Deps) (identity.Identity, error) {
	if ident, ok := IdentityFromCtx(c); ok {
		return *ident, nil
	}

	deviceID := c.Get(HeaderDeviceID)
	if deviceID == "" {
		return identity.Identity{}, fiber.NewError(fiber.StatusUnauthorized,
			"Authentication required: provide either Authorization header or X-Device-Id header")
	}

	realmName, ok := realmFromPath(c.Path())
	if !ok {
		return identity.Identity{}, fiber.NewError(fiber.StatusBadRequest,
			"Invalid path: realm_name not found in path")
	}

	ctx := c.Context()
	realm, err := deps.Realms.GetRealmByName(ctx, realmName)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.Identity{}, fiber.NewError(fiber.StatusNotFound,
				fmt.Sprintf("Realm '%s' not found", realmName))
		}
		return identity.Identity{}, err
	}

	profile, created, err := deps.Prov.GetOrCreate(ctx, realm, deviceID, nil)
	if err != nil {
		return identity.Identity{}, err
	}
	if created && deps.Notify != nil {
		deps.Notify.DeviceProvisioned(ctx, profile)
	}

	user, err := deps.Prov.ResolveUser(ctx, profile)
	if err != nil {
		return identity.Identity{}, err
	}
	ident := identity.NewUserIdentity(user)
	c.Locals(identityKey, &ident)
	return ident, nil
}

// ActorID returns the acting user id of a resolved identity, for created_by
// attribution.
func ActorID(ident identity.Identity) *uuid.UUID {
	id := ident.ID()
	return &id
}
