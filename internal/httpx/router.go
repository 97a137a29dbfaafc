package httpx

import (
	"github.com/gofiber/fiber/v2"

	"github.com/JunaYa/ferriskey/internal/auth"
	"github.com/JunaYa/ferriskey/internal/config"
	"github.com/JunaYa/ferriskey/internal/esx"
	"github.com/JunaYa/ferriskey/internal/httpx/mw"
	"github.com/JunaYa/ferriskey/internal/identity"
	"github.com/JunaYa/ferriskey/internal/mqx"
	"github.com/JunaYa/ferriskey/internal/policy"
	"github.com/JunaYa/ferriskey/internal/redisx"
)

// Providers are the optional backing services: any of them may be nil and
// the affected feature degrades.
type Providers struct {
	MQ  mqx.Publisher
	ES  *esx.Client
	RDB *redisx.Client
}

// Deps are the required collaborators of the identity routes.
type Deps struct {
	Cfg    *config.Config
	Auth   *auth.Service
	Realms identity.RealmStore
	Prov   *identity.Provisioner
	Engine *policy.Engine
}

// Register wires middleware and routes onto the app.
func Register(app *fiber.App, deps Deps, providers ...*Providers) {
	var p *Providers
	if len(providers) > 0 {
		p = providers[0]
	}
	sink := newEventSink(p)
	mwDeps := mw.Deps{
		Realms: deps.Realms,
		Prov:   deps.Prov,
		Engine: deps.Engine,
		Notify: sink,
	}

	app.Get("/health", HealthHandler)

	app.Use(mw.Auth(deps.Auth))
	if deps.Cfg != nil {
		var rdb *redisx.Client
		if p != nil {
			rdb = p.RDB
		}
		app.Use(mw.RateLimitDefault(rdb, deps.Cfg.RateLimit.WindowSec, deps.Cfg.RateLimit.Max))
	}

	realms := app.Group("/realms/:realm_name")
	realms.Get("/identity", identityHandler(mwDeps))
	realms.Get("/permissions", permissionsHandler(mwDeps))
	realms.Get("/devices/:device_id", getDeviceHandler(mwDeps))
	realms.Get("/device", mw.Device(mwDeps), deviceContextHandler)

	var es *esx.Client
	if p != nil {
		es = p.ES
	}
	realms.Get("/auth-events", authEventsHandler(mwDeps, es))
}
