package config

import (
	"log"
	"strconv"

	agollo "github.com/apolloconfig/agollo/v4"
	apconf "github.com/apolloconfig/agollo/v4/env/config"
	"github.com/apolloconfig/agollo/v4/storage"
)

// overrideFromApollo starts Apollo client and overrides config values if present.
// Returns a closer to stop the Apollo client.
func overrideFromApollo(cfg *Config, store *Store) (func(), error) {
	if cfg.Apollo.Addrs == "" || cfg.Apollo.AppID == "" {
		log.Println("apollo: missing APOLLO_ADDRS or APOLLO_APP_ID; skip")
		return nil, nil
	}

	ns := cfg.Apollo.Namespace
	if ns == "" {
		ns = "application"
	}

	appCfg := &apconf.AppConfig{
		AppID:              cfg.Apollo.AppID,
		Cluster:            cfg.Apollo.Cluster,
		NamespaceName:      ns,
		IP:                 cfg.Apollo.Addrs,
		Secret:             cfg.Apollo.AccessKey,
	}

	client, err := agollo.StartWithConfig(func() (*apconf.AppConfig, error) { return appCfg, nil })
	if err != nil {
		return nil, err
	}

	// Initial override
	applyApolloOverrides(client, ns, cfg)
	_ = store.UpdateValidated(cfg, map[string]bool{"apollo.init": true})

	// Listen changes: update store with changed keys
	client.AddChangeListener(&changeListener{ns: ns, client: client, store: store})

	closer := func() {
		// agollo v4 exposes no Stop API; nothing to release here
	}
	return closer, nil
}

func applyApolloOverrides(client agollo.Client, namespace string, cfg *Config) {
	cache := client.GetConfigCache(namespace)
	if cache == nil {
		return
	}
	setStr := func(key string, dst *string) {
		if v, err := cache.Get(key); err == nil {
			if s, _ := v.(string); s != "" {
				*dst = s
			}
		}
	}
	setInt := func(key string, dst *int) {
		if v, err := cache.Get(key); err == nil {
			if s, _ := v.(string); s != "" {
				if n, err := strconv.Atoi(s); err == nil {
					*dst = n
				}
			}
		}
	}

	setStr("app.env", &cfg.AppEnv)
	setStr("server.addr", &cfg.Server.Addr)
	setStr("log.level", &cfg.Log.Level)
	setStr("log.format", &cfg.Log.Format)
	setStr("pg.url", &cfg.PG.URL)
	setInt("pg.max_open", &cfg.PG.MaxOpenConns)
	setInt("pg.max_idle", &cfg.PG.MaxIdleConns)

	setStr("auth.algo", &cfg.Auth.Algo)
	setStr("auth.hs_secret", &cfg.Auth.HSSecret)
	setStr("auth.rs_public_key", &cfg.Auth.RSPublicKey)
	setStr("auth.issuer", &cfg.Auth.Issuer)
	setStr("auth.audience", &cfg.Auth.Audience)

	setInt("rate.window_sec", &cfg.RateLimit.WindowSec)
	setInt("rate.max", &cfg.RateLimit.Max)

	setStr("redis.addr", &cfg.Redis.Addr)
	setStr("redis.password", &cfg.Redis.Password)
	setInt("redis.db", &cfg.Redis.DB)
	setStr("mq.url", &cfg.MQ.URL)
	setStr("mq.exchange", &cfg.MQ.Exchange)
	setStr("es.addrs", &cfg.ES.Addrs)
	setStr("es.username", &cfg.ES.Username)
	setStr("es.password", &cfg.ES.Password)
}

type changeListener struct {
	ns     string
	client agollo.Client
	store  *Store
}

func (c *changeListener) OnChange(e *storage.ChangeEvent) {
	log.Printf("apollo change: namespace=%s, changes=%d", e.Namespace, len(e.Changes))
	// Build new config based on current and apply overrides
	cur := c.store.Get()
	next := cloneConfig(cur)
	applyApolloOverrides(c.client, c.ns, next)
	changed := map[string]bool{}
	for k := range e.Changes {
		changed[k] = true
	}
	_ = c.store.UpdateValidated(next, changed)
}

func (c *changeListener) OnNewestChange(_ *storage.FullChangeEvent) {
	// OnChange already rebuilds the config from the cache.
}
