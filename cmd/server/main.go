// Package main is the entry point for the identity API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/JunaYa/ferriskey/internal/auth"
	"github.com/JunaYa/ferriskey/internal/config"
	"github.com/JunaYa/ferriskey/internal/db"
	"github.com/JunaYa/ferriskey/internal/esx"
	"github.com/JunaYa/ferriskey/internal/httpx"
	"github.com/JunaYa/ferriskey/internal/identity"
	"github.com/JunaYa/ferriskey/internal/logx"
	"github.com/JunaYa/ferriskey/internal/mqx"
	"github.com/JunaYa/ferriskey/internal/policy"
	"github.com/JunaYa/ferriskey/internal/redisx"
	"github.com/JunaYa/ferriskey/internal/server"
	"github.com/JunaYa/ferriskey/internal/store"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	// Load config (env first; optional Apollo override)
	cfg, cfgStore, apClose, err := config.Load()
	if err != nil {
		panic(err)
	}
	if apClose != nil {
		defer apClose()
	}

	// Init global logger first
	logx.Init(cfg.Log.Level, cfg.Log.Format)

	mainLogger := logx.GetScope("main")

	mainLogger.Info("config loaded",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.Server.Addr),
		zap.String("log.level", cfg.Log.Level),
		zap.String("log.format", cfg.Log.Format),
	)

	// Open DB (database/sql + pgx)
	sqldb, closeDB, err := db.Open(cfg)
	if err != nil {
		mainLogger.Sugar().Error("open db error", "err", err)
		panic(err)
	}
	defer closeDB()

	st := store.New(sqldb)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := st.Migrate(ctx); err != nil {
		mainLogger.Sugar().Error("migrate error", "err", err)
		panic(err)
	}

	// The master realm must exist before any cross-realm check runs.
	if _, err := st.EnsureRealm(ctx, identity.MasterRealm); err != nil {
		mainLogger.Sugar().Error("seed master realm error", "err", err)
		panic(err)
	}

	// Optional deps: Redis, MQ, ES
	var (
		redisClose func()
		mqClose    func() error
	)
	rdb, rclose, err := redisx.Open(cfg)
	if err != nil {
		mainLogger.Sugar().Warn("redis init failed", "err", err)
	} else {
		redisClose = rclose
		defer redisClose()
	}

	var publisher mqx.Publisher
	if cfg.MQ.URL != "" {
		if pub, err := mqx.NewRabbitPublisher(cfg.MQ.URL, cfg.MQ.Exchange); err != nil {
			mainLogger.Sugar().Warn("mq init failed", "err", err)
		} else {
			publisher = pub
			mqClose = pub.Close
			defer func() {
				if mqClose != nil {
					_ = mqClose()
				}
			}()
		}
	}

	esClient, esClose, err := esx.Open(cfg)
	if err != nil {
		mainLogger.Sugar().Warn("es init failed", "err", err)
	} else {
		defer esClose()
	}

	// Domain wiring
	authSvc := auth.NewService(cfg, st)
	prov := identity.NewProvisioner(st, st)
	engine := policy.NewEngine(st, st, st)

	// Fiber app and routes
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler()})
	httpx.RegisterCommonMiddlewares(app)
	deps := httpx.Deps{Cfg: cfg, Auth: authSvc, Realms: st, Prov: prov, Engine: engine}
	providers := &httpx.Providers{MQ: publisher, ES: esClient, RDB: rdb}
	httpx.Register(app, deps, providers)

	// Watch for dynamic config changes (Apollo)
	// Validators: rollback strategy for invalid config
	cfgStore.AddValidator(func(newCfg *config.Config, changed map[string]bool) error {
		if changed["pg.max_open"] || changed["pg.max_idle"] {
			if newCfg.PG.MaxIdleConns > newCfg.PG.MaxOpenConns {
				return fmt.Errorf("PG_MAX_IDLE cannot exceed PG_MAX_OPEN")
			}
		}
		return nil
	})

	cfgStore.Watch(func(newCfg *config.Config, changed map[string]bool) {
		if changed["pg.max_open"] || changed["pg.max_idle"] {
			db.UpdatePool(newCfg.PG.MaxOpenConns, newCfg.PG.MaxIdleConns)
			mainLogger.Info("db pool updated",
				zap.Int("max_open", newCfg.PG.MaxOpenConns),
				zap.Int("max_idle", newCfg.PG.MaxIdleConns),
			)
		}
		if changed["pg.url"] {
			mainLogger.Warn("pg.url changed; restart required to reconnect")
		}
		if changed["server.addr"] {
			mainLogger.Warn("server.addr changed; restart required to take effect",
				zap.String("addr", newCfg.Server.Addr),
			)
		}
		if changed["log.level"] || changed["log.format"] {
			logx.Init(newCfg.Log.Level, newCfg.Log.Format)
			mainLogger.Info("logger reconfigured",
				zap.String("level", newCfg.Log.Level),
				zap.String("format", newCfg.Log.Format),
			)
		}
	})

	// Graceful shutdown
	go func() {
		ln, err := server.GetListener(cfg.Server.Addr)
		if err != nil {
			mainLogger.Sugar().Errorf("listener error: %v", err)
			return
		}
		if err := app.Listener(ln); err != nil {
			mainLogger.Sugar().Infof("fiber exit: %v", err)
		}
	}()
	mainLogger.Sugar().Infof("server started on %s", cfg.Server.Addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	mainLogger.Sugar().Info("shutting down...")
	_ = app.Shutdown()
}
