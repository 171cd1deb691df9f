// Package main provides the battle server binary: websocket gateway, battle
// sessions and a gRPC health endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/config"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/battle"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/dice"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/roster"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/session"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/skill"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/gateway"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/observability"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/scripting"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/server"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/storage/postgres"
)

const (
	// healthPrefix namespaces per-service gRPC health entries.
	healthPrefix   = "somen."
	healthDatabase = healthPrefix + "database"
	skillsVM       = "skills"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Name)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting battle server",
		zap.String("gateway_addr", cfg.Gateway.Addr()),
		zap.String("health_addr", cfg.Health.Addr()),
		zap.String("catalog_source", cfg.Catalog.Source),
	)

	var pool *postgres.Pool
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		version, dirty, ok, err := pool.SchemaVersion(ctx)
		switch {
		case err != nil:
			logger.Fatal("checking schema version", zap.Error(err))
		case !ok:
			logger.Fatal("database has no schema; run cmd/migrate first")
		case dirty:
			logger.Fatal("database schema is dirty", zap.Int64("version", version))
		}
		logger.Info("database schema", zap.Int64("version", version))
	}

	reg, err := loadCatalog(ctx, cfg.Catalog, pool)
	if err != nil {
		logger.Fatal("loading catalog", zap.Error(err))
	}
	counts := reg.Counts()
	logger.Info("catalog loaded",
		zap.Int("moves", counts.Moves),
		zap.Int("inspirits", counts.Inspirits),
		zap.Int("yokai", counts.Yokai),
		zap.Int("attitudes", counts.Attitudes),
		zap.Int("equipment", counts.Equipment),
	)

	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)

	var skills battle.MoxieEvaluator = skill.NewStaticEvaluator()
	var scripts *scripting.Manager
	if cfg.Catalog.SkillsDir != "" {
		scripts = scripting.NewManager(roller, logger)
		limit := cfg.Catalog.InstructionLimit
		if limit <= 0 {
			limit = scripting.DefaultInstructionLimit
		}
		if err := scripts.Load(skillsVM, cfg.Catalog.SkillsDir, limit); err != nil {
			logger.Fatal("loading skill scripts", zap.String("dir", cfg.Catalog.SkillsDir), zap.Error(err))
		}
		skills = skill.NewScriptEvaluator(scripts, skillsVM, skill.NewStaticEvaluator(), logger)
	}

	var recorder session.Recorder
	if pool != nil {
		recorder = pool.BattleRecords()
	}

	sessCfg := session.Config{
		Battle: battle.Config{
			LogWindow:         cfg.Battle.LogWindow,
			SoulPerTurn:       cfg.Battle.SoulPerTurn,
			CritChancePercent: cfg.Battle.CritChancePercent,
		},
		EndedGrace:    cfg.Battle.EndedGrace,
		ActionTimeout: cfg.Battle.ActionTimeout,
	}
	sessMgr := session.NewManager(sessCfg, roster.NewResolver(reg, cfg.Battle.RosterMax), reg, skills, roller, recorder, logger)
	gw := gateway.NewServer(cfg.Gateway, sessMgr, logger)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	// Stopped in reverse: the gateway goes first, the database last so that
	// battles ending during shutdown can still be recorded.
	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)
	lifecycle.OnStatus(func(name string, up bool) {
		st := healthpb.HealthCheckResponse_NOT_SERVING
		if up {
			st = healthpb.HealthCheckResponse_SERVING
		}
		healthSrv.SetServingStatus(healthPrefix+name, st)
	})

	if pool != nil {
		dbCtx, stopDB := context.WithCancel(ctx)
		lifecycle.Add("database", &server.FuncService{
			StartFn: func() error {
				watchDatabase(dbCtx, pool, healthSrv, logger)
				return nil
			},
			StopFn: func() {
				stopDB()
				pool.Close()
			},
		})
	}

	lifecycle.Add("health", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.Health.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.Health.Addr(), err)
			}
			logger.Info("gRPC health listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			healthSrv.Shutdown()
			grpcServer.GracefulStop()
		},
	})

	reaperCtx, stopReaper := context.WithCancel(ctx)
	lifecycle.Add("reaper", &server.FuncService{
		StartFn: func() error {
			sessMgr.Run(reaperCtx, cfg.Battle.SweepInterval)
			return nil
		},
		StopFn: func() {
			stopReaper()
			if scripts != nil {
				scripts.Close()
			}
		},
	})

	lifecycle.Add("gateway", gw)

	logger.Info("battle server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// loadCatalog reads the catalog from the configured source.
//
// Precondition: pool is non-nil when cfg.Source is "postgres".
func loadCatalog(ctx context.Context, cfg config.CatalogConfig, pool *postgres.Pool) (*catalog.Registry, error) {
	switch cfg.Source {
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("catalog source postgres requires a database")
		}
		return pool.Catalog().Load(ctx)
	default:
		return catalog.LoadDirectory(cfg.Dir)
	}
}

// watchDatabase pings the database every 30s and mirrors the result into the
// gRPC health service until ctx is done.
func watchDatabase(ctx context.Context, pool *postgres.Pool, hs *health.Server, logger *zap.Logger) {
	hs.SetServingStatus(healthDatabase, healthpb.HealthCheckResponse_SERVING)
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := pool.Health(ctx, 5*time.Second); err != nil {
			logger.Warn("database health check failed", zap.Error(err))
			hs.SetServingStatus(healthDatabase, healthpb.HealthCheckResponse_NOT_SERVING)
			continue
		}
		hs.SetServingStatus(healthDatabase, healthpb.HealthCheckResponse_SERVING)
	}
}
