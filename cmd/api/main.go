package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jhoicas/stock-ledger/docs"
	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/identity"
	"github.com/jhoicas/stock-ledger/internal/application/posting"
	"github.com/jhoicas/stock-ledger/internal/application/stock"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/enrichment"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/stock-ledger/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/internal/worker"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/identifier"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

// storage runners de la capa de persistencia elegida y su limpieza.
type storage struct {
	runner     repository.TxRunner
	privileged repository.PrivilegedTxRunner
	health     func(ctx context.Context) error
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.StorageDriver).
		Str("negative_policy", cfg.Stock.NegativePolicy).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store := openStorage(ctx, cfg, log)
	defer store.close()

	// Redis es opcional: sin él no hay caché de enriquecimiento ni coordinación del barrido.
	var rdb *infraredis.Client
	if cfg.Redis.Enabled() {
		rdb, err = infraredis.NewClient(ctx, infraredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
	}

	var enricher identity.Enricher
	if cfg.Enrichment.Enabled() {
		var cache enrichment.Cache
		if rdb != nil {
			cache = rdb
		}
		enricher = enrichment.NewClient(enrichment.Config{
			BaseURL:  cfg.Enrichment.URL,
			Timeout:  time.Duration(cfg.Enrichment.TimeoutMS) * time.Millisecond,
			CacheTTL: time.Duration(cfg.Enrichment.CacheTTLMinutes) * time.Minute,
		}, cache, log)
	}

	registry := identity.NewMasterRegistry(store.privileged, cfg.Identity.UpsertAttempts, log)
	links := identity.NewLinkStore(store.runner, cfg.Identity.UpsertAttempts, log)
	resolver := identity.NewResolver(registry, links, enricher, identity.ResolverConfig{
		Strength:      identifier.ParseStrength(cfg.Identity.Validation),
		EnrichTimeout: time.Duration(cfg.Enrichment.TimeoutMS) * time.Millisecond,
	}, log)
	stockSvc := stock.NewService(store.runner, stock.ParsePolicy(cfg.Stock.NegativePolicy), log)
	engine := posting.NewEngine(store.runner, stockSvc, log)
	productUC := catalog.NewProductUseCase(store.runner, log)

	var sweeper *worker.EnrichmentSweeper
	if enricher != nil {
		var locker worker.Locker
		if rdb != nil {
			locker = worker.NewRedisLocker(rdb.Locker())
		}
		sweeper = worker.NewEnrichmentSweeper(resolver, locker, worker.SweeperConfig{
			Interval: time.Duration(cfg.Enrichment.SweepIntervalSeconds) * time.Second,
			Batch:    cfg.Enrichment.SweepBatch,
		}, log)
		sweeper.Start(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    docs.SwaggerInfo.Title,
		}))
	} else {
		log.Warn().Str("file", swaggerFile).Msg("swagger.json no encontrado, /docs deshabilitado")
	}

	health := store.health
	if rdb != nil {
		health = func(ctx context.Context) error {
			if err := store.health(ctx); err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Resolver:    resolver,
		Links:       links,
		ProductUC:   productUC,
		Stock:       stockSvc,
		Posting:     engine,
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.App.Name,
		Health:      health,
		Log:         log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if sweeper != nil {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("detener barrido de enriquecimiento")
		}
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) storage {
	if cfg.App.StorageDriver == "memory" {
		log.Warn().Msg("STORAGE_DRIVER=memory: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return storage{
			runner:     s,
			privileged: s,
			health:     func(context.Context) error { return nil },
			close:      func() {},
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	privPool, err := postgres.NewPrivilegedPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión privilegiada a PostgreSQL")
	}

	if cfg.DB.AutoMigrate {
		m, err := postgres.NewMigrator(privPool, log)
		if err != nil {
			log.Fatal().Err(err).Msg("inicializar migraciones")
		}
		if err := m.Up(); err != nil {
			log.Fatal().Err(err).Msg("aplicar migraciones")
		}
		_ = m.Close()
	}

	return storage{
		runner:     postgres.NewTxRunner(pool),
		privileged: postgres.NewPrivilegedTxRunner(privPool),
		health:     pool.Ping,
		close: func() {
			privPool.Close()
			pool.Close()
		},
	}
}
