package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/db"
	apihttp "github.com/yungbote/optocase-backend/internal/http"
	"github.com/yungbote/optocase-backend/internal/observability"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/realtime"
	"github.com/yungbote/optocase-backend/internal/realtime/bus"
	"github.com/yungbote/optocase-backend/internal/storage"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Server   *apihttp.Server
	SSEHub   *realtime.SSEHub

	metrics  *observability.Metrics
	sseBus   bus.Bus
	otelStop func(context.Context) error
	cancel   context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	metrics := observability.Init(log)

	store, err := storage.FromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	uploadsDir := ""
	if local, ok := store.(interface{ Root() string }); ok {
		uploadsDir = local.Root()
	}

	sseHub := realtime.NewSSEHub(log)
	var sseBus bus.Bus
	if cfg.RedisAddr != "" {
		sseBus, err = bus.NewRedisBus(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init redis bus: %w", err)
		}
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, reposet, sseHub, sseBus, store)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, serviceset, sseHub)
	middleware := wireMiddleware(log, serviceset)
	server := wireRouter(log, handlerset, middleware, metrics, uploadsDir)

	return &App{
		Log:      log,
		DB:       theDB,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Server:   server,
		SSEHub:   sseHub,
		metrics:  metrics,
		sseBus:   sseBus,
	}, nil
}

// Start launches the background pieces: tracing, the metrics side server and
// collectors, and the Redis forwarder that replays bus messages into the
// local hub.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.otelStop = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: "optocase-backend",
		Environment: a.Cfg.Environment,
		Version:     a.Cfg.Version,
	})

	if a.metrics != nil {
		a.metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.metrics.StartRedisCollector(ctx, a.Log, a.Cfg.RedisAddr)
	}

	if a.sseBus != nil {
		if err := a.sseBus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			a.Log.Error("sse forwarder failed to start", "error", err)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelStop != nil {
		shutdownCtx, cancel := context.WithCancel(context.Background())
		_ = a.otelStop(shutdownCtx)
		cancel()
		a.otelStop = nil
	}
	if a.sseBus != nil {
		_ = a.sseBus.Close()
	}
	if a.Services.Publisher != nil {
		_ = a.Services.Publisher.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
