package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/stitchweb/stitch/internal/config"
	"github.com/stitchweb/stitch/internal/infra/database"
	"github.com/stitchweb/stitch/internal/infra/gateway"
	"github.com/stitchweb/stitch/internal/infra/repository"
	"github.com/stitchweb/stitch/internal/present/web"
	"github.com/stitchweb/stitch/internal/present/web/middleware"
	"github.com/stitchweb/stitch/internal/service"
	"github.com/stitchweb/stitch/internal/usecase"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.Server.EnableTrace {
		shutdown, err := setupTrace(cfg.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to set up tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer shutdown()
	}

	db, err := database.NewPostgres(cfg.Server.PostgresDsn)
	if err != nil {
		slog.Error("failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rdb := database.NewRedis(cfg.Server.RedisAddr, os.Getenv("STITCH_REDIS_PASSWORD"), cfg.Server.RedisDB)

	var mc *memcache.Client
	if cfg.Server.MemcachedAddr != "" {
		mc = database.NewMemcached(cfg.Server.MemcachedAddr)
	}

	boardRepo := repository.NewBoardRepository(db)
	cardRepo := repository.NewCardRepository(db)
	userRepo := repository.NewUserRepository(db)

	boards := usecase.NewBoardUsecase(boardRepo)
	cards := usecase.NewCardUsecase(cardRepo, boardRepo)

	auth := service.NewAuthService(userRepo, rdb)
	signal := service.NewSignalService(rdb)
	csrf := service.NewCSRFService(time.Duration(cfg.App.CSRFTokenTTL))
	cache := gateway.NewFragmentCache(mc, time.Duration(cfg.App.FragmentCacheTTL))

	handler, err := web.NewHandler(boards, cards, auth, signal, csrf, cache)
	if err != nil {
		slog.Error("failed to build handler", slog.String("error", err.Error()))
		os.Exit(1)
	}

	e := echo.New()
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	if cfg.Server.EnableTrace {
		e.Use(otelecho.Middleware("stitchd"))
	}

	handler.RegisterRoutes(e, middleware.NewAuthMiddleware(auth, csrf))

	e.Logger.Fatal(e.Start(cfg.Server.Addr))
}

func setupTrace(endpoint string) (func(), error) {
	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(semconv.ServiceName("stitchd")),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tp.Shutdown(ctx)
	}, nil
}
