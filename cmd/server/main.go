package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/zinlatt/courseware/internal/apperr"
	"github.com/zinlatt/courseware/internal/asset"
	"github.com/zinlatt/courseware/internal/config"
	"github.com/zinlatt/courseware/internal/database"
	"github.com/zinlatt/courseware/internal/handler"
	"github.com/zinlatt/courseware/internal/queue"
	"github.com/zinlatt/courseware/internal/repository"
	"github.com/zinlatt/courseware/internal/router"
	queuepub "github.com/zinlatt/courseware/internal/service"
	"github.com/zinlatt/courseware/internal/storage"
)

func main() {
	// .env is a development convenience; in production the variables
	// come from the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if !cfg.IsProd() {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	var store storage.Store
	switch cfg.StorageDriver {
	case "remote":
		store = storage.NewRemoteStore(cfg.RemoteStoreURL, cfg.RemoteStoreKey)
	default:
		local, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("upload directory unavailable")
		}
		store = local
	}

	users := repository.NewUserRepo(db)
	images := repository.NewImageRepo(db)
	categories := repository.NewCategoryRepo(db)
	providers := repository.NewProviderRepo(db)
	series := repository.NewSeriesRepo(db)
	courses := repository.NewCourseRepo(db)

	pub := queuepub.NewPublisher(log)
	assets := asset.NewManager(store, images, pub, log)
	go queue.StartCleanupConsumer(store, log)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.Handler(log)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.Register(e, cfg, rdb, users, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users),
		Profile:   handler.NewProfileHandler(users, images, assets),
		Users:     handler.NewUserHandler(users),
		Catalog:   handler.NewCatalogHandler(providers, series, categories, courses, images),
		Providers: handler.NewProviderHandler(providers, images, assets),
		Series:    handler.NewSeriesHandler(series, providers, categories, images, assets),
		Courses:   handler.NewCourseHandler(courses, series, images, assets),
	})

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
