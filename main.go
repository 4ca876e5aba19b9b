package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/vidshare/vidshare_server/internal"
	"github.com/vidshare/vidshare_server/internal/bunny"
	"github.com/vidshare/vidshare_server/internal/health"
	"github.com/vidshare/vidshare_server/internal/selection"
	"github.com/vidshare/vidshare_server/internal/status"
	"github.com/vidshare/vidshare_server/internal/storage"
	"github.com/vidshare/vidshare_server/internal/transport"
	"github.com/vidshare/vidshare_server/internal/upload"
	"github.com/vidshare/vidshare_server/internal/user"
	"github.com/vidshare/vidshare_server/internal/video"
	"github.com/vidshare/vidshare_server/internal/websocket"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	config, err := internal.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
		return
	}
	internal.ConfigureLogging(config.Log)
	if err := config.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
		return
	}

	var (
		userRepository  user.UserRepository
		videoRepository video.Repository
		dbPinger        health.Pinger
	)
	switch config.Database.Driver {
	case internal.DatabaseDriverPostgres:
		db, err := internal.NewDB(config.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
			return
		}
		defer db.Close()
		userRepository = user.NewPostgresUserRepository(db)
		videoRepository = video.NewPostgresRepository(db)
		dbPinger = db
	default:
		log.Warn().Msg("Using in-memory repositories, data is lost on restart")
		userRepository = user.NewMemoryRepository()
		videoRepository = video.NewMemoryRepository()
	}

	userService := user.NewUserService(userRepository, config.Users)
	videoService := video.NewService(videoRepository, userService, userService)

	stagingBackend, err := storage.NewBackend(&config.Staging)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing staging storage")
		return
	}
	previews := selection.NewPreviewRegistry(stagingBackend)
	drafts := upload.NewDraftStore(stagingBackend, previews, selection.MP4Prober{}, config.Upload.Limits)

	httpClient := &fasthttp.Client{
		Name:                     "vidshare/" + version,
		NoDefaultUserAgentHeader: true,
		MaxIdleConnDuration:      time.Minute,
	}
	streamClient := bunny.NewStreamClient(httpClient, config.Bunny, config.Upload.TransferTimeout)
	thumbnailTargets, err := newThumbnailTargets(config)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing thumbnail storage")
		return
	}
	transferClient := transport.NewClient(httpClient, config.Upload.TransferTimeout)

	hub := websocket.NewHub()
	orchestrator := upload.NewOrchestrator(streamClient, thumbnailTargets, transferClient, videoService, userService, hub, config.Upload.TransferTimeout)
	cleanup := upload.NewCleanupScheduler(drafts, config.Upload.DraftTTL)

	requestHandler := internal.NewRequestHandler(config, userService, internal.Endpoints{
		Health:  health.NewEndpoints(version, dbPinger),
		Status:  status.NewEndpoints(version, drafts, hub),
		Uploads: upload.NewEndpoints(drafts, orchestrator, previews),
		Videos:  video.NewEndpoints(videoService),
		Socket:  websocket.NewHandler(hub, userService, config.AllowedOrigins),
	})

	server := &fasthttp.Server{
		Name:    "vidshare",
		Handler: requestHandler,
		// the multipart envelope adds a little on top of the largest accepted file
		MaxRequestBodySize: int(config.Upload.MaxVideoSizeBytes) + 1024*1024,
		ReadTimeout:        config.Upload.TransferTimeout,
		WriteTimeout:       config.Upload.TransferTimeout,
		IdleTimeout:        2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return cleanup.Run(ctx) })
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", config.Port)
		log.Info().Str("addr", addr).Str("version", version).Msg("Server listening")
		return server.ListenAndServe(addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
	}
	drafts.CloseAll(context.Background())
	log.Info().Msg("Server stopped")
}

func newThumbnailTargets(config *internal.Config) (upload.ThumbnailTargets, error) {
	if config.Thumbnails.Backend == internal.ThumbnailBackendS3 {
		store, err := storage.NewS3Storage(&config.Thumbnails.S3)
		if err != nil {
			return nil, err
		}
		return storage.NewS3ThumbnailTargets(store), nil
	}
	return bunny.NewStorageTargets(config.Bunny), nil
}
