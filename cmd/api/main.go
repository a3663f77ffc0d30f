package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MaksimIschenko/giga-gen-project/internal/generate"
	"github.com/MaksimIschenko/giga-gen-project/internal/history"
	"github.com/MaksimIschenko/giga-gen-project/internal/http/handlers"
	"github.com/MaksimIschenko/giga-gen-project/internal/http/httpapi"
	"github.com/MaksimIschenko/giga-gen-project/internal/infra"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/auth"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/fusionbrain"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/gigachat"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/meshy"
	"github.com/MaksimIschenko/giga-gen-project/internal/storage"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	svcOpts := generate.Options{Config: cfg, Logger: &logger}

	// Providers are optional: a missing credential disables its routes
	// instead of failing startup.
	if cfg.GigaChatAuthKey != "" {
		oauth, err := auth.NewOAuth(auth.OAuthOptions{
			TokenURL:       cfg.GigaChatTokenURL,
			AuthKey:        cfg.GigaChatAuthKey,
			Scope:          cfg.GigaChatScope,
			Logger:         &logger,
			RequestTimeout: cfg.ProviderCallTimeout,
			InsecureTLS:    !cfg.GigaChatVerifySSL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("gigachat auth init failed")
		}
		fast, err := gigachat.NewClient(gigachat.Options{
			BaseURL:        cfg.GigaChatBaseURL,
			Model:          cfg.GigaChatModel,
			Auth:           oauth,
			Logger:         &logger,
			RequestTimeout: cfg.ProviderCallTimeout,
			InsecureTLS:    !cfg.GigaChatVerifySSL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("gigachat client init failed")
		}
		svcOpts.Fast = fast
	} else {
		logger.Warn().Msg("GIGACHAT_AUTH_KEY is empty, gigachat generation disabled")
	}

	if cfg.FBAPIKey != "" {
		keys, err := auth.NewKeyPair(cfg.FBAPIKey, cfg.FBAPISecret)
		if err != nil {
			logger.Fatal().Err(err).Msg("fusionbrain auth init failed")
		}
		async, err := fusionbrain.NewClient(fusionbrain.Options{
			BaseURL:        cfg.FBBaseURL,
			Auth:           keys,
			Logger:         &logger,
			RequestTimeout: cfg.ProviderCallTimeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("fusionbrain client init failed")
		}
		svcOpts.Async = async
	} else {
		logger.Warn().Msg("FB_API_KEY is empty, kandinsky generation disabled")
	}

	if cfg.MeshyAPIKey != "" {
		token, err := auth.NewStaticToken(cfg.MeshyAPIKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("meshy auth init failed")
		}
		mesh, err := meshy.NewClient(meshy.Options{
			BaseURL:        cfg.MeshyBaseURL,
			Auth:           token,
			Logger:         &logger,
			RequestTimeout: cfg.ProviderCallTimeout,
			PollInterval:   cfg.MeshyPollInterval,
			PreviewBudget:  cfg.MeshyPreviewBudget,
			RefineBudget:   cfg.MeshyRefineBudget,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("meshy client init failed")
		}
		svcOpts.Mesh = mesh
	}

	store, err := storage.NewStore(cfg.ImagesOutDir, cfg.ModelsOutDir, cfg.PublicBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("artifact store init failed")
	}
	svcOpts.Store = store

	// History needs a database; without one the endpoint reports 503.
	hist := history.NewRecorder(nil)
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		hist = history.NewRecorder(infra.NewSQLRunner(pool, logger))
		if err := hist.Init(ctx); err != nil {
			logger.Fatal().Err(err).Msg("history schema init failed")
		}
	} else {
		logger.Warn().Msg("DATABASE_URL is empty, generation history disabled")
	}
	svcOpts.History = hist

	svc, err := generate.NewService(svcOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("service wiring failed")
	}

	app := handlers.NewApp(cfg, &logger, svc, hist)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
