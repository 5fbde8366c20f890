package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tasteboard/backend/internal/artifacts"
	"github.com/tasteboard/backend/internal/auth"
	"github.com/tasteboard/backend/internal/boards"
	"github.com/tasteboard/backend/internal/cache"
	"github.com/tasteboard/backend/internal/config"
	"github.com/tasteboard/backend/internal/database"
	"github.com/tasteboard/backend/internal/images"
	"github.com/tasteboard/backend/internal/llm"
	"github.com/tasteboard/backend/internal/logging"
	"github.com/tasteboard/backend/internal/server"
	"github.com/tasteboard/backend/internal/tasks"
	"github.com/tasteboard/backend/internal/users"
	"github.com/tasteboard/backend/internal/youtube"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tasteboard-api",
		Short: "Tasteboard backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (postgres, sqlite)")
	cmd.PersistentFlags().String("database-dsn", defaults.GetString("database.dsn"), "Database DSN")
	cmd.PersistentFlags().String("redis-address", defaults.GetString("redis.address"), "Redis address")
	cmd.PersistentFlags().Int("worker-concurrency", defaults.GetInt("worker.concurrency"), "Queue worker concurrency")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Backend signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "worker.concurrency", "worker-concurrency")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if appConfig.StorageBucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(appConfig.DatabaseDriver, appConfig.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	redisClient, err := cache.Connect(ctx, appConfig.RedisAddress, appConfig.RedisPassword)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	cacheStore := cache.NewRedisStore(redisClient)

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret:   []byte(appConfig.SigningSecret),
		Issuer:          "tasteboard-auth",
		Audience:        "tasteboard-api",
		AccessTokenTTL:  appConfig.AccessTokenTTL,
		RefreshTokenTTL: appConfig.RefreshTokenTTL,
	})

	accountService, err := users.NewService(users.ServiceConfig{
		Database: db,
		Tokens:   tokenManager,
		Sessions: cacheStore,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	var googleConnector server.GoogleConnector
	if appConfig.GoogleClientID != "" && appConfig.GoogleClientSecret != "" {
		googleOAuth, err := auth.NewGoogleOAuth(auth.GoogleOAuthConfig{
			ClientID:     appConfig.GoogleClientID,
			ClientSecret: appConfig.GoogleClientSecret,
			RedirectURL:  appConfig.OAuthCallbackURL,
		})
		if err != nil {
			return err
		}
		googleConnector = googleOAuth
	}

	videoClient := youtube.NewClient(youtube.ClientConfig{APIKey: appConfig.YouTubeAPIKey})
	videoCache := youtube.NewVideoCache(cacheStore, cache.DefaultTTL)
	fetcher, err := youtube.NewFetcher(youtube.FetcherConfig{
		API:    videoClient,
		Cache:  videoCache,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	completer := llm.NewOpenAIClient(appConfig.OpenAIAPIKey)
	categorizer, err := llm.NewCategorizer(llm.CategorizerConfig{
		Completer: completer,
		Model:     appConfig.OpenAIChatModel,
	})
	if err != nil {
		return err
	}
	comparator, err := llm.NewComparator(llm.ComparatorConfig{
		Completer: completer,
		Model:     appConfig.OpenAICompareModel,
	})
	if err != nil {
		return err
	}

	synthesizer, err := images.NewSynthesizer(images.SynthesizerConfig{
		API:   images.NewOpenAIImageClient(appConfig.OpenAIAPIKey),
		Model: appConfig.OpenAIImageModel,
	})
	if err != nil {
		return err
	}

	objectStorage, err := artifacts.NewGCSStorage(ctx, appConfig.StorageBucket, appConfig.StorageCredsFile)
	if err != nil {
		return err
	}
	defer objectStorage.Close()

	artifactStore, err := artifacts.NewStore(artifacts.StoreConfig{
		Storage: objectStorage,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	boardService, err := boards.NewService(boards.ServiceConfig{
		Database:   db,
		IDProvider: boards.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	orchestrator, err := boards.NewOrchestrator(boards.OrchestratorConfig{
		Boards:      boardService,
		Source:      fetcher,
		Index:       videoCache,
		Classifier:  categorizer,
		Synthesizer: synthesizer,
		Artifacts:   artifactStore,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	dispatcher, err := tasks.NewQueueDispatcher(appConfig.RedisAddress, appConfig.RedisPassword)
	if err != nil {
		return err
	}
	defer dispatcher.Close()

	worker, err := tasks.NewWorker(tasks.WorkerConfig{
		RedisAddress:  appConfig.RedisAddress,
		RedisPassword: appConfig.RedisPassword,
		Concurrency:   appConfig.WorkerConcurrency,
		Generator:     orchestrator,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Accounts:      accountService,
		TokenManager:  tokenManager,
		Google:        googleConnector,
		Subscriptions: videoClient,
		Boards:        boardService,
		Regenerator:   orchestrator,
		Comparator:    comparator,
		Dispatcher:    dispatcher,
		Cache:         cacheStore,
		ShareBaseURL:  appConfig.FrontendBoardURL,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("worker starting", zap.Int("concurrency", appConfig.WorkerConcurrency))
		if err := worker.Run(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-signalCtx.Done():
		worker.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		worker.Shutdown()
		return err
	}
}
