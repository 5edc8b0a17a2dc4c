package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Carlo1911/fbc-bot/internal/bot"
	"github.com/Carlo1911/fbc-bot/internal/catalog"
	"github.com/Carlo1911/fbc-bot/internal/config"
	"github.com/Carlo1911/fbc-bot/internal/database"
	"github.com/Carlo1911/fbc-bot/internal/logging"
	"github.com/Carlo1911/fbc-bot/internal/messenger"
	"github.com/Carlo1911/fbc-bot/internal/musixmatch"
	"github.com/Carlo1911/fbc-bot/internal/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fbc-bot",
		Short: "Messenger song-favorites webhook relay",
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
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("graph-url", defaults.GetString("messenger.graph_url"), "Messenger Graph API base URL")
	cmd.PersistentFlags().String("musixmatch-url", defaults.GetString("musixmatch.base_url"), "Musixmatch API base URL")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "messenger.graph_url", "graph-url")
	bindFlag(cmd, "musixmatch.base_url", "musixmatch-url")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	// .env keeps local token handling out of shell profiles; absence is fine.
	_ = godotenv.Load()

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

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	store, err := catalog.NewStore(catalog.StoreConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	metadataClient, err := musixmatch.NewClient(musixmatch.ClientConfig{
		APIKey:  appConfig.MusixmatchKey,
		BaseURL: appConfig.MusixmatchBase,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	messengerClient, err := messenger.NewClient(messenger.ClientConfig{
		AccessToken: appConfig.AccessToken,
		GraphURL:    appConfig.GraphURL,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	responder, err := bot.NewResponder(bot.ResponderConfig{
		Store:     store,
		Metadata:  metadataClient,
		Messenger: messengerClient,
		Clock:     time.Now,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		VerifyToken: appConfig.VerifyToken,
		AppSecret:   appConfig.AppSecret,
		Events:      responder,
		Logger:      logger,
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

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
