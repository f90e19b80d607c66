package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cineprompt/cineprompt/internal/assist"
	"github.com/cineprompt/cineprompt/internal/config"
	"github.com/cineprompt/cineprompt/internal/database"
	"github.com/cineprompt/cineprompt/internal/logging"
	"github.com/cineprompt/cineprompt/internal/project"
	"github.com/cineprompt/cineprompt/internal/server"
	"github.com/cineprompt/cineprompt/internal/speech"
	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

func main() {
	// Local development keeps provider keys in a .env file; absence is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "cineprompt-api",
		Short: "CinePrompt screenwriting assistant API",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newMigrateCommand())

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
	cmd.PersistentFlags().String("audio-dir", defaults.GetString("audio.dir"), "Directory for generated audio files")
	cmd.PersistentFlags().String("audio-base-url", defaults.GetString("audio.base_url"), "Public base URL for audio links")
	cmd.PersistentFlags().String("narakeet-base-url", defaults.GetString("narakeet.base_url"), "Narakeet API base URL")
	cmd.PersistentFlags().String("openai-model", defaults.GetString("openai.model"), "Chat completion model")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "audio.dir", "audio-dir")
	bindFlag(cmd, "audio.base_url", "audio-base-url")
	bindFlag(cmd, "narakeet.base_url", "narakeet-base-url")
	bindFlag(cmd, "openai.model", "openai-model")
	bindFlag(cmd, "log.level", "log-level")
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

func newMigrateCommand() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(reset)
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Drop every table and recreate the schema (destroys all data)")
	return cmd
}

func runMigrate(reset bool) error {
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

	if reset {
		return database.Reset(db, logger)
	}
	logger.Info("migrations up to date", zap.String("path", appConfig.DatabasePath))
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

	projectService, err := project.NewService(project.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if err := projectService.CreateDefaultIfEmpty(ctx); err != nil {
		return err
	}

	var speechService *speech.Service
	if appConfig.NarakeetAPIKey != "" {
		speechService, err = speech.NewService(speech.ServiceConfig{
			APIKey:        appConfig.NarakeetAPIKey,
			BaseURL:       appConfig.NarakeetBaseURL,
			AudioDir:      appConfig.AudioDir,
			PublicBaseURL: appConfig.AudioBaseURL,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
	} else {
		logger.Warn("narakeet api key not configured; text-to-speech disabled")
	}

	var assistService *assist.Service
	if appConfig.OpenAIAPIKey != "" {
		client := openai.NewClient(option.WithAPIKey(appConfig.OpenAIAPIKey))
		assistService, err = assist.NewService(assist.ServiceConfig{
			Completions: &client.Chat.Completions,
			Model:       appConfig.OpenAIModel,
			Logger:      logger,
		})
		if err != nil {
			return err
		}
	} else {
		logger.Warn("openai api key not configured; generation disabled")
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Projects: projectService,
		Speech:   speechService,
		Assist:   assistService,
		AudioDir: appConfig.AudioDir,
		Logger:   logger,
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
