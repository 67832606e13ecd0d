package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mockmate/mockmate/internal/ai"
	"github.com/mockmate/mockmate/internal/ai/gemini"
	"github.com/mockmate/mockmate/internal/httpapi"
	"github.com/mockmate/mockmate/internal/logger"
	"github.com/mockmate/mockmate/internal/pipeline"
	"github.com/mockmate/mockmate/internal/secrets"
	"github.com/mockmate/mockmate/internal/specialist"
	"github.com/mockmate/mockmate/internal/storage"
	"github.com/mockmate/mockmate/internal/stream"
)

const (
	defaultListenAddr = ":8000"
	defaultDataDir    = "data"
	shutdownTimeout   = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mockmate HTTP API server",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address (default is :8000)")

	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zl.Fatal("getting a config", zap.Error(err))
	}

	zl.Info("starting the mockmate server", zap.String("version", version))

	pretty, _ := json.MarshalIndent(config, "", "  ")
	zl.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	deps, err := buildDeps(ctx, config, zl)
	if err != nil {
		zl.Fatal("wiring the service", zap.Error(err))
	}
	if deps.Store != nil {
		defer deps.Store.Close()
	}

	addr := defaultListenAddr
	if config.Server != nil && config.Server.Address != "" {
		addr = config.Server.Address
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewHandler(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		zl.Info("listening", zap.String("address", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		zl.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		zl.Fatal("server failed", zap.Error(err))
	}

	zl.Info("exiting", zap.String("reason", "shutdown complete"))
}

// buildDeps wires every collaborator of the HTTP layer from the configuration.
// A missing API key does not fail the wiring: the pipelines run against an
// unconfigured backend and serve their fallback content, and the health
// endpoint reports the gap.
func buildDeps(ctx context.Context, config *Config, zl *zap.Logger) (httpapi.Deps, error) {
	registry, err := specialist.NewRegistry()
	if err != nil {
		return httpapi.Deps{}, fmt.Errorf("building specialist registry: %w", err)
	}

	backend, model, configured, err := buildBackend(ctx, config.AI)
	if err != nil {
		return httpapi.Deps{}, err
	}
	if !configured {
		zl.Warn("model backend is not configured, answers will be degraded",
			zap.String("hint", "set ai.gemini.api-key-file or GEMINI_API_KEY_FILE"))
	}

	catalog, err := pipeline.CatalogFromConfig(config.Frameworks)
	if err != nil {
		return httpapi.Deps{}, err
	}

	pipelineLogger := logger.WithCommonFields(zl, "gemini", model)
	interview := pipeline.NewInterview(registry, backend, pipelineLogger)
	caseStudy := pipeline.NewCaseStudy(backend, catalog, pipelineLogger)

	var store *storage.Store
	if config.Storage == nil || !config.Storage.Disabled {
		dataDir := defaultDataDir
		if config.Storage != nil && config.Storage.DataDir != "" {
			dataDir = config.Storage.DataDir
		}
		store, err = storage.Open(dataDir)
		if err != nil {
			return httpapi.Deps{}, fmt.Errorf("opening tracking store: %w", err)
		}
		zl.Info("tracking store opened", zap.String("data_dir", dataDir))
	}

	return httpapi.Deps{
		Interview:       interview,
		CaseStudy:       caseStudy,
		Emitter:         stream.NewEmitter(interview, zl),
		Registry:        registry,
		Store:           store,
		Logger:          zl,
		ModelConfigured: configured,
	}, nil
}

// buildBackend resolves the Gemini API key and constructs the model client. A
// nil typed client is returned when no key is configured; its calls fail fast
// and every pipeline stage falls back.
func buildBackend(ctx context.Context, config *AIConfig) (ai.Generator, string, bool, error) {
	var (
		provider string
		gcfg     GeminiConfig
	)
	if config != nil {
		provider = strings.TrimSpace(strings.ToLower(config.Provider))
		if config.Gemini != nil {
			gcfg = *config.Gemini
		}
	}
	if provider != "" && provider != "gemini" {
		return nil, "", false, fmt.Errorf("unsupported ai provider: %s", provider)
	}

	if file := viper.GetString("ai.gemini.api-key-file"); gcfg.APIKeyFile == "" && file != "" {
		gcfg.APIKeyFile = file
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gcfg.APIKey,
		File:  gcfg.APIKeyFile,
	})
	if err != nil {
		return (*gemini.Generator)(nil), gcfg.Model, false, nil
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model)
	if err != nil {
		return nil, "", false, err
	}

	return generator, generator.Model(), true, nil
}
