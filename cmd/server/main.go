package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/actor"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/api"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/api/routes"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/auth"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/blob"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/config"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/coord"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/dataset"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/db"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/kvstore"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/logs"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/orchestrator"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/qlog"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/queue"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/runtime"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v\n", err)
	}
	cfg.Print(log.Printf)

	logger := qlog.NewDefault()

	database, err := db.New(ctx, db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer database.Close()

	coordStore, err := coord.NewRedisStore(coord.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("failed to initialize coordination store: %v", err)
	}
	defer coordStore.Close()

	blobStore, err := blob.NewS3Store(blob.S3Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		log.Fatalf("failed to initialize blob store: %v", err)
	}
	if err := blobStore.EnsureBucket(ctx); err != nil {
		log.Fatalf("failed to ensure blob bucket: %v", err)
	}

	runtimes, defaultRuntime, err := buildRuntimes(cfg)
	if err != nil {
		log.Fatalf("failed to initialize container runtime: %v", err)
	}

	jwtAuth := auth.NewJWTAuthenticator(cfg.AuthSecret, cfg.BaseURL)
	apiKeyAuth := auth.NewAPIKeyAuthenticator(database)
	compositeAuth := auth.NewCompositeAuthenticator(jwtAuth, apiKeyAuth)

	actors := actor.NewService(database)
	datasets := dataset.NewService(database, blobStore)
	kvstores := kvstore.NewService(database, blobStore)
	queues := queue.NewService(database, coordStore)
	logService := logs.NewService(coordStore)

	orch := orchestrator.NewService(orchestrator.Config{
		DB:                database,
		Coord:             coordStore,
		Runtimes:          runtimes,
		DefaultRuntime:    defaultRuntime,
		Auth:              jwtAuth,
		KeyValueStores:    kvstores,
		Logs:              logService,
		Logger:            logger,
		BaseURL:           cfg.BaseURL,
		MaxConcurrentRuns: cfg.MaxConcurrentRuns,
		StopGracePeriod:   cfg.StopGracePeriod,
		JanitorGrace:      cfg.JanitorGrace,
		RunTokenTTL:       cfg.SessionTokenTTL,
	})

	runCtx, cancel := context.WithCancel(ctx)
	go orch.RunDispatchLoop(runCtx, cfg.DispatchPollEvery)
	go orch.RunJanitor(runCtx, cfg.JanitorInterval)

	apiInstance := api.NewApi()
	apiInstance.Api.UseMiddleware(api.AuthMiddleware(compositeAuth, logger))

	routes.RegisterAll(apiInstance.Api, apiInstance.Router, &routes.Services{
		Actors:         actors,
		Orchestrator:   orch,
		Datasets:       datasets,
		KeyValueStores: kvstores,
		RequestQueues:  queues,
		Logs:           logService,
		Blob:           blobStore,
		Runtimes:       runtimes,
		Auth:           compositeAuth,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{Addr: addr, Handler: apiInstance.Router}

	go func() {
		log.Printf("🚀 server starting on %s\n", addr)
		log.Printf("📚 openapi docs: %s/docs\n", cfg.BaseURL)
		log.Printf("📄 openapi spec: %s/openapi.json\n", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		os.Exit(1)
	}
}

// buildRuntimes constructs every ContainerRuntime backend this process
// can reach, keyed by name, and reports which one CreateRun uses by
// default.
func buildRuntimes(cfg *config.Config) (map[string]runtime.ContainerRuntime, string, error) {
	runtimes := map[string]runtime.ContainerRuntime{
		"local": runtime.NewLocalRuntime(),
	}

	if dockerRt, err := runtime.NewDockerRuntime(); err == nil {
		runtimes[dockerRt.Name()] = dockerRt
	} else {
		log.Printf("docker runtime unavailable: %v", err)
	}

	if cfg.ContainerRuntime == "k8s" {
		k8sRt, err := runtime.NewK8sRuntime(cfg.K8sNamespace)
		if err != nil {
			return nil, "", err
		}
		runtimes[k8sRt.Name()] = k8sRt
	}

	if _, ok := runtimes[cfg.ContainerRuntime]; !ok {
		return nil, "", fmt.Errorf("container runtime %q is not available", cfg.ContainerRuntime)
	}
	return runtimes, cfg.ContainerRuntime, nil
}
