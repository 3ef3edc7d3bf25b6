package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"talentvault/internal/anonymizer"
	"talentvault/internal/api/handler"
	"talentvault/internal/api/router"
	"talentvault/internal/config"
	"talentvault/internal/digest"
	"talentvault/internal/enrichment"
	"talentvault/internal/evidence"
	"talentvault/internal/intake"
	appCoreLogger "talentvault/internal/logger"
	"talentvault/internal/outbox"
	"talentvault/internal/storage"
	"talentvault/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/spf13/pflag"

	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("loading config: %v", err)
	}

	appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	glog.SetLogger(hertzadapter.From(appCoreLogger.Logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing.OTLPEndpoint, cfg.Tracing.SampleRatio)
	if err != nil {
		glog.Fatalf("initializing tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := shutdownTracing(shutdownCtx); err != nil {
			glog.Warnf("tracing shutdown: %v", err)
		}
	}()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("initializing storage: %v", err)
	}
	defer storageManager.Close()
	glog.Info("storage initialized")

	messageRelay := outbox.NewMessageRelay(storageManager.Postgres.DB(), storageManager.RabbitMQ)
	messageRelay.Start()

	pdfExtractor, err := intake.NewPDFTextExtractor(ctx)
	if err != nil {
		glog.Fatalf("creating PDF extractor: %v", err)
	}

	var enrichmentCache enrichment.ContactCache
	if storageManager.Redis != nil {
		enrichmentCache = storageManager.Redis
	}
	enricher := enrichment.NewApolloClient(
		cfg.Apollo.BaseURL,
		cfg.Apollo.APIKey,
		time.Duration(cfg.Apollo.TimeoutSeconds)*time.Second,
		cfg.Apollo.MaxRetries,
		enrichmentCache,
	)
	if enricher.Enabled() {
		glog.Info("contact enrichment enabled")
	} else {
		glog.Info("contact enrichment disabled (no API key)")
	}

	anon := anonymizer.New()
	extractor := evidence.NewExtractor()

	intakeService := intake.NewService(storageManager, cfg)
	intakeProcessor := intake.NewProcessor(intake.Components{
		Storage:      storageManager,
		PDFExtractor: pdfExtractor,
		Enricher:     enricher,
		Anonymizer:   anon,
		Extractor:    extractor,
	}, intake.SettingsFromConfig(cfg))

	workers := cfg.RabbitMQ.IntakeConsumerWorkers
	if workers <= 0 {
		workers = 4
	}
	stopChans := make([]chan struct{}, 0, workers)
	for i := 0; i < workers; i++ {
		stopCh, err := intakeProcessor.Start()
		if err != nil {
			glog.Fatalf("starting intake consumer: %v", err)
		}
		stopChans = append(stopChans, stopCh)
	}
	glog.Infof("intake consumers started, workers: %d", workers)

	digestBuilder, err := digest.NewBuilder(storageManager, anon, cfg)
	if err != nil {
		glog.Fatalf("initializing digest builder: %v", err)
	}

	intakeHandler := handler.NewIntakeHandler(cfg, storageManager, intakeService)
	candidateHandler := handler.NewCandidateHandler(storageManager, anon, extractor)
	digestHandler := handler.NewDigestHandler(digestBuilder)

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, cfg, intakeHandler, candidateHandler, digestHandler)
	glog.Infof("HTTP server listening on %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("shutting down")

	messageRelay.Stop()
	for _, stopCh := range stopChans {
		close(stopCh)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("server shutdown: %v", err)
	}
	glog.Info("shutdown complete")
}
