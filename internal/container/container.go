package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/anime-shed/ecoscan-go/internal/cloud"
	"github.com/anime-shed/ecoscan-go/internal/config"
	"github.com/anime-shed/ecoscan-go/internal/fusion"
	"github.com/anime-shed/ecoscan-go/internal/imaging"
	"github.com/anime-shed/ecoscan-go/internal/inference"
	"github.com/anime-shed/ecoscan-go/internal/inference/tesseract"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/internal/observer"
	"github.com/anime-shed/ecoscan-go/internal/registry"
	"github.com/anime-shed/ecoscan-go/internal/repository"
	"github.com/anime-shed/ecoscan-go/internal/service"
	"github.com/anime-shed/ecoscan-go/internal/storage"
	"github.com/anime-shed/ecoscan-go/internal/transport"
	"github.com/anime-shed/ecoscan-go/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config       *config.Config
	history      repository.HistoryRepository
	models       *inference.ModelCache
	fetcher      storage.ImageFetcher
	metrics      *observer.MetricsObserver
	events       *observer.EventPublisher
	connectivity service.Connectivity
	scans        service.ScanService
	closers      []io.Closer

	handler http.Handler
}

// NewContainer builds the dependency graph. Optional capabilities (cloud,
// OCR, classifier, export) are left out with a warning when unavailable.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	history, err := repository.NewSQLiteHistoryRepository(cfg.HistoryDBPath, cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	c := &Container{
		config:  cfg,
		history: history,
		models:  inference.NewModelCache(inference.NewDNNLoader(cfg.ClassifierModelPath, cfg.ClassifierLabelsPath)),
		metrics: observer.NewMetricsObserver(),
		events:  observer.NewEventPublisher(),
	}
	c.closers = append(c.closers, history, c.models)

	c.events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	c.events.Subscribe(c.metrics)

	fetchOpts := storage.DefaultFetcherOptions()
	fetchOpts.Timeout = cfg.ImageFetchTimeout
	fetchOpts.MaxBytes = cfg.MaxRequestBodySize
	c.fetcher = storage.NewHTTPImageFetcher(fetchOpts)

	var text inference.TextExtractor
	if ocr, err := tesseract.New(cfg.OCRLanguage); err != nil {
		logger.WithError(err).Warn("OCR engine unavailable, scans will run without label text")
	} else {
		text = ocr
		c.closers = append(c.closers, ocr)
	}

	var cloudService cloud.Service
	if cfg.CloudEnabled() {
		gc, err := cloud.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.WithError(err).Warn("Cloud reasoning unavailable, every scan will use the local heuristic")
		} else {
			cloudService = gc
		}
	} else {
		logger.Info("GEMINI_API_KEY not set, every scan will use the local heuristic")
	}

	var exporter storage.HistoryExporter
	if cfg.ExportEnabled() {
		exporter, err = storage.NewAzureHistoryExporter(cfg.AzureStorageAccount, cfg.AzureStorageKey, cfg.AzureHistoryContainer)
		if err != nil {
			logger.WithError(err).Warn("History export unavailable")
			exporter = nil
		}
	}

	registryClient := registry.NewClient(registry.ClientOpts{
		BaseURL: cfg.RegistryBaseURL,
		Token:   cfg.RegistryAPIToken,
	})
	engine := fusion.NewEngine(cloudService, registryClient, c.events)
	engine.SetCloudTimeout(cfg.CloudTimeout)

	if cfg.ForceOffline {
		c.connectivity = service.StaticConnectivity(false)
	} else {
		c.connectivity = service.NewProbeConnectivity(cfg.ConnectivityProbeURL)
	}

	c.scans = service.NewScanService(service.Deps{
		Processor: imaging.NewProcessor(imaging.DefaultOptions().WithLimits(cfg.MaxDimension, cfg.BrightnessThreshold, cfg.JPEGQuality)),
		Stage:     inference.NewStage(c.models, text),
		Engine:    engine,
		History:   history,
		Cloud:     cloudService,
		Exporter:  exporter,
		Events:    c.events,
	})

	c.handler = transport.NewHandler(transport.Deps{
		Scans:        c.scans,
		Fetcher:      c.fetcher,
		Validator:    validation.NewURLValidator(),
		Connectivity: c.connectivity,
		Metrics:      c.metrics,
	}, cfg)

	return c, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Scans() service.ScanService {
	return c.scans
}

func (c *Container) Fetcher() storage.ImageFetcher {
	return c.fetcher
}

func (c *Container) Connectivity() service.Connectivity {
	return c.connectivity
}

// Close waits for pending events and releases engines and the database
func (c *Container) Close() error {
	c.events.Wait()
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
