package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/anime-shed/ecoscan-go/internal/capture"
	"github.com/anime-shed/ecoscan-go/internal/cloud"
	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/internal/fusion"
	"github.com/anime-shed/ecoscan-go/internal/imaging"
	"github.com/anime-shed/ecoscan-go/internal/inference"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/internal/observer"
	"github.com/anime-shed/ecoscan-go/internal/repository"
	"github.com/anime-shed/ecoscan-go/internal/storage"
	"github.com/anime-shed/ecoscan-go/pkg/models"
	"github.com/anime-shed/ecoscan-go/pkg/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrPipelineBusy is returned when a scan is requested while another is running
var ErrPipelineBusy = apperrors.NewBusyError("a scan is already in progress")

const historyTimeout = 5 * time.Second

// ScanOptions are sampled once when a scan starts
type ScanOptions struct {
	Online bool
}

// ScanService runs the capture-to-result pipeline and owns the history log
type ScanService interface {
	Scan(ctx context.Context, source capture.Source, opts ScanOptions) (*models.ScanResponse, error)
	History(ctx context.Context, limit int) ([]models.HistoryItem, error)
	ClearHistory(ctx context.Context) error
	ExportHistory(ctx context.Context) (string, error)
	FindRecyclingCenters(ctx context.Context, lat, lng float64) (*models.RecyclingResponse, error)
}

// Deps are the collaborators of a scan service. Cloud, Exporter and Events
// may be nil.
type Deps struct {
	Processor imaging.Processor
	Stage     *inference.Stage
	Engine    *fusion.Engine
	History   repository.HistoryRepository
	Cloud     cloud.Service
	Exporter  storage.HistoryExporter
	Events    observer.Subject
}

type scanService struct {
	deps Deps
	busy atomic.Bool
	now  func() time.Time
}

// NewScanService creates a new scan service
func NewScanService(deps Deps) ScanService {
	return &scanService{deps: deps, now: time.Now}
}

func (s *scanService) Scan(ctx context.Context, source capture.Source, opts ScanOptions) (*models.ScanResponse, error) {
	defer func() {
		if err := source.Close(); err != nil {
			logger.WithError(err).Warn("Failed to release capture source")
		}
	}()

	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrPipelineBusy
	}
	defer s.busy.Store(false)

	scanID := uuid.NewString()
	start := s.now()
	s.publish(ctx, observer.PipelineEvent{EventType: observer.ScanStarted, ScanID: scanID, Success: true,
		Metadata: map[string]interface{}{"online": opts.Online}})

	resp, err := s.run(ctx, scanID, source, opts)
	if err != nil {
		s.publish(ctx, observer.PipelineEvent{
			EventType:      observer.ScanFailed,
			ScanID:         scanID,
			ProcessingTime: s.now().Sub(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	s.publish(ctx, observer.PipelineEvent{
		EventType:      observer.ScanCompleted,
		ScanID:         scanID,
		ProcessingTime: s.now().Sub(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"score":    resp.Result.OverallScore,
			"degraded": resp.Result.Degraded,
		},
	})
	return resp, nil
}

func (s *scanService) run(ctx context.Context, scanID string, source capture.Source, opts ScanOptions) (*models.ScanResponse, error) {
	frame, err := source.Capture(ctx)
	if err != nil {
		return nil, err
	}

	img, err := s.deps.Processor.Process(ctx, frame)
	if err != nil {
		return nil, err
	}

	// past local inference only cancellation aborts; a spent deadline still
	// resolves to a result
	signal := s.deps.Stage.Run(ctx, img)
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, ctx.Err()
	}

	outcome, err := s.deps.Engine.Run(ctx, fusion.Request{
		ScanID: scanID,
		Image:  img,
		Signal: signal,
		Online: opts.Online,
	})
	if err != nil {
		return nil, err
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, ctx.Err()
	}

	resp := &models.ScanResponse{
		Result:    outcome.Result,
		Thumbnail: img.DataURI,
		Enhanced:  img.Enhanced,
		Online:    opts.Online,
	}

	item := models.HistoryItem{
		ID:        scanID,
		Timestamp: s.now(),
		Result:    *outcome.Result,
		Thumbnail: img.DataURI,
	}
	histCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if err := s.deps.History.Append(histCtx, item); err != nil {
		logger.WithFields(logrus.Fields{"scan_id": scanID, "error": err}).Error("Failed to record scan history")
	} else {
		resp.HistoryID = scanID
	}
	return resp, nil
}

func (s *scanService) publish(ctx context.Context, event observer.PipelineEvent) {
	if s.deps.Events != nil {
		s.deps.Events.NotifyObservers(ctx, event)
	}
}

func (s *scanService) History(ctx context.Context, limit int) ([]models.HistoryItem, error) {
	return s.deps.History.List(ctx, limit)
}

func (s *scanService) ClearHistory(ctx context.Context) error {
	return s.deps.History.Clear(ctx)
}

// ExportHistory uploads the full log and returns the blob name
func (s *scanService) ExportHistory(ctx context.Context) (string, error) {
	if s.deps.Exporter == nil {
		return "", apperrors.NewValidationError("history export is not configured", nil)
	}
	items, err := s.deps.History.List(ctx, 0)
	if err != nil {
		return "", err
	}
	return s.deps.Exporter.Export(ctx, items)
}

func (s *scanService) FindRecyclingCenters(ctx context.Context, lat, lng float64) (*models.RecyclingResponse, error) {
	if err := validation.ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if s.deps.Cloud == nil {
		return nil, apperrors.NewCloudServiceError("cloud service is not configured", nil)
	}

	centers, links, err := s.deps.Cloud.FindRecyclingCenters(ctx, lat, lng)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, apperrors.NewCloudServiceError("recycling lookup failed", err)
	}
	if centers == nil {
		centers = []models.RecyclingCenter{}
	}
	if links == nil {
		links = []models.GroundingLink{}
	}
	return &models.RecyclingResponse{Centers: centers, Links: links}, nil
}
