package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anime-shed/ecoscan-go/internal/capture"
	"github.com/anime-shed/ecoscan-go/internal/config"
	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/internal/observer"
	"github.com/anime-shed/ecoscan-go/internal/service"
	"github.com/anime-shed/ecoscan-go/internal/storage"
	"github.com/anime-shed/ecoscan-go/pkg/models"
	"github.com/anime-shed/ecoscan-go/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps are what the HTTP layer needs from the container
type Deps struct {
	Scans        service.ScanService
	Fetcher      storage.ImageFetcher
	Validator    *validation.URLValidator
	Connectivity service.Connectivity
	Metrics      *observer.MetricsObserver
}

func NewHandler(deps Deps, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.POST("/scan", scan(deps, cfg))
	r.GET("/history", listHistory(deps.Scans))
	r.DELETE("/history", clearHistory(deps.Scans))
	r.POST("/recycling-centers", recyclingCenters(deps.Scans, cfg))
	r.GET("/metrics", metrics(deps.Metrics))

	return r
}

func scan(deps Deps, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.AnalysisTimeout)
		defer cancel()

		source, offline, err := sourceFromRequest(c, deps)
		if err != nil {
			respondError(c, "invalid scan request", err)
			return
		}

		online := !offline && !cfg.ForceOffline && deps.Connectivity.Online(ctx)
		resp, err := deps.Scans.Scan(ctx, source, service.ScanOptions{Online: online})
		if err != nil {
			respondError(c, "scan failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"history_id":         resp.HistoryID,
			"online":             online,
			"score":              resp.Result.OverallScore,
			"source":             resp.Result.Source,
			"degraded":           resp.Result.Degraded,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Scan completed")

		c.JSON(http.StatusOK, resp)
	}
}

// sourceFromRequest accepts a multipart "image" upload or a JSON body with a URL
func sourceFromRequest(c *gin.Context, deps Deps) (capture.Source, bool, error) {
	offline, _ := strconv.ParseBool(c.Query("offline"))

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("image")
		if err != nil {
			return nil, false, apperrors.NewValidationError("multipart field \"image\" is required", err)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, false, apperrors.NewInvalidImageError("cannot open uploaded image", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, false, apperrors.NewInvalidImageError("cannot read uploaded image", err)
		}
		return capture.NewBytesSource(data, fh.Filename), offline, nil
	}

	var req models.ScanURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, false, apperrors.NewValidationError("expected a multipart image or a JSON body with a url", err)
	}
	return capture.NewURLSource(req.URL, deps.Fetcher, deps.Validator), offline || req.Offline, nil
}

func listHistory(scans service.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				respondError(c, "invalid limit", apperrors.NewValidationError("limit must be a non-negative integer", err))
				return
			}
			limit = n
		}

		items, err := scans.History(c.Request.Context(), limit)
		if err != nil {
			respondError(c, "failed to read history", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func clearHistory(scans service.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := scans.ClearHistory(c.Request.Context()); err != nil {
			respondError(c, "failed to clear history", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func recyclingCenters(scans service.ScanService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.RecyclingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "invalid request format", apperrors.NewValidationError("lat and lng are required", err))
			return
		}

		resp, err := scans.FindRecyclingCenters(ctx, *req.Latitude, *req.Longitude)
		if err != nil {
			respondError(c, "recycling lookup failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func metrics(m *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, m.GetMetrics())
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, "request processing failed", c.Errors.Last().Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, message string, err error) {
	code := determineStatusCode(err)

	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message + ": " + err.Error(),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Type = string(appErr.Type)
		// nothing was analyzed or recorded, so a fresh capture can always be tried
		resp.Retryable = appErr.Retryable || apperrors.IsPreAnalysis(err)
	} else {
		resp.Retryable = code >= http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(code, resp)
}
