package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/internal/retry"
	"github.com/anime-shed/ecoscan-go/pkg/models"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the public Open Supply Hub API
const DefaultBaseURL = "https://opensupplyhub.org"

// Client looks up verified manufacturing facilities for a brand
type Client interface {
	// Facilities returns an empty slice when the registry has no data for
	// the brand, including when access is refused.
	Facilities(ctx context.Context, brand string) ([]models.FacilityRecord, error)
}

type ClientOpts struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	PageSize int
	Policy   retry.Policy
}

type openSupplyHubClient struct {
	httpClient *resty.Client
	pageSize   int
	policy     retry.Policy
}

// NewClient creates an Open Supply Hub client. 5xx and transport failures are
// retried with opts.Policy (RegistryPolicy by default).
func NewClient(opts ClientOpts) Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.Policy.Name == "" {
		opts.Policy = retry.RegistryPolicy()
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeaders(map[string]string{
			"Accept":     "application/json",
			"User-Agent": "EcoScan/1.0",
		})
	if opts.Token != "" {
		httpClient.SetAuthScheme("Token").SetAuthToken(opts.Token)
	}

	return &openSupplyHubClient{httpClient: httpClient, pageSize: opts.PageSize, policy: opts.Policy}
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Name        string   `json:"name"`
		Address     string   `json:"address"`
		CountryCode string   `json:"country_code"`
		CountryName string   `json:"country_name"`
		Sector      []string `json:"sector"`
	} `json:"properties"`
}

func (c *openSupplyHubClient) req(ctx context.Context, result any) *resty.Request {
	request := c.httpClient.NewRequest().SetContext(ctx)
	if result != nil {
		request.SetResult(result)
	}
	return request
}

func (c *openSupplyHubClient) Facilities(ctx context.Context, brand string) ([]models.FacilityRecord, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return []models.FacilityRecord{}, nil
	}

	start := time.Now()
	body, err := retry.DoValue(ctx, c.policy, func(ctx context.Context) (*featureCollection, error) {
		result := &featureCollection{}
		_, err := handleError(c.req(ctx, result).
			SetQueryParams(map[string]string{
				"q":        brand,
				"pageSize": strconv.Itoa(c.pageSize),
			}).
			Get("/api/facilities/"))
		return result, err
	})

	fields := logrus.Fields{
		"brand":       brand,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		if noData(err) {
			logger.WithError(err).WithFields(fields).Info("Facility registry has no data for brand")
			return []models.FacilityRecord{}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.WithError(err).WithFields(fields).Warn("Facility registry lookup failed")
		return nil, apperrors.NewRegistryLookupError(fmt.Sprintf("facility lookup for %s failed", brand), err)
	}

	records := toRecords(body.Features)
	fields["facilities"] = len(records)
	logger.WithFields(fields).Debug("Facility registry lookup completed")
	return records, nil
}

// handleError turns >399 responses into StatusErrors, otherwise resty
// reports them with a nil error
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, retry.NewStatusError(res.StatusCode(),
			fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode()))
	}
	return res, nil
}

// noData reports auth and not-found responses, which mean the registry
// cannot tell us anything about the brand
func noData(err error) bool {
	var statusErr *retry.StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	switch statusErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

func toRecords(features []feature) []models.FacilityRecord {
	records := make([]models.FacilityRecord, 0, len(features))
	for _, f := range features {
		p := f.Properties
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		country := p.CountryName
		if country == "" {
			country = p.CountryCode
		}
		rec := models.FacilityRecord{
			Name:    p.Name,
			Address: p.Address,
			Country: country,
			Sector:  p.Sector,
		}
		if rec.Sector == nil {
			rec.Sector = []string{}
		}
		if len(f.Geometry.Coordinates) == 2 {
			rec.Coordinates = [2]float64{f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]}
		}
		records = append(records, rec)
	}
	return records
}
