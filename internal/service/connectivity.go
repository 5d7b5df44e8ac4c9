package service

import (
	"context"
	"time"

	"github.com/anime-shed/ecoscan-go/internal/logger"

	"github.com/go-resty/resty/v2"
)

// Connectivity is sampled once at pipeline entry
type Connectivity interface {
	Online(ctx context.Context) bool
}

// StaticConnectivity always reports the same answer; used for FORCE_OFFLINE
// and in tests.
type StaticConnectivity bool

func (s StaticConnectivity) Online(context.Context) bool { return bool(s) }

const probeTimeout = 2 * time.Second

// ProbeConnectivity treats any HTTP response from the probe URL as online.
// Only transport failures count as offline.
type ProbeConnectivity struct {
	client *resty.Client
	url    string
}

func NewProbeConnectivity(url string) *ProbeConnectivity {
	return &ProbeConnectivity{
		client: resty.New().SetTimeout(probeTimeout),
		url:    url,
	}
}

func (p *ProbeConnectivity) Online(ctx context.Context) bool {
	resp, err := p.client.R().SetContext(ctx).Head(p.url)
	if err != nil {
		logger.WithError(err).WithField("probe_url", p.url).Debug("Connectivity probe failed")
		return false
	}
	return resp.StatusCode() > 0
}
