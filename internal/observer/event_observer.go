package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineEvent is published on every scan pipeline transition
type PipelineEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	ScanID         string                 `json:"scan_id"`
	State          string                 `json:"state,omitempty"`
	PreviousState  string                 `json:"previous_state,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	// ScanStarted when a capture has been accepted
	ScanStarted EventType = "scan_started"
	// StateChanged when the fusion engine moves between states
	StateChanged EventType = "state_changed"
	// ScanCompleted when a result has been produced
	ScanCompleted EventType = "scan_completed"
	// ScanFailed when the pipeline aborts before analysis
	ScanFailed EventType = "scan_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event PipelineEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PipelineEvent)
}

// LoggingObserver logs pipeline events
type LoggingObserver struct {
	logger *logrus.Logger
}

func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{logger: logger}
}

func (o *LoggingObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"scan_id":         event.ScanID,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.State != "" {
		fields["state"] = event.State
	}
	if event.PreviousState != "" {
		fields["previous_state"] = event.PreviousState
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case ScanStarted:
		entry.Info("Scan started")
	case StateChanged:
		entry.Debug("Pipeline state changed")
	case ScanCompleted:
		entry.Info("Scan completed")
	case ScanFailed:
		entry.Warn("Scan failed")
	default:
		entry.Info("Pipeline event occurred")
	}
}

func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver aggregates counters from pipeline events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalScans          int64
	completedScans      int64
	failedScans         int64
	cloudAttempts       int64
	cloudFallbacks      int64
	localResults        int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver returns the concrete type so callers can read GetMetrics
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

func (o *MetricsObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case ScanStarted:
		o.totalScans++
	case ScanCompleted:
		o.completedScans++
		o.totalProcessingTime += event.ProcessingTime
	case ScanFailed:
		o.failedScans++
	case StateChanged:
		switch event.State {
		case "CLOUD_ATTEMPT":
			o.cloudAttempts++
		case "RECOVERED":
			o.cloudFallbacks++
		case "LOCAL_HEURISTIC":
			o.localResults++
		}
	}
}

func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns a snapshot of the counters
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.completedScans > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.completedScans)
	}

	return map[string]interface{}{
		"total_scans":           o.totalScans,
		"completed_scans":       o.completedScans,
		"failed_scans":          o.failedScans,
		"cloud_attempts":        o.cloudAttempts,
		"cloud_fallbacks":       o.cloudFallbacks,
		"local_results":         o.localResults,
		"avg_processing_time":   avgProcessingTime.String(),
		"total_processing_time": o.totalProcessingTime.String(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	wg        sync.WaitGroup
}

func NewEventPublisher() *EventPublisher {
	return &EventPublisher{observers: make([]Observer, 0)}
}

func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers the event to every observer concurrently. A
// panicking observer is logged and does not affect the others.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event PipelineEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.wg.Add(1)
		go func(obs Observer) {
			defer p.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(context.WithoutCancel(ctx), event)
		}(observer)
	}
}

// Wait blocks until every notification sent so far has been handled
func (p *EventPublisher) Wait() {
	p.wg.Wait()
}
