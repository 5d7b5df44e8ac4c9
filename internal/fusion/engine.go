package fusion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anime-shed/ecoscan-go/internal/cloud"
	"github.com/anime-shed/ecoscan-go/internal/impact"
	"github.com/anime-shed/ecoscan-go/internal/knowledge"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/internal/observer"
	"github.com/anime-shed/ecoscan-go/internal/registry"
	"github.com/anime-shed/ecoscan-go/internal/strategy"
	"github.com/anime-shed/ecoscan-go/pkg/models"
)

// State is a step of the fusion state machine
type State string

const (
	StateIdle               State = "IDLE"
	StateLocalInferenceDone State = "LOCAL_INFERENCE_DONE"
	StateCloudAttempt       State = "CLOUD_ATTEMPT"
	StateFailed             State = "FAILED"
	StateRecovered          State = "RECOVERED"
	StateLocalHeuristic     State = "LOCAL_HEURISTIC"
	StatePostProcessing     State = "POST_PROCESSING"
	StateComplete           State = "COMPLETE"
)

// Request is one fusion run. Online is the connectivity signal sampled at
// pipeline entry; it does not change for the rest of the run.
type Request struct {
	ScanID string
	Image  *models.ProcessedImage
	Signal models.LocalSignal
	Online bool
}

// Outcome is the result plus the path taken to reach it
type Outcome struct {
	Result     *models.AnalysisResult
	States     []State
	CloudError error
}

// Engine converges the cloud and local branches on one complete result
type Engine struct {
	cloud    strategy.AnalysisStrategy
	local    strategy.AnalysisStrategy
	registry registry.Client
	events   observer.Subject

	cloudTimeout time.Duration
}

// finishBudget is reserved for the local heuristic and post-processing
const finishBudget = 5 * time.Second

// NewEngine accepts nil for the cloud service (always local), the registry
// (supply chain stays estimated) and the event subject.
func NewEngine(cloudService cloud.Service, registryClient registry.Client, events observer.Subject) *Engine {
	e := &Engine{
		local:    strategy.NewLocalHeuristicStrategy(),
		registry: registryClient,
		events:   events,
	}
	if cloudService != nil {
		e.cloud = strategy.NewCloudStrategy(cloudService)
	}
	return e
}

// SetCloudTimeout bounds one cloud analysis, retries included. Zero leaves
// it bounded by the caller's deadline only.
func (e *Engine) SetCloudTimeout(d time.Duration) {
	e.cloudTimeout = d
}

type run struct {
	engine *Engine
	scanID string
	state  State
	trace  []State
	start  time.Time
}

func (r *run) transition(ctx context.Context, next State, err error, meta map[string]interface{}) {
	prev := r.state
	r.state = next
	r.trace = append(r.trace, next)

	if r.engine.events == nil {
		return
	}
	event := observer.PipelineEvent{
		EventType:      observer.StateChanged,
		ScanID:         r.scanID,
		State:          string(next),
		PreviousState:  string(prev),
		ProcessingTime: time.Since(r.start),
		Success:        err == nil,
		Metadata:       meta,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	r.engine.events.NotifyObservers(ctx, event)
}

// Run always produces a complete result unless ctx is cancelled, in which
// case the context error is returned and the partial result is discarded.
// A deadline that expires mid-run counts as a cloud failure: the local
// branch and post-processing finish on a fresh budget.
func (e *Engine) Run(ctx context.Context, req Request) (*Outcome, error) {
	r := &run{engine: e, scanID: req.ScanID, state: StateIdle, trace: []State{StateIdle}, start: time.Now()}
	in := strategy.Input{Image: req.Image, Signal: req.Signal}
	log := logger.WithComponent("fusion").WithField("scan_id", req.ScanID)

	r.transition(ctx, StateLocalInferenceDone, nil, map[string]interface{}{
		"labels":    len(req.Signal.Classification),
		"ocr_chars": len(req.Signal.OCRText),
	})
	if cancelled(ctx) {
		return nil, ctx.Err()
	}

	analysis := strategy.NewAnalysisContext(e.local)
	var (
		result   *models.AnalysisResult
		cloudErr error
	)

	if req.Online && e.cloud != nil {
		r.transition(ctx, StateCloudAttempt, nil, nil)
		analysis.SetStrategy(e.cloud)
		cloudCtx, cancel := e.cloudContext(ctx)
		result, cloudErr = analysis.ExecuteAnalysis(cloudCtx, in)
		cancel()
		if cloudErr == nil && result == nil {
			cloudErr = errors.New("cloud service returned no result")
		}
		if cloudErr != nil {
			if cancelled(ctx) {
				return nil, ctx.Err()
			}
			log.WithError(cloudErr).Warn("Cloud analysis failed, recovering with local heuristic")
			r.transition(ctx, StateFailed, cloudErr, nil)
			r.transition(ctx, StateRecovered, nil, nil)
			analysis.SetStrategy(e.local)
			result = nil
		}
	}

	// the caller's deadline is spent; finish on a short budget of our own
	finishCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		finishCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), finishBudget)
		defer cancel()
	}

	if result == nil {
		r.transition(finishCtx, StateLocalHeuristic, nil, map[string]interface{}{"online": req.Online})
		result, _ = analysis.ExecuteAnalysis(finishCtx, in)
		if cloudErr != nil {
			result.Summary = strings.TrimSpace(result.Summary) + models.DegradedNotice
			result.Degraded = true
		}
	}

	r.transition(finishCtx, StatePostProcessing, nil, map[string]interface{}{"strategy": analysis.GetCurrentStrategy()})
	e.postProcess(finishCtx, result, req.Online)
	if cancelled(ctx) {
		return nil, ctx.Err()
	}

	if err := result.Complete(); err != nil {
		// every branch fills all sections; reaching this is a bug
		log.WithError(err).Error("Fused result is incomplete")
		models.ApplyDefaults(result)
	}

	r.transition(finishCtx, StateComplete, nil, map[string]interface{}{
		"score":  result.OverallScore,
		"source": result.Source,
	})
	return &Outcome{Result: result, States: r.trace, CloudError: cloudErr}, nil
}

// cloudContext bounds the cloud branch, retries included, by the configured
// timeout and by the caller's deadline less a reserve for finishing locally.
func (e *Engine) cloudContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if reserve := min(finishBudget, time.Until(deadline)/4); ok && reserve > 0 {
		deadline = deadline.Add(-reserve)
	}
	if e.cloudTimeout > 0 {
		if own := time.Now().Add(e.cloudTimeout); !ok || own.Before(deadline) {
			deadline, ok = own, true
		}
	}
	if !ok {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, deadline)
}

func cancelled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

// postProcess attaches the microplastic impact and, when the summary names a
// known brand and the registry has facilities for it, verified supply-chain steps.
func (e *Engine) postProcess(ctx context.Context, result *models.AnalysisResult, online bool) {
	result.MicroplasticImpact = impact.Calculate(result.MainMaterial)

	models.ApplyDefaults(result)
	chain := result.SupplyChain
	chain.Provenance = models.ProvenanceEstimated

	brand, ok := knowledge.ResolveBrand(result.Summary)
	if !ok {
		return
	}
	chain.Brand = brand.Key
	if !online || e.registry == nil {
		return
	}

	facilities, err := e.registry.Facilities(ctx, brand.Key)
	if err != nil {
		logger.WithComponent("fusion").WithError(err).WithField("brand", brand.Key).Info("Facility lookup unavailable, keeping estimated supply chain")
		return
	}
	if len(facilities) == 0 {
		return
	}

	steps := make([]models.SupplyChainStep, 0, len(facilities))
	for _, f := range facilities {
		steps = append(steps, models.SupplyChainStep{
			Stage:    stageFor(f.Sector),
			Location: location(f),
			Country:  f.Country,
			Verified: true,
		})
	}
	// TotalMiles stays the estimate; registry coordinates are not routed.
	chain.Steps = steps
	chain.Provenance = models.ProvenanceVerified
}

func stageFor(sectors []string) string {
	if len(sectors) == 0 {
		return "Manufacturing"
	}
	return fmt.Sprintf("Manufacturing (%s)", strings.Join(sectors, ", "))
}

func location(f models.FacilityRecord) string {
	if f.Address == "" {
		return f.Name
	}
	return f.Name + ", " + f.Address
}
