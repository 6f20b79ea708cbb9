package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/i474232898/forecast-telemetry/internal/common"
	"github.com/i474232898/forecast-telemetry/internal/units"
)

// Offset and horizon bounds, in hours.
const (
	MinOffsetHours  = 1
	MaxOffsetHours  = 47
	MaxHorizonHours = 96

	DefaultRefreshInterval = time.Hour
	defaultFetchTimeout    = 30 * time.Second
	publishTimeout         = 10 * time.Second
)

// Params are the forecast parameters chosen by the host.
type Params struct {
	OffsetHours     int
	HorizonHours    int
	PublishCurrent  bool
	PartialFields   []string
	RefreshInterval time.Duration
}

// Service is the entry point for the host: it gates refreshes, runs fetches
// through the provider, folds the results into the canonical state and hands
// batches to the publishers.
type Service struct {
	provider   Provider
	schema     *Schema
	publishers []Publisher
	status     StatusReporter
	logger     *slog.Logger
	now        func() time.Time
	timeout    time.Duration
	elevation  *atomic.Float64

	mu         sync.RWMutex
	apiKey     string
	configured bool
	started    bool
	settings   Settings
	agg        *Aggregator
	gate       *Gate

	inflight sync.WaitGroup
}

// Option customises a Service.
type Option func(*Service)

// WithPublishers adds batch publishers.
func WithPublishers(p ...Publisher) Option {
	return func(s *Service) {
		s.publishers = append(s.publishers, p...)
	}
}

// WithStatusReporter sets the health side channel.
func WithStatusReporter(r StatusReporter) Option {
	return func(s *Service) {
		s.status = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithSchema replaces the default measurement schema.
func WithSchema(schema *Schema) Option {
	return func(s *Service) {
		s.schema = schema
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithFetchTimeout bounds a single provider call.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService creates an uninitialized Service.
func NewService(provider Provider, opts ...Option) *Service {
	s := &Service{
		provider:  provider,
		logger:    slog.Default(),
		now:       time.Now,
		timeout:   defaultFetchTimeout,
		elevation: atomic.NewFloat64(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.schema == nil {
		s.schema = DefaultSchema()
	}
	if s.status == nil {
		s.status = NewHealth(s.logger)
	}
	s.logger = s.logger.With("component", "weather", "provider", provider.Name())
	return s
}

// Initialize configures the service and returns the meta batch. It needs no
// network access. An empty API key returns an empty batch and ErrConfiguration;
// fetches are then skipped until Initialize succeeds.
func (s *Service) Initialize(apiKey string, view View, params Params) (Batch, error) {
	if strings.TrimSpace(apiKey) == "" {
		s.mu.Lock()
		s.configured = false
		s.mu.Unlock()
		err := fmt.Errorf("%w: api key is required", ErrConfiguration)
		s.status.SetError(err.Error())
		return Batch{Kind: BatchMeta, Timestamp: s.now().UTC()}, err
	}
	if view != ViewSimple && view != ViewFull {
		s.mu.Lock()
		s.configured = false
		s.mu.Unlock()
		err := fmt.Errorf("%w: unknown view %q", ErrConfiguration, view)
		s.status.SetError(err.Error())
		return Batch{Kind: BatchMeta, Timestamp: s.now().UTC()}, err
	}

	settings := s.clamp(params)
	settings.View = view
	settings.PublishCurrent = params.PublishCurrent
	settings.PartialFields = NormalizeFields(params.PartialFields)
	for _, f := range settings.PartialFields {
		if !slices.Contains(s.schema.CurrentLeaves(), f) {
			s.logger.Warn("partial field is not a current-condition measurement", "field", f)
		}
	}

	agg := NewAggregator(s.schema, settings, s.elevation, s.logger)
	agg.now = s.now

	s.mu.Lock()
	s.apiKey = apiKey
	s.configured = true
	s.started = false
	s.settings = settings
	s.agg = agg
	if s.gate == nil {
		s.gate = NewGate(settings.RefreshInterval)
	} else {
		s.gate.Reconfigure(settings.RefreshInterval)
	}
	s.mu.Unlock()

	s.logger.Info("forecast initialized",
		"view", view,
		"offset_hours", settings.OffsetHours,
		"horizon_hours", settings.HorizonHours,
		"publish_current", settings.PublishCurrent,
		"partial_fields", settings.PartialFields,
		"refresh", settings.RefreshInterval,
	)

	meta := agg.BuildMeta()
	s.publish(meta)
	s.publish(agg.BuildValues())
	return meta, nil
}

func (s *Service) clamp(p Params) Settings {
	offset := common.Clamp(p.OffsetHours, MinOffsetHours, MaxOffsetHours)
	if offset != p.OffsetHours {
		s.logger.Warn("forecast offset out of range; clamped", "requested", p.OffsetHours, "used", offset)
	}
	horizon := common.Clamp(p.HorizonHours, offset+1, MaxHorizonHours)
	if horizon != p.HorizonHours {
		s.logger.Warn("forecast horizon out of range; clamped", "requested", p.HorizonHours, "used", horizon)
	}
	refresh := p.RefreshInterval
	if refresh <= 0 {
		refresh = DefaultRefreshInterval
	}
	return Settings{OffsetHours: offset, HorizonHours: horizon, RefreshInterval: refresh}
}

// IngestPosition records a position update and starts a fetch when one is due.
// It never blocks on the fetch and never fails.
func (s *Service) IngestPosition(pos Position) {
	if !pos.Valid() {
		s.logger.Warn("ignoring invalid position", "latitude", pos.Latitude, "longitude", pos.Longitude)
		return
	}
	gate := s.currentGate()
	if gate == nil {
		s.mu.Lock()
		if s.gate == nil {
			s.gate = NewGate(DefaultRefreshInterval)
		}
		gate = s.gate
		s.mu.Unlock()
	}
	gate.Observe(pos)
	s.trigger("position")
}

// OnTimerTick re-evaluates the gate with the last known position, so forecasts
// keep refreshing when position updates stop.
func (s *Service) OnTimerTick() {
	s.trigger("timer")
}

// IngestElevation updates the station elevation used for pressure compensation.
// nil and non-numeric placeholders reset it to 0.
func (s *Service) IngestElevation(v any) {
	meters, ok := units.Number(v)
	if _, isString := v.(string); isString || !ok {
		s.logger.Debug("no usable elevation; using 0 m", "value", v)
		s.elevation.Store(0)
		return
	}
	s.elevation.Store(meters)
	s.logger.Debug("elevation updated", "meters", meters)
}

// Elevation returns the station elevation in meters.
func (s *Service) Elevation() float64 {
	return s.elevation.Load()
}

func (s *Service) trigger(source string) {
	s.mu.RLock()
	configured, gate, agg, apiKey := s.configured, s.gate, s.agg, s.apiKey
	s.mu.RUnlock()
	if !configured || gate == nil || agg == nil {
		return
	}

	ticket, ok := gate.TryAdmit(s.now())
	if !ok {
		return
	}

	s.logger.Debug("fetch admitted", "trigger", source, "position", ticket.Position.String())
	s.inflight.Add(1)
	go s.fetch(gate, agg, apiKey, ticket)
}

func (s *Service) fetch(gate *Gate, agg *Aggregator, apiKey string, ticket Ticket) {
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	resp, err := s.provider.Fetch(ctx, FetchRequest{APIKey: apiKey, Position: ticket.Position})

	if !gate.Current(ticket) {
		gate.Settle(ticket, s.now())
		s.logger.Debug("discarding fetch started before re-initialize", "error", err)
		s.trigger("reinitialize")
		return
	}

	s.mu.Lock()
	firstSuccess := err == nil && !s.started
	if firstSuccess {
		s.started = true
	}
	s.mu.Unlock()

	var batch Batch
	switch {
	case err == nil:
		res := agg.Ingest(resp)
		batch = res.Values
		if firstSuccess {
			s.status.SetStatus("Started")
		}
	case errors.Is(err, ErrUnauthorized):
		s.logger.Error("provider rejected credentials", "error", err)
		s.status.SetError(err.Error())
		batch = agg.Fail(err)
	default:
		s.logger.Warn("forecast fetch failed; will retry on next trigger", "error", err)
		batch = agg.Fail(err)
	}

	gate.Settle(ticket, s.now())
	s.publish(batch)
}

// Wait blocks until in-flight fetches have settled.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) publish(batch Batch) {
	if len(s.publishers) == 0 {
		return
	}
	batch.ID = uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	for _, p := range s.publishers {
		if err := p.Publish(ctx, batch); err != nil {
			s.logger.Warn("publish failed", "kind", batch.Kind, "error", err)
		}
	}
}

// Values returns the latest values batch; empty before Initialize.
func (s *Service) Values() Batch {
	if agg := s.aggregator(); agg != nil {
		return agg.BuildValues()
	}
	return Batch{Kind: BatchValues, Timestamp: s.now().UTC()}
}

// Meta returns the meta batch; empty before Initialize.
func (s *Service) Meta() Batch {
	if agg := s.aggregator(); agg != nil {
		return agg.BuildMeta()
	}
	return Batch{Kind: BatchMeta, Timestamp: s.now().UTC()}
}

// Display returns the latest values in display units.
func (s *Service) Display(precision int) Batch {
	if agg := s.aggregator(); agg != nil {
		return agg.BuildDisplay(precision)
	}
	return Batch{Kind: BatchValues, Timestamp: s.now().UTC()}
}

// Settings returns the effective settings after clamping.
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// GateState reports whether a fetch is in flight.
func (s *Service) GateState() GateState {
	if gate := s.currentGate(); gate != nil {
		return gate.State()
	}
	return GateIdle
}

func (s *Service) aggregator() *Aggregator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agg
}

func (s *Service) currentGate() *Gate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gate
}
