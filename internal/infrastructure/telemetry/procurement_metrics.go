package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Transition outcomes used as the outcome label
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation"
	OutcomePermission = "permission"
	OutcomeRejected   = "remote_rejection"
	OutcomeInFlight   = "in_flight"
	OutcomeStale      = "stale"
	OutcomeError      = "error"
)

// ProcurementMetrics records workflow and allocation activity.
type ProcurementMetrics struct {
	logger *zap.Logger

	transitionsTotal  *Counter
	submissionSeconds *Histogram
	allocationsTotal  *Counter
	shortfallTotal    *Counter
	outOfBalanceTotal *Counter
	harvestsTotal     *Counter
	eventsTotal       *Counter
}

// ProcurementMetricsConfig holds configuration for procurement metrics.
type ProcurementMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewProcurementMetrics creates the procurement instruments on the given meter.
func NewProcurementMetrics(cfg ProcurementMetricsConfig) (*ProcurementMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	in := NewInstruments(cfg.Meter)
	pm := &ProcurementMetrics{
		logger:            logger,
		transitionsTotal:  in.Counter("procurement_order_transitions_total", "Order workflow transitions by kind and outcome", "{transitions}"),
		submissionSeconds: in.Histogram("procurement_gateway_submission_duration_seconds", "Duration of order gateway submissions", GatewayDurationBuckets),
		allocationsTotal:  in.Counter("procurement_allocation_plans_total", "Allocation plans by policy and fulfilment", "{plans}"),
		shortfallTotal:    in.Counter("procurement_allocation_shortfalls_total", "Allocation plans that could not cover the required quantity", "{plans}"),
		outOfBalanceTotal: in.Counter("procurement_mass_balance_flags_total", "Allocation previews flagged as out of balance", "{previews}"),
		harvestsTotal:     in.Counter("procurement_harvests_declared_total", "Harvest batches declared", "{batches}"),
		eventsTotal:       in.Counter("procurement_domain_events_total", "Domain events published by type", "{events}"),
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return pm, nil
}

// RecordTransition counts a transition attempt with its outcome label
func (pm *ProcurementMetrics) RecordTransition(ctx context.Context, tenantID uuid.UUID, transition, outcome string) {
	pm.transitionsTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrTransition.String(transition),
		AttrOutcome.String(outcome),
	)
}

// RecordSubmission records how long a gateway submission took
func (pm *ProcurementMetrics) RecordSubmission(ctx context.Context, transition string, d time.Duration, errorCode string) {
	attrs := []attribute.KeyValue{AttrTransition.String(transition)}
	if errorCode != "" {
		attrs = append(attrs, AttrErrorCode.String(errorCode))
	}
	pm.submissionSeconds.RecordDuration(ctx, d, attrs...)
}

// RecordAllocation counts a plan and, when it falls short, a shortfall
func (pm *ProcurementMetrics) RecordAllocation(ctx context.Context, tenantID uuid.UUID, policy string, fulfilled bool) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrPolicy.String(policy),
		AttrFulfilled.Bool(fulfilled),
	}
	pm.allocationsTotal.Inc(ctx, attrs...)
	if !fulfilled {
		pm.shortfallTotal.Inc(ctx, attrs[:2]...)
	}
}

// RecordOutOfBalance counts a preview whose mass balance was flagged
func (pm *ProcurementMetrics) RecordOutOfBalance(ctx context.Context, tenantID uuid.UUID) {
	pm.outOfBalanceTotal.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordHarvestDeclared counts a declared batch
func (pm *ProcurementMetrics) RecordHarvestDeclared(ctx context.Context, tenantID uuid.UUID) {
	pm.harvestsTotal.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordEvent counts a published domain event
func (pm *ProcurementMetrics) RecordEvent(ctx context.Context, tenantID uuid.UUID, eventType string) {
	pm.eventsTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrEventType.String(eventType),
	)
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewProcurementMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
