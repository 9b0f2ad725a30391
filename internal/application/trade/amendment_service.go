package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/shared"
	"github.com/supplychain/procurement/internal/domain/trade"
	"github.com/supplychain/procurement/internal/infrastructure/logger"
	"github.com/supplychain/procurement/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultSubmissionTTL bounds how long one submission may hold an order's guard
const DefaultSubmissionTTL = 30 * time.Second

// OrderSnapshots holds the freshest known state of each order
type OrderSnapshots interface {
	Get(orderID uuid.UUID) (*trade.PurchaseOrder, bool)
	Put(order *trade.PurchaseOrder) bool
	MarkStale(orderID uuid.UUID)
	ClearStale(orderID uuid.UUID)
	IsStale(orderID uuid.UUID) bool
}

// OrderPlacer stores newly placed orders
type OrderPlacer interface {
	CreateOrder(ctx context.Context, order *trade.PurchaseOrder) error
}

// AllocationTrigger plans batch allocation for a confirmed order quantity
type AllocationTrigger interface {
	PlanForOrder(ctx context.Context, order *trade.PurchaseOrder, quantity decimal.Decimal, unit string) error
}

// AmendmentService drives the order negotiation workflow against the order gateway.
// Submissions for one order are serialized by the guard and validated locally
// against the freshest snapshot before the gateway is called.
type AmendmentService struct {
	gateway        trade.OrderGateway
	guard          shared.SubmissionGuard
	snapshots      OrderSnapshots
	placer         OrderPlacer
	eventPublisher shared.EventPublisher
	metrics        *telemetry.ProcurementMetrics
	allocation     AllocationTrigger
	logger         *zap.Logger
	submissionTTL  time.Duration
	now            func() time.Time
}

// NewAmendmentService creates a new AmendmentService
func NewAmendmentService(
	gateway trade.OrderGateway,
	guard shared.SubmissionGuard,
	snapshots OrderSnapshots,
	zapLogger *zap.Logger,
) *AmendmentService {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &AmendmentService{
		gateway:       gateway,
		guard:         guard,
		snapshots:     snapshots,
		logger:        zapLogger.Named("amendment_service"),
		submissionTTL: DefaultSubmissionTTL,
		now:           time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *AmendmentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetProcurementMetrics sets the metrics recorder
func (s *AmendmentService) SetProcurementMetrics(metrics *telemetry.ProcurementMetrics) {
	s.metrics = metrics
}

// SetAllocationTrigger sets the planner called when a transition requires allocation
func (s *AmendmentService) SetAllocationTrigger(trigger AllocationTrigger) {
	s.allocation = trigger
}

// SetOrderPlacer enables PlaceOrder
func (s *AmendmentService) SetOrderPlacer(placer OrderPlacer) {
	s.placer = placer
}

// SetSubmissionTTL overrides the guard lease duration
func (s *AmendmentService) SetSubmissionTTL(ttl time.Duration) {
	if ttl > 0 {
		s.submissionTTL = ttl
	}
}

// SetClock replaces the clock used for local validation
func (s *AmendmentService) SetClock(now func() time.Time) {
	s.now = now
}

// PlaceOrder creates a new PENDING order with the viewer as buyer
func (s *AmendmentService) PlaceOrder(ctx context.Context, viewer Viewer, req PlaceOrderRequest) (*OrderResponse, error) {
	if s.placer == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Order placement is not available")
	}
	order, err := trade.NewPurchaseOrder(viewer.TenantID, req.ToParams(viewer.CompanyID))
	if err != nil {
		return nil, err
	}
	if err := s.placer.CreateOrder(context.WithoutCancel(ctx), order); err != nil {
		return nil, err
	}
	order.ClearDomainEvents()
	s.snapshots.Put(order)

	logger.WithLogger(ctx, s.logger).Info("purchase order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("po_number", order.PONumber),
	)

	response := ToOrderResponse(order)
	return &response, nil
}

// RefreshOrder re-reads the order from the gateway and clears any stale flag
func (s *AmendmentService) RefreshOrder(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.fetch(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.TenantID != viewer.TenantID {
		return nil, fmt.Errorf("order %s: %w", orderID, shared.ErrNotFound)
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// GetActions resolves the viewer's legal actions against the freshest snapshot
func (s *AmendmentService) GetActions(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*ActionsResponse, error) {
	order, err := s.current(ctx, viewer, orderID)
	if err != nil {
		return nil, err
	}
	response := ToActionsResponse(order, viewer.CompanyID)
	return &response, nil
}

// ProposeAmendment submits a seller proposal and returns the resulting amendment
func (s *AmendmentService) ProposeAmendment(ctx context.Context, viewer Viewer, orderID uuid.UUID, req ProposeAmendmentRequest) (*AmendmentResponse, error) {
	order, _, err := s.submit(ctx, viewer, orderID, req.ToTransition())
	if err != nil {
		return nil, err
	}
	response := ToAmendmentResponse(order)
	return &response, nil
}

// DecideAmendment submits the buyer's approval or rejection of the pending amendment
func (s *AmendmentService) DecideAmendment(ctx context.Context, viewer Viewer, orderID uuid.UUID, req DecideAmendmentRequest) (*TransitionResponse, error) {
	return s.transition(ctx, viewer, orderID, req.ToTransition())
}

// AcceptOrder submits the seller's acceptance
func (s *AmendmentService) AcceptOrder(ctx context.Context, viewer Viewer, orderID uuid.UUID, req AcceptOrderRequest) (*TransitionResponse, error) {
	return s.transition(ctx, viewer, orderID, req.ToTransition())
}

// RejectOrder submits the seller's rejection
func (s *AmendmentService) RejectOrder(ctx context.Context, viewer Viewer, orderID uuid.UUID, req RejectOrderRequest) (*TransitionResponse, error) {
	return s.transition(ctx, viewer, orderID, req.ToTransition())
}

// EditOrder submits a direct edit
func (s *AmendmentService) EditOrder(ctx context.Context, viewer Viewer, orderID uuid.UUID, req EditOrderRequest) (*TransitionResponse, error) {
	return s.transition(ctx, viewer, orderID, req.ToTransition())
}

func (s *AmendmentService) transition(ctx context.Context, viewer Viewer, orderID uuid.UUID, t trade.Transition) (*TransitionResponse, error) {
	order, outcome, err := s.submit(ctx, viewer, orderID, t)
	if err != nil {
		return nil, err
	}
	response := toTransitionResponse(order, outcome)
	return &response, nil
}

// submit runs one transition end to end. Once the guard is taken the gateway call
// and the follow-up bookkeeping run to completion even if ctx is cancelled.
func (s *AmendmentService) submit(ctx context.Context, viewer Viewer, orderID uuid.UUID, t trade.Transition) (order *trade.PurchaseOrder, outcome trade.Outcome, err error) {
	kind := t.Kind()
	ctx = logger.WithOrderID(ctx, orderID.String())
	ctx, span := telemetry.StartServiceSpan(ctx, "AmendmentService", kind.String(),
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrTransition, kind.String()),
		telemetry.WithAttribute(telemetry.SpanAttrCompanyID, viewer.CompanyID.String()),
	)
	defer span.End()
	log := logger.WithLogger(ctx, s.logger).With(zap.String("transition", kind.String()))

	defer func() {
		s.recordTransition(ctx, viewer.TenantID, kind, err)
		if err != nil {
			telemetry.RecordError(span, err)
			telemetry.SetAttributes(span, telemetry.SpanAttrErrorCode, shared.CodeOf(err))
			return
		}
		telemetry.SetOK(span)
	}()

	if s.snapshots.IsStale(orderID) {
		return nil, trade.Outcome{}, fmt.Errorf("order %s: %w", orderID, shared.ErrStaleOrder)
	}

	key := shared.OrderSubmissionKey(orderID.String())
	token, acquired, err := s.guard.Acquire(ctx, key, s.submissionTTL)
	if err != nil {
		return nil, trade.Outcome{}, fmt.Errorf("failed to acquire submission guard: %w", err)
	}
	if !acquired {
		return nil, trade.Outcome{}, fmt.Errorf("order %s: %w", orderID, shared.ErrSubmissionInFlight)
	}

	bg := context.WithoutCancel(ctx)
	defer func() {
		if releaseErr := s.guard.Release(bg, key, token); releaseErr != nil {
			log.Warn("failed to release submission guard", zap.Error(releaseErr))
		}
	}()

	current, err := s.current(bg, viewer, orderID)
	if err != nil {
		return nil, trade.Outcome{}, err
	}

	// local validation blocks the gateway call on any error
	_, outcome, err = trade.ApplyTransition(current, viewer.CompanyID, t, s.now().UTC())
	if err != nil {
		log.Info("transition refused locally",
			zap.String("error_code", shared.CodeOf(err)),
			zap.String("error_kind", shared.KindOf(err).String()),
		)
		return nil, trade.Outcome{}, err
	}

	updated, err := s.callGateway(bg, current, viewer, t)
	if err != nil {
		log.Warn("order gateway refused transition",
			zap.String("error_code", shared.CodeOf(err)),
			zap.Error(err),
		)
		s.refetchAfterRejection(bg, orderID)
		return nil, trade.Outcome{}, err
	}

	s.snapshots.Put(updated)
	s.snapshots.ClearStale(orderID)

	log.Info("transition applied",
		zap.String("status", updated.Status.String()),
		zap.String("amendment_status", updated.Amendment.Status.String()),
		zap.Int("version", updated.Version),
	)

	s.publish(bg, outcome.Events)
	if outcome.AllocationRequired {
		s.triggerAllocation(bg, updated)
	}
	return updated, outcome, nil
}

// callGateway submits t and maps any failure onto the error taxonomy
func (s *AmendmentService) callGateway(ctx context.Context, current *trade.PurchaseOrder, viewer Viewer, t trade.Transition) (*trade.PurchaseOrder, error) {
	kind := t.Kind().String()
	ctx, span := telemetry.StartClientSpan(ctx, "OrderGateway", kind,
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, current.ID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrVersion, current.Version),
	)
	defer span.End()

	start := time.Now()
	updated, err := trade.Submit(ctx, s.gateway, trade.NewSubmission(current, viewer.CompanyID), t)
	if err == nil && updated == nil {
		err = shared.NewRemoteRejection(shared.CodeRemoteRejected, "Order gateway returned no order")
	}
	err = asGatewayError(err)
	if s.metrics != nil {
		s.metrics.RecordSubmission(ctx, kind, time.Since(start), shared.CodeOf(err))
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return updated, nil
}

// asGatewayError keeps structured domain errors and wraps anything else as a remote rejection
func asGatewayError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return fmt.Errorf("%w: %v", shared.NewRemoteRejection(shared.CodeRemoteRejected, "Order gateway rejected the request"), err)
}

// refetchAfterRejection reloads the order; when that fails too the snapshot is marked stale
func (s *AmendmentService) refetchAfterRejection(ctx context.Context, orderID uuid.UUID) {
	if _, err := s.fetch(ctx, orderID); err != nil {
		s.snapshots.MarkStale(orderID)
		logger.WithLogger(ctx, s.logger).Warn("order marked stale after failed refetch", zap.Error(err))
	}
}

// current returns the cached snapshot, fetching it on a miss
func (s *AmendmentService) current(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*trade.PurchaseOrder, error) {
	order, ok := s.snapshots.Get(orderID)
	if !ok {
		var err error
		if order, err = s.fetch(ctx, orderID); err != nil {
			return nil, err
		}
	}
	if order.TenantID != viewer.TenantID {
		return nil, fmt.Errorf("order %s: %w", orderID, shared.ErrNotFound)
	}
	return order, nil
}

// fetch reads the order from the gateway and caches it
func (s *AmendmentService) fetch(ctx context.Context, orderID uuid.UUID) (*trade.PurchaseOrder, error) {
	ctx, span := telemetry.StartClientSpan(ctx, "OrderGateway", "fetch",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID.String()),
	)
	defer span.End()

	order, err := s.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, shared.ErrNotFound)
	}
	s.snapshots.Put(order)
	s.snapshots.ClearStale(orderID)
	if cached, ok := s.snapshots.Get(orderID); ok {
		order = cached
	}
	telemetry.SetOK(span)
	return order, nil
}

func (s *AmendmentService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		logger.WithLogger(ctx, s.logger).Error("failed to publish domain events", zap.Error(err))
	}
}

// triggerAllocation plans against the confirmed values of the updated order.
// A planning failure does not undo the transition.
func (s *AmendmentService) triggerAllocation(ctx context.Context, order *trade.PurchaseOrder) {
	if s.allocation == nil {
		return
	}
	if err := s.allocation.PlanForOrder(ctx, order, order.Quantity, order.Unit); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("allocation planning failed",
			zap.String("quantity", order.Quantity.String()),
			zap.String("unit", order.Unit),
			zap.Error(err),
		)
	}
}

func (s *AmendmentService) recordTransition(ctx context.Context, tenantID uuid.UUID, kind trade.TransitionKind, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordTransition(ctx, tenantID, kind.String(), outcomeLabel(err))
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.Is(err, shared.ErrStaleOrder):
		return telemetry.OutcomeStale
	case errors.Is(err, shared.ErrSubmissionInFlight):
		return telemetry.OutcomeInFlight
	}
	switch shared.KindOf(err) {
	case shared.KindValidation:
		return telemetry.OutcomeValidation
	case shared.KindPermission:
		return telemetry.OutcomePermission
	case shared.KindRemoteRejection:
		return telemetry.OutcomeRejected
	}
	return telemetry.OutcomeError
}
