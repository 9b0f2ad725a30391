package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/domain/shared"
	"github.com/supplychain/procurement/internal/domain/shared/strategy"
	"github.com/supplychain/procurement/internal/domain/trade"
	"github.com/supplychain/procurement/internal/infrastructure/logger"
	"github.com/supplychain/procurement/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PolicyCatalog resolves allocation policies and lists the registered ones
type PolicyCatalog interface {
	inventory.PolicyResolver
	Policies() []inventory.AllocationPolicy
	GetDefault() string
}

// BatchFinder looks up a single batch by id
type BatchFinder interface {
	FindBatch(ctx context.Context, id uuid.UUID) (*inventory.HarvestBatch, error)
}

// MassBalanceConfigFromSettings builds preview tolerances from configured floats.
// Non-positive values keep the defaults.
func MassBalanceConfigFromSettings(contributionTolerance, deviationBand float64) inventory.MassBalanceConfig {
	cfg := inventory.DefaultMassBalanceConfig()
	if contributionTolerance > 0 {
		cfg.ContributionTolerance = decimal.NewFromFloat(contributionTolerance)
	}
	if deviationBand > 0 {
		cfg.DeviationBand = decimal.NewFromFloat(deviationBand)
	}
	return cfg
}

// AllocationService plans batch allocations, runs mass-balance previews and
// manages manual allocation sessions
type AllocationService struct {
	gateway        inventory.BatchGateway
	finder         BatchFinder
	policies       PolicyCatalog
	planner        *inventory.Planner
	massBalance    inventory.MassBalanceConfig
	sessions       *SessionStore
	eventPublisher shared.EventPublisher
	metrics        *telemetry.ProcurementMetrics
	logger         *zap.Logger
	now            func() time.Time
}

// NewAllocationService creates a new AllocationService. gateway may be nil when
// every request supplies its own pool.
func NewAllocationService(
	gateway inventory.BatchGateway,
	policies PolicyCatalog,
	massBalance inventory.MassBalanceConfig,
	zapLogger *zap.Logger,
) *AllocationService {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &AllocationService{
		gateway:     gateway,
		policies:    policies,
		planner:     inventory.NewPlanner(policies),
		massBalance: massBalance,
		sessions:    NewSessionStore(),
		logger:      zapLogger.Named("allocation_service"),
		now:         time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *AllocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetProcurementMetrics sets the metrics recorder
func (s *AllocationService) SetProcurementMetrics(metrics *telemetry.ProcurementMetrics) {
	s.metrics = metrics
}

// SetBatchFinder lets sessions pick batches outside their starting pool
func (s *AllocationService) SetBatchFinder(finder BatchFinder) {
	s.finder = finder
}

// SetClock replaces the service clock
func (s *AllocationService) SetClock(now func() time.Time) {
	s.now = now
}

// GetAvailableBatches returns the tenant's candidate pool for a product
func (s *AllocationService) GetAvailableBatches(ctx context.Context, tenantID, productID uuid.UUID, quantity decimal.Decimal, unit string) ([]BatchResponse, error) {
	pool, err := s.loadPool(ctx, tenantID, productID, quantity, unit)
	if err != nil {
		return nil, err
	}
	return ToBatchResponses(pool), nil
}

// DeclareHarvest records a new harvest batch through the gateway
func (s *AllocationService) DeclareHarvest(ctx context.Context, tenantID uuid.UUID, req DeclareHarvestRequest) (*BatchResponse, error) {
	if s.gateway == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Harvest declaration is not available")
	}
	decl := req.ToDeclaration(tenantID)
	if err := decl.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartClientSpan(ctx, "BatchGateway", "declare_harvest",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, decl.ProductID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, decl.Quantity.String()),
	)
	defer span.End()

	batch, err := s.gateway.DeclareHarvest(context.WithoutCancel(ctx), decl)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)

	logger.WithLogger(ctx, s.logger).Info("harvest declared",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_code", batch.BatchCode),
		zap.String("quantity", batch.Quantity.String()),
		zap.String("unit", batch.Unit),
	)
	if s.metrics != nil {
		s.metrics.RecordHarvestDeclared(ctx, tenantID)
	}
	s.publish(ctx, inventory.NewHarvestDeclaredEvent(batch, s.now().UTC()))

	response := ToBatchResponse(*batch)
	return &response, nil
}

// Plan builds an allocation plan under the requested policy, or the default one
func (s *AllocationService) Plan(ctx context.Context, tenantID uuid.UUID, req PlanRequest) (*PlanResponse, error) {
	allocReq := req.ToAllocationRequest()
	if err := allocReq.Validate(); err != nil {
		return nil, err
	}
	pool, err := s.pool(ctx, tenantID, req.ProductID, req.Batches, allocReq)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "AllocationService", "plan",
		telemetry.WithAttribute(telemetry.SpanAttrPolicy, string(allocReq.Policy)),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, allocReq.RequiredQuantity.String()),
	)
	defer span.End()

	plan, err := s.planner.Plan(allocReq, pool)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRemaining, plan.Remaining.String())
	telemetry.SetOK(span)
	s.recordPlan(ctx, tenantID, plan)

	return &PlanResponse{
		Plan:         plan,
		PartialCount: plan.PartialCount(),
		Unallocated:  ToBatchResponses(inventory.RemoveAllocated(pool, plan)),
		Suggestions:  ShortfallSuggestions(plan),
	}, nil
}

// Compare plans the same pool under every registered policy
func (s *AllocationService) Compare(ctx context.Context, tenantID uuid.UUID, req PlanRequest) (*CompareResponse, error) {
	allocReq := req.ToAllocationRequest()
	if err := allocReq.Validate(); err != nil {
		return nil, err
	}
	if s.policies == nil {
		return nil, shared.NewValidationError(shared.CodeInvalidPolicy, "No allocation policies are registered")
	}
	pool, err := s.pool(ctx, tenantID, req.ProductID, req.Batches, allocReq)
	if err != nil {
		return nil, err
	}

	resp := &CompareResponse{
		RequiredQuantity: allocReq.RequiredQuantity,
		RequiredUnit:     allocReq.RequiredUnit,
		DefaultPolicy:    s.policies.GetDefault(),
	}
	for _, policy := range s.policies.Policies() {
		plan, err := inventory.PlanWith(policy, allocReq, pool)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", policy.Name(), err)
		}
		desc := strategy.Describe(policy)
		resp.Policies = append(resp.Policies, PolicyComparison{
			Policy:         desc.Name,
			Description:    desc.Description,
			TotalAllocated: plan.TotalAllocated,
			Remaining:      plan.Remaining,
			CanFulfill:     plan.CanFulfill,
			RecordCount:    len(plan.Records),
			PartialCount:   plan.PartialCount(),
			Plan:           plan,
		})
	}
	return resp, nil
}

// Preview runs the mass-balance check on explicit records or on a session's picks
func (s *AllocationService) Preview(ctx context.Context, tenantID uuid.UUID, req PreviewRequest) (*inventory.AllocationPreview, error) {
	in := inventory.PreviewInput{
		Records:           req.Records,
		RequestedQuantity: req.RequestedQuantity,
		Outputs:           ToOutputs(req.Outputs),
	}
	if req.SessionID != nil {
		entry, err := s.sessions.get(tenantID, *req.SessionID)
		if err != nil {
			return nil, err
		}
		plan := entry.session.Plan()
		in.Records = plan.Records
		in.RequestedQuantity = plan.RequiredQuantity
	}

	preview, err := inventory.PreviewAllocation(in, s.massBalance)
	if err != nil {
		return nil, err
	}
	if preview.OutOfBalance {
		logger.WithLogger(ctx, s.logger).Warn("allocation preview out of balance",
			zap.String("ratio", preview.Ratio.String()),
			zap.Strings("warnings", preview.Warnings),
		)
		if s.metrics != nil {
			s.metrics.RecordOutOfBalance(ctx, tenantID)
		}
	}
	return &preview, nil
}

// PlanForOrder plans the default policy against the gateway pool for a confirmed order
// and publishes the result. A shortfall is reported, not returned as an error.
func (s *AllocationService) PlanForOrder(ctx context.Context, order *trade.PurchaseOrder, quantity decimal.Decimal, unit string) error {
	resp, err := s.Plan(ctx, order.TenantID, PlanRequest{
		ProductID:        order.ProductID,
		RequiredQuantity: quantity,
		RequiredUnit:     unit,
	})
	if err != nil {
		return err
	}
	plan := resp.Plan

	logger.WithLogger(ctx, s.logger).Info("allocation planned for order",
		zap.String("order_id", order.ID.String()),
		zap.String("policy", string(plan.Policy)),
		zap.String("total_allocated", plan.TotalAllocated.String()),
		zap.String("remaining", plan.Remaining.String()),
		zap.Bool("can_fulfill", plan.CanFulfill),
	)
	s.publish(ctx, inventory.NewAllocationPlannedEvent(order.TenantID, order.ID, plan, s.now().UTC()))
	return nil
}

// CreateSession starts a manual allocation session against an explicit or gateway pool
func (s *AllocationService) CreateSession(ctx context.Context, tenantID uuid.UUID, req CreateSessionRequest) (*SessionResponse, error) {
	session, err := inventory.NewAllocationSession(req.RequiredQuantity, req.RequiredUnit)
	if err != nil {
		return nil, err
	}
	allocReq := inventory.AllocationRequest{RequiredQuantity: req.RequiredQuantity, RequiredUnit: req.RequiredUnit}
	pool, err := s.pool(ctx, tenantID, req.ProductID, req.Batches, allocReq)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := &sessionEntry{
		id:        uuid.New(),
		tenantID:  tenantID,
		productID: req.ProductID,
		session:   session,
		pool:      pool,
		createdAt: now,
		updatedAt: now,
	}
	s.sessions.put(entry)
	response := entry.toResponse()
	return &response, nil
}

// GetSession returns a session visible to the tenant
func (s *AllocationService) GetSession(ctx context.Context, tenantID, sessionID uuid.UUID) (*SessionResponse, error) {
	entry, err := s.sessions.get(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	response := entry.toResponse()
	return &response, nil
}

// AddPick adds a batch to a session. Batches outside the starting pool are
// looked up through the batch finder when one is set.
func (s *AllocationService) AddPick(ctx context.Context, tenantID, sessionID uuid.UUID, req AddPickRequest) (*SessionResponse, error) {
	entry, err := s.sessions.get(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	batch, inPool := entry.findBatch(req.BatchID)
	if !inPool {
		if batch, err = s.findBatch(ctx, tenantID, req.BatchID); err != nil {
			return nil, err
		}
	}

	updated, err := s.sessions.update(tenantID, sessionID, s.now().UTC(), func(e *sessionEntry) error {
		next, err := e.session.Add(batch, req.Quantity)
		if err != nil {
			return err
		}
		if !inPool {
			e.pool = append(e.pool, batch)
		}
		e.session = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	response := updated.toResponse()
	return &response, nil
}

// RemovePick removes a batch from a session
func (s *AllocationService) RemovePick(ctx context.Context, tenantID, sessionID, batchID uuid.UUID) (*SessionResponse, error) {
	updated, err := s.sessions.update(tenantID, sessionID, s.now().UTC(), func(e *sessionEntry) error {
		next, err := e.session.Remove(batchID)
		if err != nil {
			return err
		}
		e.session = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	response := updated.toResponse()
	return &response, nil
}

// DeleteSession discards a session
func (s *AllocationService) DeleteSession(ctx context.Context, tenantID, sessionID uuid.UUID) error {
	return s.sessions.delete(tenantID, sessionID)
}

// ExpireIdleSessions discards sessions untouched for longer than maxIdle
func (s *AllocationService) ExpireIdleSessions(ctx context.Context, maxIdle time.Duration) int {
	removed := s.sessions.purgeIdle(s.now().UTC().Add(-maxIdle))
	if removed > 0 {
		s.logger.Info("Expired idle allocation sessions",
			zap.Int("removed", removed),
			zap.Duration("max_idle", maxIdle),
			zap.Int("open", s.sessions.Len()),
		)
	}
	return removed
}

// pool returns the explicit batches when given, otherwise the gateway pool
func (s *AllocationService) pool(ctx context.Context, tenantID, productID uuid.UUID, explicit []BatchInput, req inventory.AllocationRequest) ([]inventory.HarvestBatch, error) {
	if len(explicit) > 0 {
		return ToBatches(explicit, tenantID, productID)
	}
	if productID == uuid.Nil {
		return nil, shared.NewValidationError(shared.CodeMissingField, "Either a product or an explicit batch pool is required")
	}
	return s.loadPool(ctx, tenantID, productID, req.RequiredQuantity, req.RequiredUnit)
}

func (s *AllocationService) loadPool(ctx context.Context, tenantID, productID uuid.UUID, quantity decimal.Decimal, unit string) ([]inventory.HarvestBatch, error) {
	if s.gateway == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "No batch gateway is configured")
	}
	ctx, span := telemetry.StartClientSpan(ctx, "BatchGateway", "get_available_batches",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, productID.String()),
	)
	defer span.End()

	batches, err := s.gateway.GetAvailableBatches(context.WithoutCancel(ctx), productID, quantity, unit)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)

	pool := make([]inventory.HarvestBatch, 0, len(batches))
	for _, b := range batches {
		if b.TenantID == tenantID {
			pool = append(pool, b)
		}
	}
	return pool, nil
}

func (s *AllocationService) findBatch(ctx context.Context, tenantID, batchID uuid.UUID) (inventory.HarvestBatch, error) {
	notFound := fmt.Errorf("batch %s: %w", batchID, shared.ErrNotFound)
	if s.finder == nil {
		return inventory.HarvestBatch{}, notFound
	}
	batch, err := s.finder.FindBatch(ctx, batchID)
	if err != nil {
		return inventory.HarvestBatch{}, err
	}
	if batch == nil || batch.TenantID != tenantID {
		return inventory.HarvestBatch{}, notFound
	}
	return *batch, nil
}

func (s *AllocationService) recordPlan(ctx context.Context, tenantID uuid.UUID, plan inventory.AllocationPlan) {
	if !plan.CanFulfill {
		logger.WithLogger(ctx, s.logger).Info("allocation shortfall",
			zap.String("policy", string(plan.Policy)),
			zap.String("required", plan.RequiredQuantity.String()),
			zap.String("remaining", plan.Remaining.String()),
		)
	}
	if s.metrics != nil {
		s.metrics.RecordAllocation(ctx, tenantID, string(plan.Policy), plan.CanFulfill)
	}
}

func (s *AllocationService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		logger.WithLogger(ctx, s.logger).Error("failed to publish domain events", zap.Error(err))
	}
}
